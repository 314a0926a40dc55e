package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/codefionn/krim/internal/consts"
	"github.com/codefionn/krim/internal/llm"
	"github.com/codefionn/krim/internal/logger"
	"github.com/codefionn/krim/internal/safety"
)

const ToolNameBash = "bash"

// BashTool runs shell commands. The working directory carries over between
// calls: a `cd` in one command applies to the next.
type BashTool struct {
	policy    *safety.Policy
	confirmer safety.Confirmer
	maxOutput int
	marker    string
	log       *logger.Logger

	mu  sync.Mutex
	cwd string
}

func NewBashTool(workDir string, policy *safety.Policy, confirmer safety.Confirmer, maxOutput int) *BashTool {
	if workDir == "" {
		workDir, _ = os.Getwd()
	}
	if policy == nil {
		policy = safety.DefaultPolicy()
	}
	if confirmer == nil {
		confirmer = safety.RejectAll
	}
	return &BashTool{
		policy:    policy,
		confirmer: confirmer,
		maxOutput: maxOutput,
		marker:    "__KRIM_CWD_" + strings.ReplaceAll(uuid.NewString(), "-", "") + "__",
		log:       logger.Global().WithPrefix("bash"),
		cwd:       workDir,
	}
}

func (t *BashTool) Name() string { return ToolNameBash }

func (t *BashTool) Description() string {
	return "Run a shell command. The working directory persists between calls."
}

func (t *BashTool) Schema() llm.ToolSchema {
	return BuildSchema(t.Name(), t.Description(), []Param{
		{Name: "command", Type: "string", Description: "Shell command to run"},
		{Name: "timeout", Type: "integer", Description: "Timeout in seconds (default 120)", Optional: true},
	})
}

// Cwd returns the directory the next command will run in.
func (t *BashTool) Cwd() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cwd
}

func (t *BashTool) setCwd(dir string) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return
	}
	t.mu.Lock()
	t.cwd = dir
	t.mu.Unlock()
}

func (t *BashTool) Run(ctx context.Context, args map[string]any) (string, error) {
	command, msg := requireString(args, "command")
	if msg != "" {
		return msg, nil
	}
	timeoutSecs := GetIntParam(args, "timeout", int(consts.BashDefaultTimeout/time.Second))
	if timeoutSecs <= 0 {
		timeoutSecs = int(consts.BashDefaultTimeout / time.Second)
	}

	switch t.policy.Classify(command) {
	case safety.Deny:
		t.log.Warn("denied: %s (matched %v)", command, t.policy.MatchedDenyPatterns(command))
		return fmt.Sprintf("error: command denied by safety rules: %s", command), nil
	case safety.Ask:
		if !t.confirmer.Confirm(command) {
			t.log.Info("rejected by user: %s", command)
			return "error: command rejected by user", nil
		}
	}

	res, err := t.exec(ctx, command, time.Duration(timeoutSecs)*time.Second)
	if err != nil {
		return "", err
	}
	if res.timedOut {
		return fmt.Sprintf("error: command timed out after %ds", timeoutSecs), nil
	}
	if res.cwd != "" {
		t.setCwd(res.cwd)
	}
	return t.format(res), nil
}

type shellResult struct {
	stdout   string
	stderr   string
	exitCode int
	cwd      string
	timedOut bool
}

func (t *BashTool) script(command string) string {
	return command + "\n__krim_ec=$?\nprintf '\\n%s%s\\n' '" + t.marker + "' \"$(pwd)\"\nexit $__krim_ec\n"
}

func (t *BashTool) exec(ctx context.Context, command string, timeout time.Duration) (*shellResult, error) {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, "/bin/sh", "-c", t.script(command))
	cmd.Dir = t.Cwd()
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	configureProcessGroup(cmd)
	cmd.Cancel = func() error { return killProcessGroup(cmd) }
	cmd.WaitDelay = consts.BashKillGrace

	t.log.Debug("run in %s: %s", cmd.Dir, command)
	err := cmd.Run()

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		t.log.Warn("timed out after %s: %s", timeout, command)
		return &shellResult{timedOut: true}, nil
	}

	res := &shellResult{stderr: stderr.String()}
	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		res.exitCode = exitErr.ExitCode()
	case errors.Is(err, exec.ErrWaitDelay):
		if cmd.ProcessState != nil {
			res.exitCode = cmd.ProcessState.ExitCode()
		}
	default:
		return nil, fmt.Errorf("run shell: %w", err)
	}

	res.stdout, res.cwd = t.splitMarker(stdout.String())
	return res, nil
}

// splitMarker strips the trailing cwd report. The last occurrence counts,
// so a command echoing the marker cannot spoof the directory.
func (t *BashTool) splitMarker(out string) (string, string) {
	idx := strings.LastIndex(out, "\n"+t.marker)
	if idx < 0 {
		return out, ""
	}
	rest := out[idx+1+len(t.marker):]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[:nl]
	}
	return out[:idx], strings.TrimSpace(rest)
}

func (t *BashTool) format(res *shellResult) string {
	out := res.stdout
	if res.stderr != "" {
		if out != "" {
			out += "\n"
		}
		out += res.stderr
	}
	if res.exitCode != 0 {
		out += fmt.Sprintf("\n[exit code: %d]", res.exitCode)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "(no output)"
	}
	return Truncate(out, t.maxOutput)
}
