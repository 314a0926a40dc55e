package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/codefionn/krim/internal/orchestrator/loop"
	"github.com/codefionn/krim/internal/vcs"
)

// Agent is the part of the orchestrator the REPL drives.
type Agent interface {
	Run(ctx context.Context, input string) *loop.RunStats
	TokenUsage() (estimate, budget int)
	ForceCompact() (before, after int)
	SetVerbose(v bool)
	Verbose() bool
	Undo(ctx context.Context) (*vcs.UndoResult, error)
}

type command struct {
	help string
	run  func(ctx context.Context, r *REPL, args []string)
}

var commands = map[string]command{
	"/help":    {help: "show this help", run: cmdHelp},
	"/tokens":  {help: "show estimated context usage", run: cmdTokens},
	"/compact": {help: "summarize older history now", run: cmdCompact},
	"/config":  {help: "show the effective configuration", run: cmdConfig},
	"/undo":    {help: "revert the last krim commit, keeping its changes unstaged", run: cmdUndo},
	"/verbose": {help: "toggle full tool output", run: cmdVerbose},
}

// isCommand reports whether input is a slash command rather than a prompt
// that happens to start with an absolute path.
func isCommand(input string) bool {
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return false
	}
	first := fields[0]
	return strings.HasPrefix(first, "/") && len(first) > 1 && !strings.Contains(first[1:], "/")
}

func (r *REPL) dispatch(ctx context.Context, input string) {
	fields := strings.Fields(input)
	name := strings.ToLower(fields[0])
	cmd, ok := commands[name]
	if !ok {
		r.out.Println(r.out.st.warning.Render(fmt.Sprintf("unknown command: %s (try /help)", fields[0])))
		return
	}
	cmd.run(ctx, r, fields[1:])
}

func cmdHelp(_ context.Context, r *REPL, _ []string) {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	r.out.Println(r.out.st.bold.Render("commands:"))
	for _, name := range names {
		r.out.Println(fmt.Sprintf("  %-10s %s", name, r.out.st.dim.Render(commands[name].help)))
	}
	r.out.Println(fmt.Sprintf("  %-10s %s", "exit", r.out.st.dim.Render("quit (also quit, q, Ctrl-D)")))
}

func cmdTokens(_ context.Context, r *REPL, _ []string) {
	estimate, budget := r.agent.TokenUsage()
	pct := 0
	if budget > 0 {
		pct = estimate * 100 / budget
	}
	r.out.Println(fmt.Sprintf("context: ~%d / %d tokens (%d%%)", estimate, budget, pct))
}

func cmdCompact(_ context.Context, r *REPL, _ []string) {
	before, after := r.agent.ForceCompact()
	if before == after {
		r.out.Println(r.out.st.dim.Render("nothing to compact"))
		return
	}
	r.out.Println(fmt.Sprintf("compacted: ~%d -> ~%d tokens", before, after))
}

func cmdConfig(_ context.Context, r *REPL, _ []string) {
	if r.config == nil {
		r.out.Println(r.out.st.dim.Render("no configuration loaded"))
		return
	}
	for _, line := range r.config.Summary() {
		r.out.Println("  " + line)
	}
}

func cmdUndo(ctx context.Context, r *REPL, _ []string) {
	res, err := r.agent.Undo(ctx)
	var foreign *vcs.ForeignCommitError
	switch {
	case errors.As(err, &foreign):
		r.out.Println(r.out.st.warning.Render("refusing to undo: " + err.Error()))
		return
	case errors.Is(err, vcs.ErrNotRepository):
		r.out.Println(r.out.st.warning.Render("undo needs a git repository"))
		return
	case err != nil:
		r.out.Println(r.out.st.err.Render("undo failed: " + err.Error()))
		return
	}
	r.out.Println("undid: " + res.Subject)
	for _, line := range res.Lines() {
		r.out.Println("  " + line)
	}
}

func cmdVerbose(_ context.Context, r *REPL, _ []string) {
	v := !r.agent.Verbose()
	r.agent.SetVerbose(v)
	state := "off"
	if v {
		state = "on"
	}
	r.out.Println("verbose: " + state)
}
