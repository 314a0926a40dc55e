// Package orchestrator wires a model client, a conversation, the tool
// registry and the turn loop into one agent session.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/codefionn/krim/internal/llm"
	"github.com/codefionn/krim/internal/logger"
	"github.com/codefionn/krim/internal/orchestrator/loop"
	"github.com/codefionn/krim/internal/progress"
	"github.com/codefionn/krim/internal/session"
	"github.com/codefionn/krim/internal/tools"
	"github.com/codefionn/krim/internal/vcs"
)

const commitSubjectRunes = 60

// Options are the parts an Orchestrator is assembled from.
type Options struct {
	Client   llm.Client
	Session  *session.Session
	Tools    *tools.Registry
	Progress progress.Callback
	// VCS is nil outside a repository; AutoCommit then does nothing.
	VCS        vcs.VCS
	AutoCommit bool
	Loop       *loop.Config
}

// Orchestrator manages the LLM interaction
type Orchestrator struct {
	client     llm.Client
	session    *session.Session
	registry   *tools.Registry
	progress   progress.Callback
	vcs        vcs.VCS
	autoCommit bool
	loop       *loop.Loop

	// runMu serializes runs and manual compaction on the one conversation.
	runMu sync.Mutex

	closeOnce sync.Once
	closers   []func() error
	log       *logger.Logger
}

func New(opts Options) (*Orchestrator, error) {
	if opts.Client == nil {
		return nil, errors.New("orchestrator requires a model client")
	}
	if opts.Session == nil {
		return nil, errors.New("orchestrator requires a session")
	}
	if opts.Tools == nil {
		opts.Tools = tools.NewRegistry()
	}

	o := &Orchestrator{
		client:     opts.Client,
		session:    opts.Session,
		registry:   opts.Tools,
		progress:   opts.Progress,
		vcs:        opts.VCS,
		autoCommit: opts.AutoCommit,
		log:        logger.Global().WithPrefix("orchestrator"),
	}
	o.loop = loop.New(loop.Dependencies{
		Client:   opts.Client,
		History:  opts.Session,
		Tools:    opts.Tools,
		Progress: opts.Progress,
	}, opts.Loop)
	return o, nil
}

// Run handles one user request. With auto-commit enabled, pending user
// changes are committed first so the agent's edits land in a commit of
// their own.
func (o *Orchestrator) Run(ctx context.Context, input string) *loop.RunStats {
	o.runMu.Lock()
	defer o.runMu.Unlock()

	o.log.Info("run: %s", firstLine(input, commitSubjectRunes))
	if o.commitsEnabled() {
		if ok, err := o.vcs.CommitDirty(ctx, vcs.DirtyCommitMessage); err != nil {
			o.warn("git: could not commit pending changes: %v", err)
		} else if ok {
			o.notice("git: committed dirty files: %s", vcs.DirtyCommitMessage)
		}
	}

	stats := o.loop.Run(ctx, input)
	o.log.Info("run finished: outcome=%s turns=%d tool_calls=%d", stats.Outcome, stats.Turns, stats.ToolCalls)

	if o.commitsEnabled() && ctx.Err() == nil {
		msg := commitMessage(input)
		hash, err := o.vcs.AutoCommit(ctx, msg)
		switch {
		case err != nil:
			o.warn("git: auto-commit failed: %v", err)
		case hash != "":
			o.notice("git: committed %s - %s", hash, msg)
		}
	}
	return stats
}

func (o *Orchestrator) commitsEnabled() bool {
	return o.autoCommit && o.vcs != nil
}

// ForceCompact compacts the conversation now and returns the token
// estimate before and after.
func (o *Orchestrator) ForceCompact() (before, after int) {
	o.runMu.Lock()
	defer o.runMu.Unlock()
	return o.session.ForceCompact(o.loop.Config().MaxContextTokens)
}

// TokenUsage returns the estimated size of the conversation and the budget.
func (o *Orchestrator) TokenUsage() (estimate, budget int) {
	return o.session.TokenEstimate(), o.loop.Config().MaxContextTokens
}

func (o *Orchestrator) SetVerbose(v bool) { o.loop.SetVerbose(v) }
func (o *Orchestrator) Verbose() bool     { return o.loop.Verbose() }

// SetMaxTurns changes the turn budget of later runs.
func (o *Orchestrator) SetMaxTurns(n int) { o.loop.SetMaxIterations(n) }
func (o *Orchestrator) MaxTurns() int     { return o.loop.Config().MaxIterations }

// Undo resets the last agent commit.
func (o *Orchestrator) Undo(ctx context.Context) (*vcs.UndoResult, error) {
	if o.vcs == nil {
		return nil, vcs.ErrNotRepository
	}
	return o.vcs.Undo(ctx)
}

func (o *Orchestrator) Session() *session.Session { return o.session }
func (o *Orchestrator) Tools() *tools.Registry    { return o.registry }
func (o *Orchestrator) Client() llm.Client        { return o.client }

// OnClose registers cleanup to run on Close, in reverse order.
func (o *Orchestrator) OnClose(fn func() error) {
	o.closers = append(o.closers, fn)
}

// Close releases MCP servers and file watchers.
func (o *Orchestrator) Close() error {
	var errs []error
	o.closeOnce.Do(func() {
		for i := len(o.closers) - 1; i >= 0; i-- {
			if err := o.closers[i](); err != nil {
				errs = append(errs, err)
			}
		}
	})
	return errors.Join(errs...)
}

func (o *Orchestrator) notice(format string, args ...any) {
	o.log.Info(format, args...)
	_ = progress.Dispatch(o.progress, progress.Update{Kind: progress.KindNotice, Message: fmt.Sprintf(format, args...), AddNewLine: true})
}

func (o *Orchestrator) warn(format string, args ...any) {
	o.log.Warn(format, args...)
	_ = progress.Dispatch(o.progress, progress.Update{Kind: progress.KindWarning, Message: fmt.Sprintf(format, args...), AddNewLine: true})
}

// commitMessage names an agent commit after the request that caused it.
func commitMessage(input string) string {
	subject := firstLine(input, commitSubjectRunes)
	if subject == "" {
		return vcs.AutoCommitMessage
	}
	return vcs.CommitPrefix + " " + subject
}

func firstLine(s string, maxRunes int) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	runes := []rune(s)
	if len(runes) > maxRunes {
		return string(runes[:maxRunes-3]) + "..."
	}
	return s
}
