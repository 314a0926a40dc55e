package loop

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/codefionn/krim/internal/llm"
	"github.com/codefionn/krim/internal/logger"
	"github.com/codefionn/krim/internal/progress"
)

// Loop drives runs against one conversation.
type Loop struct {
	deps    Dependencies
	cfg     *Config
	verbose atomic.Bool
	log     *logger.Logger
}

func New(deps Dependencies, cfg *Config) *Loop {
	cfg = cfg.normalized()
	l := &Loop{deps: deps, cfg: cfg, log: logger.Global().WithPrefix("loop")}
	l.verbose.Store(cfg.Verbose)
	return l
}

// SetVerbose switches between full tool output and previews.
func (l *Loop) SetVerbose(v bool) { l.verbose.Store(v) }

func (l *Loop) Verbose() bool { return l.verbose.Load() }

func (l *Loop) Config() Config { return *l.cfg }

// SetMaxIterations changes the turn budget for later runs.
func (l *Loop) SetMaxIterations(n int) {
	if n > 0 {
		l.cfg.MaxIterations = n
	}
}

// Run handles one user request. Errors are reported through the progress
// callback and reflected in RunStats.Outcome; Run itself never fails.
func (l *Loop) Run(ctx context.Context, input string) *RunStats {
	stats := NewRunStats()
	l.deps.History.Append(llm.UserMessage(input))

	state := NewState(l.cfg)
	schemas := l.deps.Tools.Schemas()
	exec := NewIterationExecutor(l.deps, l.cfg, schemas, l.Verbose)

	l.log.Info("run started: %d tools, budget %d turns", len(schemas), l.cfg.MaxIterations)
	for !state.HasReachedLimit() {
		out := exec.Execute(ctx, state)
		stats.Turns = state.Iteration()
		if out.Compacted {
			stats.Compactions++
		}
		for _, call := range out.Executed {
			stats.RecordToolCall(call.Name)
		}

		switch out.Result {
		case Continue:
			continue
		case BreakLoopDetected:
			exec.emit(progress.KindWarning, "doom loop detected, forcing stop", "", false)
			exec.Summarize(ctx)
		}
		stats.Outcome = out.Result
		l.log.Info("run finished: %s after %d turns, %d tool calls", stats.Outcome, stats.Turns, stats.ToolCalls)
		return stats
	}

	exec.emit(progress.KindWarning, fmt.Sprintf("reached max turns (%d)", l.cfg.MaxIterations), "", false)
	exec.Summarize(ctx)
	stats.Outcome = BreakMaxIterations
	l.log.Info("run finished: %s after %d turns, %d tool calls", stats.Outcome, stats.Turns, stats.ToolCalls)
	return stats
}
