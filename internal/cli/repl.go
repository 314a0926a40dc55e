package cli

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/codefionn/krim/internal/logger"
	"github.com/codefionn/krim/internal/orchestrator/loop"
)

// Summarizer is satisfied by config.Config.
type Summarizer interface {
	Summary() []string
}

// REPL reads prompts line by line and hands them to the agent. Interrupting
// a run cancels that run only.
type REPL struct {
	in     *bufio.Reader
	out    *Renderer
	agent  Agent
	config Summarizer
	log    *logger.Logger
}

// NewREPL shares in with the confirmer so approval prompts and input lines
// come from the same buffered reader.
func NewREPL(in *bufio.Reader, out *Renderer, agent Agent, cfg Summarizer) *REPL {
	return &REPL{
		in:     in,
		out:    out,
		agent:  agent,
		config: cfg,
		log:    logger.Global().WithPrefix("repl"),
	}
}

// Loop runs until exit, EOF or ctx is done.
func (r *REPL) Loop(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		r.out.Prompt()
		line, err := r.in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		input := strings.TrimSpace(line)
		if errors.Is(err, io.EOF) && input == "" {
			r.out.Println("")
			r.out.Println(r.out.st.dim.Render("bye"))
			return nil
		}

		switch {
		case input == "":
		case isExit(input):
			r.out.Println(r.out.st.dim.Render("bye"))
			return nil
		case isCommand(input):
			r.dispatch(ctx, input)
		default:
			r.runTask(ctx, input)
		}

		if errors.Is(err, io.EOF) {
			r.out.Println(r.out.st.dim.Render("bye"))
			return nil
		}
	}
}

func (r *REPL) runTask(ctx context.Context, input string) {
	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	stats := RunTask(runCtx, r.agent, r.out, input)
	if runCtx.Err() != nil && ctx.Err() == nil {
		r.out.Println(r.out.st.warning.Render("interrupted"))
	}
	r.log.Debug("run finished: %s after %d turns", stats.Outcome, stats.Turns)
}

// RunTask runs one prompt and flushes the rendered answer.
func RunTask(ctx context.Context, agent Agent, out *Renderer, input string) *loop.RunStats {
	stats := agent.Run(ctx, input)
	out.Flush()
	if stats == nil {
		stats = loop.NewRunStats()
	}
	return stats
}

func isExit(input string) bool {
	switch strings.ToLower(input) {
	case "exit", "quit", "q":
		return true
	}
	return false
}
