package loop

import (
	"context"
	"fmt"
	"time"

	"github.com/codefionn/krim/internal/llm"
	"github.com/codefionn/krim/internal/logger"
	"github.com/codefionn/krim/internal/progress"
)

// IterationOutcome contains the detailed results of a single iteration
type IterationOutcome struct {
	Result IterationResult

	// Response is the model reply, nil when the call failed.
	Response *llm.ModelResponse

	// Err is the model error when Result is Error.
	Err error

	// Executed lists the tool calls that ran this turn.
	Executed []llm.ToolCall

	// Compacted is true when the history was compacted before the call.
	Compacted bool
}

// IterationExecutor handles the execution of a single loop iteration:
// compaction, the model call, and tool execution.
type IterationExecutor struct {
	deps    Dependencies
	cfg     *Config
	schemas []llm.ToolSchema
	verbose func() bool
	log     *logger.Logger
}

// NewIterationExecutor binds one run's tool schemas. The schemas stay the
// same for every turn of the run.
func NewIterationExecutor(deps Dependencies, cfg *Config, schemas []llm.ToolSchema, verbose func() bool) *IterationExecutor {
	cfg = cfg.normalized()
	if verbose == nil {
		verbose = func() bool { return cfg.Verbose }
	}
	return &IterationExecutor{
		deps:    deps,
		cfg:     cfg,
		schemas: schemas,
		verbose: verbose,
		log:     logger.Global().WithPrefix("loop"),
	}
}

func (e *IterationExecutor) emit(kind progress.Kind, msg, tool string, ephemeral bool) {
	_ = progress.Dispatch(e.deps.Progress, progress.Update{
		Kind:       kind,
		Message:    msg,
		Tool:       tool,
		AddNewLine: kind != progress.KindStream,
		Ephemeral:  ephemeral,
	})
}

func (e *IterationExecutor) stream(chunk string) {
	e.emit(progress.KindStream, chunk, "", false)
}

// chat calls the model through the retry layer.
func (e *IterationExecutor) chat(ctx context.Context, tools []llm.ToolSchema) (*llm.ModelResponse, error) {
	return llm.Retry(ctx, e.cfg.Retry, func(ctx context.Context) (*llm.ModelResponse, error) {
		return e.deps.Client.Chat(ctx, e.deps.History.Messages(), tools, e.stream)
	}, func(err error, attempt int, wait time.Duration) {
		e.log.Warn("model call attempt %d failed: %v", attempt, err)
		e.emit(progress.KindWarning, fmt.Sprintf("model error (attempt %d), retrying in %s: %v", attempt, wait.Round(time.Millisecond), err), "", false)
	})
}

// Execute runs one turn.
func (e *IterationExecutor) Execute(ctx context.Context, state *State) *IterationOutcome {
	out := &IterationOutcome{Result: Continue}
	turn := state.Increment()
	e.emit(progress.KindStatus, fmt.Sprintf("--- turn %d/%d ---", turn, state.MaxIterations()), "", true)

	if e.deps.History.Compact(e.cfg.MaxContextTokens, e.cfg.CompactionThreshold) {
		out.Compacted = true
		e.log.Info("compacted history before turn %d", turn)
		e.emit(progress.KindStatus, "compacting conversation...", "", true)
	}

	resp, err := e.chat(ctx, e.schemas)
	if err != nil {
		e.log.Error("model error on turn %d: %v", turn, err)
		e.emit(progress.KindError, fmt.Sprintf("model error: %v", err), "", false)
		out.Result = Error
		out.Err = err
		return out
	}
	out.Response = resp

	if len(resp.ToolCalls) == 0 {
		if resp.Text != "" {
			e.deps.History.Append(llm.Message{Role: llm.RoleAssistant, Content: resp.Text})
		}
		out.Result = Done
		return out
	}

	if state.RecordToolCalls(resp.ToolCalls) {
		e.log.Warn("repeated tool calls on turn %d, stopping", turn)
		out.Result = BreakLoopDetected
		return out
	}

	format := e.deps.Client.Format()
	e.deps.History.Append(format.AssistantMessage(resp.Text, resp.ToolCalls))

	results := make([]llm.ToolResult, 0, len(resp.ToolCalls))
	for _, call := range resp.ToolCalls {
		e.emit(progress.KindToolCall, describeCall(call), call.Name, false)
		output := e.deps.Tools.Execute(ctx, call)
		e.log.Debug("tool %s (%s) returned %d bytes", call.Name, call.ID, len(output))

		preview := output
		if !e.verbose() {
			preview = previewResult(output, previewLines)
		}
		e.emit(progress.KindToolResult, preview, call.Name, false)

		results = append(results, llm.ToolResult{CallID: call.ID, Name: call.Name, Output: output})
		out.Executed = append(out.Executed, call)
	}
	e.deps.History.Append(format.ToolResultMessages(results)...)
	return out
}

// Summarize appends SummaryPrompt and asks for a final answer with tools
// disabled. A failure is logged and reported, nothing more.
func (e *IterationExecutor) Summarize(ctx context.Context) {
	e.deps.History.Append(llm.UserMessage(SummaryPrompt))
	resp, err := e.chat(ctx, nil)
	if err != nil {
		e.log.Warn("summary call failed: %v", err)
		e.emit(progress.KindWarning, fmt.Sprintf("summary failed: %v", err), "", false)
		return
	}
	if resp.Text != "" {
		e.deps.History.Append(llm.Message{Role: llm.RoleAssistant, Content: resp.Text})
	}
}
