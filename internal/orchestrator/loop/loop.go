package loop

import (
	"context"

	"github.com/codefionn/krim/internal/consts"
	"github.com/codefionn/krim/internal/llm"
	"github.com/codefionn/krim/internal/progress"
)

// SummaryPrompt is sent when the loop has to stop while the model still
// wants to call tools.
const SummaryPrompt = "You have reached the maximum number of tool calls for this turn. " +
	"Stop calling tools. Summarize what you accomplished and what remains to be done."

// IterationResult represents the outcome of a single loop iteration
type IterationResult int

const (
	// Continue indicates the loop should continue to the next iteration
	Continue IterationResult = iota

	// Done indicates the model answered without calling tools
	Done

	// BreakMaxIterations indicates the loop stopped due to hitting the iteration limit
	BreakMaxIterations

	// BreakLoopDetected indicates the loop stopped due to detecting a repetitive pattern
	BreakLoopDetected

	// Error indicates the model call failed
	Error
)

// String returns a human-readable description of the iteration result
func (r IterationResult) String() string {
	switch r {
	case Continue:
		return "continue"
	case Done:
		return "done"
	case BreakMaxIterations:
		return "break_max_iterations"
	case BreakLoopDetected:
		return "break_loop_detected"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// History is the conversation the loop reads and appends to.
type History interface {
	Append(msgs ...llm.Message)
	Messages() []llm.Message
	// Compact shrinks the history when it exceeds threshold of maxTokens
	// and reports whether it did.
	Compact(maxTokens int, threshold float64) bool
}

// ToolExecutor runs tool calls. Execute never fails; problems come back as
// "error: ..." text.
type ToolExecutor interface {
	Schemas() []llm.ToolSchema
	Execute(ctx context.Context, call llm.ToolCall) string
}

// Dependencies contains the external dependencies required by the loop
type Dependencies struct {
	Client   llm.Client
	History  History
	Tools    ToolExecutor
	Progress progress.Callback
}

// Config contains configuration options for the loop
type Config struct {
	// MaxIterations is the turn budget per run (default 10)
	MaxIterations int

	// MaxContextTokens is the estimated token budget of the history
	MaxContextTokens int

	// CompactionThreshold is the fraction of MaxContextTokens that triggers compaction
	CompactionThreshold float64

	// DisableLoopDetection lets runs repeat the same tool calls until the
	// turn budget ends
	DisableLoopDetection bool

	// LoopWindow is how many recent tool batches are remembered
	LoopWindow int

	// LoopRepeats is how many identical consecutive batches count as a loop
	LoopRepeats int

	// Retry governs model call retries
	Retry llm.RetryPolicy

	// Verbose reports full tool output instead of a preview
	Verbose bool
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		MaxIterations:       consts.DefaultMaxTurns,
		MaxContextTokens:    consts.DefaultMaxContextTokens,
		CompactionThreshold: consts.CompactionThreshold,
		LoopWindow:          consts.DoomLoopWindow,
		LoopRepeats:         consts.DoomLoopRepeats,
		Retry:               llm.DefaultRetryPolicy(),
	}
}

// normalized fills zero limits and a zero retry policy with defaults.
func (c *Config) normalized() *Config {
	def := DefaultConfig()
	if c == nil {
		return def
	}
	out := *c
	if out.MaxIterations <= 0 {
		out.MaxIterations = def.MaxIterations
	}
	if out.MaxContextTokens <= 0 {
		out.MaxContextTokens = def.MaxContextTokens
	}
	if out.CompactionThreshold <= 0 {
		out.CompactionThreshold = def.CompactionThreshold
	}
	if out.LoopWindow <= 0 {
		out.LoopWindow = def.LoopWindow
	}
	if out.LoopRepeats <= 0 {
		out.LoopRepeats = def.LoopRepeats
	}
	if out.Retry == (llm.RetryPolicy{}) {
		out.Retry = def.Retry
	}
	return &out
}
