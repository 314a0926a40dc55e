package loop

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codefionn/krim/internal/llm"
	"github.com/codefionn/krim/internal/llm/llmtest"
	"github.com/codefionn/krim/internal/progress"
	"github.com/codefionn/krim/internal/session"
	"github.com/codefionn/krim/internal/tools"
)

type echoTool struct{}

func (echoTool) Name() string        { return "echo" }
func (echoTool) Description() string { return "echo back" }
func (echoTool) Schema() llm.ToolSchema {
	return tools.BuildSchema("echo", "echo back", []tools.Param{{Name: "x", Type: "string", Description: "value"}})
}
func (echoTool) Run(_ context.Context, args map[string]any) (string, error) {
	return "echo:" + tools.GetStringParam(args, "x", ""), nil
}

type harness struct {
	client  *llmtest.ScriptedClient
	session *session.Session
	rec     *progress.Recorder
	loop    *Loop
}

func fastRetry() llm.RetryPolicy {
	return llm.RetryPolicy{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, Multiplier: 2}
}

func newHarness(t *testing.T, wire llm.WireFormat, cfg *Config, steps ...llmtest.Step) *harness {
	t.Helper()
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg.Retry = fastRetry()

	reg := tools.NewRegistry()
	reg.Register(echoTool{})

	h := &harness{
		client:  &llmtest.ScriptedClient{Steps: steps, Wire: wire},
		session: session.NewSession("system prompt", t.TempDir()),
		rec:     &progress.Recorder{},
	}
	h.loop = New(Dependencies{
		Client:   h.client,
		History:  h.session,
		Tools:    reg,
		Progress: h.rec.Callback(),
	}, cfg)
	return h
}

func echoCall(id, x string) llm.ToolCall {
	return llm.ToolCall{ID: id, Name: "echo", Args: map[string]any{"x": x}}
}

func TestRun_DoneWithoutTools(t *testing.T) {
	h := newHarness(t, llm.FormatBlocks, nil, llmtest.Step{Text: "hello there"})

	stats := h.loop.Run(t.Context(), "hi")

	assert.Equal(t, Done, stats.Outcome)
	assert.Equal(t, 1, stats.Turns)
	assert.Zero(t, stats.ToolCalls)
	assert.Equal(t, "hello there", h.rec.Text())

	msgs := h.session.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, llm.RoleUser, msgs[1].Role)
	assert.Equal(t, "hi", msgs[1].Content)
	assert.Equal(t, llm.RoleAssistant, msgs[2].Role)
	assert.Equal(t, "hello there", msgs[2].Content)
}

func TestRun_EmptyReplyAppendsNothing(t *testing.T) {
	h := newHarness(t, llm.FormatBlocks, nil, llmtest.Step{})
	stats := h.loop.Run(t.Context(), "hi")
	assert.Equal(t, Done, stats.Outcome)
	assert.Len(t, h.session.Messages(), 2)
}

func TestRun_ToolRoundTrip(t *testing.T) {
	for _, wire := range []llm.WireFormat{llm.FormatBlocks, llm.FormatToolMessages} {
		t.Run(wire.String(), func(t *testing.T) {
			h := newHarness(t, wire, nil,
				llmtest.Step{Text: "checking", ToolCalls: []llm.ToolCall{echoCall("c1", "a"), echoCall("c2", "b")}},
				llmtest.Step{Text: "all done"},
			)

			stats := h.loop.Run(t.Context(), "do it")

			assert.Equal(t, Done, stats.Outcome)
			assert.Equal(t, 2, stats.Turns)
			assert.Equal(t, 2, stats.ToolCalls)
			assert.Equal(t, map[string]int{"echo": 2}, stats.ToolCallNames)

			msgs := h.session.Messages()
			assistant := msgs[2]
			assert.Equal(t, llm.RoleAssistant, assistant.Role)
			assert.Len(t, llm.ToolCallsOf(assistant), 2)

			var results []string
			for _, m := range msgs[3 : len(msgs)-1] {
				assert.True(t, llm.IsToolResult(m))
				results = append(results, llm.ResultIDs(m)...)
			}
			assert.Equal(t, []string{"c1", "c2"}, results)
			assert.Equal(t, "all done", msgs[len(msgs)-1].Content)

			if wire == llm.FormatToolMessages {
				assert.Equal(t, llm.RoleTool, msgs[3].Role)
				assert.Equal(t, "echo:a", msgs[3].Content)
			} else {
				require.Len(t, msgs[3].Blocks, 2)
				assert.Equal(t, "echo:b", msgs[3].Blocks[1].Content)
			}

			assert.Equal(t, []string{"echo  {\"x\":\"a\"}\n", "echo  {\"x\":\"b\"}\n"}, h.rec.OfKind(progress.KindToolCall))
		})
	}
}

func TestRun_ToolSchemasSentEveryTurn(t *testing.T) {
	h := newHarness(t, llm.FormatBlocks, nil,
		llmtest.Step{ToolCalls: []llm.ToolCall{echoCall("c1", "a")}},
		llmtest.Step{Text: "ok"},
	)
	h.loop.Run(t.Context(), "go")

	calls := h.client.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, calls[0].Tools, calls[1].Tools)
	require.Len(t, calls[0].Tools, 1)
	assert.Equal(t, "echo", calls[0].Tools[0].Name)
}

func TestRun_UnknownToolReportedToModel(t *testing.T) {
	h := newHarness(t, llm.FormatToolMessages, nil,
		llmtest.Step{ToolCalls: []llm.ToolCall{{ID: "g1", Name: "ghost"}}},
		llmtest.Step{Text: "sorry"},
	)
	stats := h.loop.Run(t.Context(), "go")

	assert.Equal(t, Done, stats.Outcome)
	msgs := h.session.Messages()
	assert.Equal(t, "error: unknown tool 'ghost'", msgs[3].Content)
}

func TestRun_LoopDetectionForcesSummary(t *testing.T) {
	same := llmtest.Step{ToolCalls: []llm.ToolCall{echoCall("", "same")}}
	h := newHarness(t, llm.FormatBlocks, nil, same, same, same, llmtest.Step{Text: "summary text"})

	stats := h.loop.Run(t.Context(), "loop please")

	assert.Equal(t, BreakLoopDetected, stats.Outcome)
	assert.Equal(t, 3, stats.Turns)
	assert.Equal(t, 2, stats.ToolCalls, "the repeated batch is not executed")

	calls := h.client.Calls()
	require.Len(t, calls, 4)
	assert.Empty(t, calls[3].Tools, "summary call runs without tools")

	msgs := h.session.Messages()
	assert.Equal(t, SummaryPrompt, msgs[len(msgs)-2].Content)
	assert.Equal(t, "summary text", msgs[len(msgs)-1].Content)
	assert.Contains(t, h.rec.OfKind(progress.KindWarning), "doom loop detected, forcing stop\n")
}

func TestRun_MaxTurnsForcesSummary(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxIterations = 2
	h := newHarness(t, llm.FormatBlocks, cfg,
		llmtest.Step{ToolCalls: []llm.ToolCall{echoCall("c1", "1")}},
		llmtest.Step{ToolCalls: []llm.ToolCall{echoCall("c2", "2")}},
		llmtest.Step{Text: "ran out of turns"},
	)

	stats := h.loop.Run(t.Context(), "work")

	assert.Equal(t, BreakMaxIterations, stats.Outcome)
	assert.Equal(t, 2, stats.Turns)
	assert.Equal(t, 2, stats.ToolCalls)
	assert.Len(t, h.client.Calls(), 3)
	msgs := h.session.Messages()
	assert.Equal(t, "ran out of turns", msgs[len(msgs)-1].Content)
	assert.Contains(t, h.rec.OfKind(progress.KindWarning), "reached max turns (2)\n")
}

func TestRun_SingleTurnBudget(t *testing.T) {
	t.Run("answer on the last turn is done", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.MaxIterations = 1
		h := newHarness(t, llm.FormatBlocks, cfg, llmtest.Step{Text: "done"})

		stats := h.loop.Run(t.Context(), "quick question")

		assert.Equal(t, Done, stats.Outcome)
		assert.Equal(t, 1, stats.Turns)
		assert.Len(t, h.client.Calls(), 1, "no summary is requested")
		assert.Empty(t, h.rec.OfKind(progress.KindWarning))
	})

	t.Run("tool calls on the last turn force a summary", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.MaxIterations = 1
		h := newHarness(t, llm.FormatToolMessages, cfg,
			llmtest.Step{ToolCalls: []llm.ToolCall{echoCall("c1", "1")}},
			llmtest.Step{Text: "summary"},
		)

		stats := h.loop.Run(t.Context(), "work")

		assert.Equal(t, BreakMaxIterations, stats.Outcome)
		assert.Equal(t, 1, stats.Turns)
		assert.Equal(t, 1, stats.ToolCalls)
		calls := h.client.Calls()
		require.Len(t, calls, 2)
		assert.NotEmpty(t, calls[0].Tools)
		assert.Empty(t, calls[1].Tools)
		assert.Contains(t, h.rec.OfKind(progress.KindWarning), "reached max turns (1)\n")
	})
}

func TestRun_ModelErrorStopsWithoutSummary(t *testing.T) {
	h := newHarness(t, llm.FormatBlocks, nil, llmtest.Step{Err: errors.New("bad request")})

	stats := h.loop.Run(t.Context(), "x")

	assert.Equal(t, Error, stats.Outcome)
	assert.Len(t, h.client.Calls(), 1, "client errors are not retried and no summary is requested")
	assert.Equal(t, []string{"model error: bad request\n"}, h.rec.OfKind(progress.KindError))
	assert.Len(t, h.session.Messages(), 2)
}

func TestRun_TransientErrorRetried(t *testing.T) {
	h := newHarness(t, llm.FormatBlocks, nil,
		llmtest.Step{Err: &llm.APIError{Provider: "claude", StatusCode: 529, Err: errors.New("overloaded")}},
		llmtest.Step{Text: "recovered"},
	)

	stats := h.loop.Run(t.Context(), "x")

	assert.Equal(t, Done, stats.Outcome)
	assert.Equal(t, 1, stats.Turns)
	assert.Len(t, h.client.Calls(), 2)
	warnings := h.rec.OfKind(progress.KindWarning)
	require.Len(t, warnings, 1)
	assert.True(t, strings.HasPrefix(warnings[0], "model error (attempt 1)"), warnings[0])
}

func TestRun_CompactionCounted(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxContextTokens = 200
	h := newHarness(t, llm.FormatBlocks, cfg, llmtest.Step{Text: "ok"})
	for i := 0; i < 6; i++ {
		h.session.Append(llm.UserMessage(fmt.Sprintf("old %d %s", i, strings.Repeat("x", 300))))
		h.session.Append(llm.Message{Role: llm.RoleAssistant, Content: "reply"})
	}

	stats := h.loop.Run(t.Context(), "new question")

	assert.Equal(t, 1, stats.Compactions)
	assert.Equal(t, 1, h.session.Compactions())
	assert.Less(t, len(h.session.Messages()), 15)
}

func TestRun_VerboseControlsPreview(t *testing.T) {
	long := strings.Repeat("line\n", 30)
	reg := tools.NewRegistry()
	reg.Register(&lines{out: long})
	rec := &progress.Recorder{}
	client := &llmtest.ScriptedClient{Steps: []llmtest.Step{
		{ToolCalls: []llm.ToolCall{{ID: "a", Name: "lines"}}},
		{Text: "done"},
		{ToolCalls: []llm.ToolCall{{ID: "b", Name: "lines"}}},
		{Text: "done"},
	}}
	l := New(Dependencies{Client: client, History: session.NewSession("s", ""), Tools: reg, Progress: rec.Callback()}, &Config{Retry: fastRetry()})

	l.Run(t.Context(), "one")
	l.SetVerbose(true)
	l.Run(t.Context(), "two")

	previews := rec.OfKind(progress.KindToolResult)
	require.Len(t, previews, 2)
	assert.Contains(t, previews[0], "... (16 more lines)")
	assert.Equal(t, long, previews[1])
}

type lines struct{ out string }

func (l *lines) Name() string           { return "lines" }
func (l *lines) Description() string    { return "lines" }
func (l *lines) Schema() llm.ToolSchema { return tools.BuildSchema("lines", "lines", nil) }
func (l *lines) Run(context.Context, map[string]any) (string, error) {
	return l.out, nil
}

func TestIterationResultString(t *testing.T) {
	assert.Equal(t, "continue", Continue.String())
	assert.Equal(t, "done", Done.String())
	assert.Equal(t, "break_max_iterations", BreakMaxIterations.String())
	assert.Equal(t, "break_loop_detected", BreakLoopDetected.String())
	assert.Equal(t, "error", Error.String())
	assert.Equal(t, "unknown", IterationResult(42).String())
}
