// Package llmtest provides a scripted llm.Client for tests.
package llmtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/codefionn/krim/internal/llm"
)

// Step is one scripted model reply. Err makes the call fail instead.
type Step struct {
	Text      string
	ToolCalls []llm.ToolCall
	Err       error
}

// Call records what the client was asked.
type Call struct {
	Messages []llm.Message
	Tools    []llm.ToolSchema
}

// ScriptedClient replays Steps in order. Once the script runs out, Repeat
// (when set) produces the reply for every further call; otherwise the call
// fails.
type ScriptedClient struct {
	Steps  []Step
	Repeat func(n int) Step
	Wire   llm.WireFormat

	mu    sync.Mutex
	calls []Call
}

func (c *ScriptedClient) ModelName() string      { return "scripted" }
func (c *ScriptedClient) Format() llm.WireFormat { return c.Wire }

func (c *ScriptedClient) Chat(_ context.Context, messages []llm.Message, tools []llm.ToolSchema, onText llm.StreamFunc) (*llm.ModelResponse, error) {
	c.mu.Lock()
	n := len(c.calls)
	snapshot := make([]llm.Message, len(messages))
	for i, m := range messages {
		snapshot[i] = m.Clone()
	}
	c.calls = append(c.calls, Call{Messages: snapshot, Tools: append([]llm.ToolSchema(nil), tools...)})
	c.mu.Unlock()

	var step Step
	switch {
	case n < len(c.Steps):
		step = c.Steps[n]
	case c.Repeat != nil:
		step = c.Repeat(n)
	default:
		return nil, fmt.Errorf("scripted client: no reply for call %d", n+1)
	}
	if step.Err != nil {
		return nil, step.Err
	}
	if step.Text != "" && onText != nil {
		onText(step.Text)
	}
	calls := append([]llm.ToolCall(nil), step.ToolCalls...)
	return &llm.ModelResponse{Text: step.Text, ToolCalls: llm.NormalizeToolCallIDs(calls)}, nil
}

// Calls returns every recorded request.
func (c *ScriptedClient) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Call(nil), c.calls...)
}
