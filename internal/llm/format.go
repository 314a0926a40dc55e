package llm

import (
	"encoding/json"
	"strings"
)

// WireFormat is the message shape a provider expects for tool traffic.
type WireFormat int

const (
	// FormatBlocks puts tool_use blocks in the assistant message and all
	// results of a turn into one user message of tool_result blocks.
	FormatBlocks WireFormat = iota
	// FormatToolMessages puts tool_calls on the assistant message and one
	// role=tool message per result.
	FormatToolMessages
)

func (f WireFormat) String() string {
	if f == FormatToolMessages {
		return "tool-messages"
	}
	return "blocks"
}

// AssistantMessage builds the assistant turn for text plus tool calls. An
// assistant turn without tool calls is plain text in both formats.
func (f WireFormat) AssistantMessage(text string, calls []ToolCall) Message {
	if len(calls) == 0 {
		return Message{Role: RoleAssistant, Content: text}
	}

	if f == FormatToolMessages {
		msg := Message{Role: RoleAssistant, Content: text}
		for _, c := range calls {
			msg.ToolCalls = append(msg.ToolCalls, WireToolCall{
				ID:   c.ID,
				Type: "function",
				Function: WireFunction{
					Name:      c.Name,
					Arguments: EncodeArguments(c.Args),
				},
			})
		}
		return msg
	}

	msg := Message{Role: RoleAssistant}
	if text != "" {
		msg.Blocks = append(msg.Blocks, Block{Type: BlockText, Text: text})
	}
	for _, c := range calls {
		args := c.Args
		if args == nil {
			args = map[string]any{}
		}
		msg.Blocks = append(msg.Blocks, Block{Type: BlockToolUse, ID: c.ID, Name: c.Name, Input: args})
	}
	return msg
}

// ToolResultMessages builds the message(s) carrying one turn's results.
func (f WireFormat) ToolResultMessages(results []ToolResult) []Message {
	if len(results) == 0 {
		return nil
	}
	if f == FormatToolMessages {
		out := make([]Message, 0, len(results))
		for _, r := range results {
			out = append(out, Message{Role: RoleTool, ToolCallID: r.CallID, Name: r.Name, Content: r.Output})
		}
		return out
	}

	msg := Message{Role: RoleUser}
	for _, r := range results {
		msg.Blocks = append(msg.Blocks, Block{Type: BlockToolResult, ToolUseID: r.CallID, Name: r.Name, Content: r.Output})
	}
	return []Message{msg}
}

// ToolCallsOf extracts the canonical tool calls from an assistant message
// of either shape.
func ToolCallsOf(m Message) []ToolCall {
	if m.Role != RoleAssistant {
		return nil
	}
	var calls []ToolCall
	for _, b := range m.Blocks {
		if b.Type == BlockToolUse {
			calls = append(calls, ToolCall{ID: b.ID, Name: b.Name, Args: b.Input})
		}
	}
	for _, tc := range m.ToolCalls {
		calls = append(calls, ToolCall{ID: tc.ID, Name: tc.Function.Name, Args: ParseArguments(tc.Function.Arguments)})
	}
	return calls
}

// HasToolCalls reports whether m is an assistant message invoking tools.
func HasToolCalls(m Message) bool {
	if m.Role != RoleAssistant {
		return false
	}
	if len(m.ToolCalls) > 0 {
		return true
	}
	for _, b := range m.Blocks {
		if b.Type == BlockToolUse {
			return true
		}
	}
	return false
}

// IsToolResult reports whether m carries tool results: a role=tool
// message, or a user message made of tool_result blocks.
func IsToolResult(m Message) bool {
	if m.Role == RoleTool {
		return true
	}
	if m.Role != RoleUser {
		return false
	}
	for _, b := range m.Blocks {
		if b.Type == BlockToolResult {
			return true
		}
	}
	return false
}

// ResultIDs lists the call IDs a tool-result message answers.
func ResultIDs(m Message) []string {
	if m.Role == RoleTool {
		return []string{m.ToolCallID}
	}
	var ids []string
	for _, b := range m.Blocks {
		if b.Type == BlockToolResult {
			ids = append(ids, b.ToolUseID)
		}
	}
	return ids
}

// ParseArguments decodes a JSON argument string. Empty or malformed input
// yields an empty map so a tool can report its missing parameters itself.
func ParseArguments(raw string) map[string]any {
	args := map[string]any{}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return args
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil || args == nil {
		return map[string]any{}
	}
	return args
}

// EncodeArguments is the inverse of ParseArguments. Keys come out sorted,
// so equal arguments always encode identically.
func EncodeArguments(args map[string]any) string {
	if len(args) == 0 {
		return "{}"
	}
	data, err := json.Marshal(args)
	if err != nil {
		return "{}"
	}
	return string(data)
}
