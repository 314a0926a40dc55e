package llm

import "strings"

// Role identifies who authored a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// BlockType tags a content block.
type BlockType string

const (
	BlockText       BlockType = "text"
	BlockToolUse    BlockType = "tool_use"
	BlockToolResult BlockType = "tool_result"
)

// Block is one typed piece of a block-shaped message. Which fields are set
// depends on Type: text uses Text; tool_use uses ID, Name and Input;
// tool_result uses ToolUseID and Content (Name is kept when known, some
// providers need it to pair results with calls).
type Block struct {
	Type      BlockType      `json:"type"`
	Text      string         `json:"text,omitempty"`
	ID        string         `json:"id,omitempty"`
	Name      string         `json:"name,omitempty"`
	Input     map[string]any `json:"input,omitempty"`
	ToolUseID string         `json:"tool_use_id,omitempty"`
	Content   string         `json:"content,omitempty"`
}

// WireFunction is the function part of a tool-message-shaped tool call.
type WireFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// WireToolCall is a tool call as carried by assistant messages in the
// tool-message shape. Arguments stay a JSON string, exactly as sent.
type WireToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function WireFunction `json:"function"`
}

// Message is the single in-memory representation of a conversation entry.
// A message holds either plain Content or Blocks. Assistant messages in the
// tool-message shape also carry ToolCalls, and tool messages carry
// ToolCallID and Name.
type Message struct {
	Role       Role           `json:"role"`
	Content    string         `json:"content,omitempty"`
	Blocks     []Block        `json:"blocks,omitempty"`
	ToolCalls  []WireToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	Name       string         `json:"name,omitempty"`
}

func SystemMessage(text string) Message { return Message{Role: RoleSystem, Content: text} }
func UserMessage(text string) Message   { return Message{Role: RoleUser, Content: text} }

// Text returns the human-readable text of a message: plain content, or the
// concatenated text blocks.
func (m Message) Text() string {
	if len(m.Blocks) == 0 {
		return m.Content
	}
	var parts []string
	for _, b := range m.Blocks {
		if b.Type == BlockText && b.Text != "" {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// Clone returns a deep copy, so compaction can rewrite copies without
// touching messages already in a history.
func (m Message) Clone() Message {
	out := m
	if m.Blocks != nil {
		out.Blocks = make([]Block, len(m.Blocks))
		for i, b := range m.Blocks {
			out.Blocks[i] = b
			if b.Input != nil {
				out.Blocks[i].Input = cloneArgs(b.Input)
			}
		}
	}
	if m.ToolCalls != nil {
		out.ToolCalls = append([]WireToolCall(nil), m.ToolCalls...)
	}
	return out
}

// ToolCall is a canonical request from the model to run a tool.
type ToolCall struct {
	ID   string
	Name string
	Args map[string]any
}

// ToolResult is the output of one executed tool call.
type ToolResult struct {
	CallID string
	Name   string
	Output string
}

// ModelResponse is what a provider returned for one model call.
type ModelResponse struct {
	Text      string
	ToolCalls []ToolCall
	Stop      string
}

func cloneArgs(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
