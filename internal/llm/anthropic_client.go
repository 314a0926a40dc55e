package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"

	"github.com/codefionn/krim/internal/consts"
)

// AnthropicClient talks to the Messages API and keeps history in the
// block format.
type AnthropicClient struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

func NewAnthropicClient(apiKey, model string) (Client, error) {
	key := strings.TrimSpace(apiKey)
	if key == "" {
		return nil, fmt.Errorf("anthropic client requires an API key")
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultModels[ProviderClaude]
	}
	return &AnthropicClient{
		client:    anthropic.NewClient(option.WithAPIKey(key)),
		model:     model,
		maxTokens: consts.DefaultMaxTokens,
	}, nil
}

func (c *AnthropicClient) ModelName() string  { return c.model }
func (c *AnthropicClient) Format() WireFormat { return FormatBlocks }

func (c *AnthropicClient) Chat(ctx context.Context, messages []Message, tools []ToolSchema, onText StreamFunc) (*ModelResponse, error) {
	system, chat := toAnthropicMessages(messages)
	if len(chat) == 0 {
		return nil, fmt.Errorf("anthropic request requires at least one user or assistant message")
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages:  chat,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if len(tools) > 0 {
		params.Tools = toAnthropicTools(tools)
	}

	stream := c.client.Messages.NewStreaming(ctx, params)
	if stream == nil {
		return nil, fmt.Errorf("anthropic stream failed: no stream returned")
	}
	defer stream.Close()

	msg := anthropic.Message{}
	for stream.Next() {
		event := stream.Current()
		if err := msg.Accumulate(event); err != nil {
			return nil, fmt.Errorf("anthropic stream: %w", err)
		}
		delta, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent)
		if !ok {
			continue
		}
		if text, ok := delta.Delta.AsAny().(anthropic.TextDelta); ok && text.Text != "" && onText != nil {
			onText(text.Text)
		}
	}
	if err := stream.Err(); err != nil {
		return nil, wrapAnthropicError(err)
	}

	return fromAnthropicMessage(&msg), nil
}

func wrapAnthropicError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return &APIError{Provider: ProviderClaude, StatusCode: apiErr.StatusCode, Err: err}
	}
	return fmt.Errorf("anthropic stream failed: %w", err)
}

// toAnthropicMessages converts a history of either shape. Tool-message
// results become tool_result blocks, and consecutive results are merged
// into a single user turn.
func toAnthropicMessages(messages []Message) (string, []anthropic.MessageParam) {
	var system []string
	chat := make([]anthropic.MessageParam, 0, len(messages))

	appendUser := func(blocks []anthropic.ContentBlockParamUnion, mergeable bool) {
		if len(blocks) == 0 {
			return
		}
		if mergeable && len(chat) > 0 {
			last := &chat[len(chat)-1]
			if last.Role == anthropic.MessageParamRoleUser && isAnthropicToolResultTurn(*last) {
				last.Content = append(last.Content, blocks...)
				return
			}
		}
		chat = append(chat, anthropic.MessageParam{Role: anthropic.MessageParamRoleUser, Content: blocks})
	}

	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			if t := strings.TrimSpace(m.Text()); t != "" {
				system = append(system, t)
			}
		case RoleAssistant:
			var blocks []anthropic.ContentBlockParamUnion
			if text := m.Text(); text != "" {
				blocks = append(blocks, anthropic.NewTextBlock(text))
			}
			for _, call := range ToolCallsOf(m) {
				input := call.Args
				if input == nil {
					input = map[string]any{}
				}
				blocks = append(blocks, anthropic.NewToolUseBlock(call.ID, input, call.Name))
			}
			if len(blocks) > 0 {
				chat = append(chat, anthropic.MessageParam{Role: anthropic.MessageParamRoleAssistant, Content: blocks})
			}
		case RoleTool:
			appendUser([]anthropic.ContentBlockParamUnion{
				anthropic.NewToolResultBlock(m.ToolCallID, m.Content, false),
			}, true)
		default:
			if len(m.Blocks) == 0 {
				if m.Content != "" {
					appendUser([]anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(m.Content)}, false)
				}
				continue
			}
			var blocks []anthropic.ContentBlockParamUnion
			for _, b := range m.Blocks {
				switch b.Type {
				case BlockToolResult:
					blocks = append(blocks, anthropic.NewToolResultBlock(b.ToolUseID, b.Content, false))
				case BlockText:
					if b.Text != "" {
						blocks = append(blocks, anthropic.NewTextBlock(b.Text))
					}
				}
			}
			appendUser(blocks, false)
		}
	}
	return strings.Join(system, "\n\n"), chat
}

func isAnthropicToolResultTurn(m anthropic.MessageParam) bool {
	for _, b := range m.Content {
		if b.OfToolResult == nil {
			return false
		}
	}
	return len(m.Content) > 0
}

func toAnthropicTools(tools []ToolSchema) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		params := t.parameters()
		tool := &anthropic.ToolParam{
			Name: t.Name,
			InputSchema: anthropic.ToolInputSchemaParam{
				Type:       constant.Object("object"),
				Properties: params["properties"],
				Required:   params["required"].([]string),
			},
			Type: anthropic.ToolTypeCustom,
		}
		if t.Description != "" {
			tool.Description = anthropic.String(t.Description)
		}
		out = append(out, anthropic.ToolUnionParam{OfTool: tool})
	}
	return out
}

func fromAnthropicMessage(msg *anthropic.Message) *ModelResponse {
	resp := &ModelResponse{Stop: string(msg.StopReason)}
	var text []string
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			if block.Text != "" {
				text = append(text, block.Text)
			}
		case "tool_use":
			args := map[string]any{}
			if len(block.Input) > 0 {
				if err := json.Unmarshal(block.Input, &args); err != nil || args == nil {
					args = map[string]any{}
				}
			}
			resp.ToolCalls = append(resp.ToolCalls, ToolCall{ID: block.ID, Name: block.Name, Args: args})
		}
	}
	resp.Text = strings.Join(text, "")
	resp.ToolCalls = NormalizeToolCallIDs(resp.ToolCalls)
	return resp
}
