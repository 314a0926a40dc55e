package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// OpenAIClient talks to the Chat Completions API and keeps history in the
// tool-message format.
type OpenAIClient struct {
	client openai.Client
	model  string
}

func NewOpenAIClient(apiKey, model string) (Client, error) {
	key := strings.TrimSpace(apiKey)
	if key == "" {
		return nil, fmt.Errorf("openai client requires an API key")
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultModels[ProviderOpenAI]
	}
	return &OpenAIClient{
		client: openai.NewClient(option.WithAPIKey(key)),
		model:  model,
	}, nil
}

func (c *OpenAIClient) ModelName() string  { return c.model }
func (c *OpenAIClient) Format() WireFormat { return FormatToolMessages }

func (c *OpenAIClient) Chat(ctx context.Context, messages []Message, tools []ToolSchema, onText StreamFunc) (*ModelResponse, error) {
	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(c.model),
		Messages: toOpenAIMessages(messages),
	}
	if len(tools) > 0 {
		params.Tools = toOpenAITools(tools)
	}

	stream := c.client.Chat.Completions.NewStreaming(ctx, params)
	if stream == nil {
		return nil, fmt.Errorf("openai stream failed: no stream returned")
	}
	defer stream.Close()

	acc := openai.ChatCompletionAccumulator{}
	for stream.Next() {
		chunk := stream.Current()
		acc.AddChunk(chunk)
		if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" && onText != nil {
			onText(chunk.Choices[0].Delta.Content)
		}
	}
	if err := stream.Err(); err != nil {
		return nil, wrapOpenAIError(err)
	}

	resp := &ModelResponse{}
	if len(acc.Choices) == 0 {
		return resp, nil
	}
	choice := acc.Choices[0]
	resp.Text = choice.Message.Content
	resp.Stop = string(choice.FinishReason)
	for _, tc := range choice.Message.ToolCalls {
		resp.ToolCalls = append(resp.ToolCalls, ToolCall{
			ID:   tc.ID,
			Name: tc.Function.Name,
			Args: ParseArguments(tc.Function.Arguments),
		})
	}
	resp.ToolCalls = NormalizeToolCallIDs(resp.ToolCalls)
	return resp, nil
}

func wrapOpenAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &APIError{Provider: ProviderOpenAI, StatusCode: apiErr.StatusCode, Err: err}
	}
	return fmt.Errorf("openai stream failed: %w", err)
}

// toOpenAIMessages converts a history of either shape. Block-shaped tool
// results are split into one tool message per result.
func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Text()))
		case RoleTool:
			out = append(out, openai.ToolMessage(m.Content, m.ToolCallID))
		case RoleAssistant:
			calls := ToolCallsOf(m)
			if len(calls) == 0 {
				out = append(out, openai.AssistantMessage(m.Text()))
				continue
			}
			assistant := openai.ChatCompletionAssistantMessageParam{}
			if text := m.Text(); text != "" {
				assistant.Content = openai.ChatCompletionAssistantMessageParamContentUnion{OfString: openai.String(text)}
			}
			for _, call := range calls {
				assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallParam{
					ID: call.ID,
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      call.Name,
						Arguments: EncodeArguments(call.Args),
					},
				})
			}
			out = append(out, openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant})
		default:
			if len(m.Blocks) == 0 {
				out = append(out, openai.UserMessage(m.Content))
				continue
			}
			var text []string
			for _, b := range m.Blocks {
				switch b.Type {
				case BlockToolResult:
					out = append(out, openai.ToolMessage(b.Content, b.ToolUseID))
				case BlockText:
					text = append(text, b.Text)
				}
			}
			if joined := strings.Join(text, "\n"); joined != "" {
				out = append(out, openai.UserMessage(joined))
			}
		}
	}
	return out
}

func toOpenAITools(tools []ToolSchema) []openai.ChatCompletionToolParam {
	out := make([]openai.ChatCompletionToolParam, 0, len(tools))
	for _, t := range tools {
		fn := shared.FunctionDefinitionParam{
			Name:       t.Name,
			Parameters: shared.FunctionParameters(t.parameters()),
		}
		if t.Description != "" {
			fn.Description = openai.String(t.Description)
		}
		out = append(out, openai.ChatCompletionToolParam{Function: fn})
	}
	return out
}
