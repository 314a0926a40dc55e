package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiClient talks to the Gemini API. History is kept in the block
// format; results are sent back as function responses.
type GeminiClient struct {
	client *genai.Client
	model  string
}

func NewGeminiClient(ctx context.Context, apiKey, model string) (Client, error) {
	key := strings.TrimSpace(apiKey)
	if key == "" {
		return nil, fmt.Errorf("gemini client requires an API key")
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultModels[ProviderGemini]
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiClient{client: client, model: model}, nil
}

func (c *GeminiClient) ModelName() string  { return c.model }
func (c *GeminiClient) Format() WireFormat { return FormatBlocks }

func (c *GeminiClient) Chat(ctx context.Context, messages []Message, tools []ToolSchema, onText StreamFunc) (*ModelResponse, error) {
	system, contents := toGenAIContents(messages)
	if len(contents) == 0 {
		return nil, fmt.Errorf("gemini request requires at least one user or assistant message")
	}

	cfg := &genai.GenerateContentConfig{}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if len(tools) > 0 {
		cfg.Tools = toGenAITools(tools)
		cfg.ToolConfig = &genai.ToolConfig{
			FunctionCallingConfig: &genai.FunctionCallingConfig{Mode: genai.FunctionCallingConfigModeAuto},
		}
	}

	resp := &ModelResponse{}
	var text strings.Builder
	for result, err := range c.client.Models.GenerateContentStream(ctx, c.model, contents, cfg) {
		if err != nil {
			return nil, wrapGenAIError(err)
		}
		if result == nil || len(result.Candidates) == 0 {
			continue
		}
		cand := result.Candidates[0]
		if cand.FinishReason != "" {
			resp.Stop = string(cand.FinishReason)
		}
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part == nil || part.Thought {
				continue
			}
			if part.FunctionCall != nil {
				args := part.FunctionCall.Args
				if args == nil {
					args = map[string]any{}
				}
				resp.ToolCalls = append(resp.ToolCalls, ToolCall{ID: part.FunctionCall.ID, Name: part.FunctionCall.Name, Args: args})
				continue
			}
			if part.Text != "" {
				text.WriteString(part.Text)
				if onText != nil {
					onText(part.Text)
				}
			}
		}
	}
	resp.Text = text.String()
	resp.ToolCalls = NormalizeToolCallIDs(resp.ToolCalls)
	return resp, nil
}

func wrapGenAIError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &APIError{Provider: ProviderGemini, StatusCode: apiErr.Code, Err: err}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &APIError{Provider: ProviderGemini, StatusCode: apiErrPtr.Code, Err: err}
	}
	return fmt.Errorf("gemini stream failed: %w", err)
}

func toGenAIContents(messages []Message) (string, []*genai.Content) {
	names := toolNamesByID(messages)
	var system []string
	contents := make([]*genai.Content, 0, len(messages))

	result := func(id, name, output string) *genai.Part {
		if name == "" {
			name = names[id]
		}
		part := genai.NewPartFromFunctionResponse(name, map[string]any{"output": output})
		part.FunctionResponse.ID = id
		return part
	}

	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			if t := strings.TrimSpace(m.Text()); t != "" {
				system = append(system, t)
			}
		case RoleAssistant:
			var parts []*genai.Part
			if t := m.Text(); t != "" {
				parts = append(parts, genai.NewPartFromText(t))
			}
			for _, call := range ToolCallsOf(m) {
				part := genai.NewPartFromFunctionCall(call.Name, call.Args)
				part.FunctionCall.ID = call.ID
				parts = append(parts, part)
			}
			if len(parts) > 0 {
				contents = append(contents, genai.NewContentFromParts(parts, genai.RoleModel))
			}
		case RoleTool:
			part := result(m.ToolCallID, m.Name, m.Content)
			if n := len(contents); n > 0 && contents[n-1].Role == string(genai.RoleUser) && isFunctionResponseContent(contents[n-1]) {
				contents[n-1].Parts = append(contents[n-1].Parts, part)
				continue
			}
			contents = append(contents, genai.NewContentFromParts([]*genai.Part{part}, genai.RoleUser))
		default:
			if len(m.Blocks) == 0 {
				if m.Content != "" {
					contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
				}
				continue
			}
			var parts []*genai.Part
			for _, b := range m.Blocks {
				switch b.Type {
				case BlockToolResult:
					parts = append(parts, result(b.ToolUseID, b.Name, b.Content))
				case BlockText:
					if b.Text != "" {
						parts = append(parts, genai.NewPartFromText(b.Text))
					}
				}
			}
			if len(parts) > 0 {
				contents = append(contents, genai.NewContentFromParts(parts, genai.RoleUser))
			}
		}
	}
	return strings.Join(system, "\n\n"), contents
}

func isFunctionResponseContent(c *genai.Content) bool {
	for _, p := range c.Parts {
		if p.FunctionResponse == nil {
			return false
		}
	}
	return len(c.Parts) > 0
}

func toGenAITools(tools []ToolSchema) []*genai.Tool {
	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:                 t.Name,
			Description:          t.Description,
			ParametersJsonSchema: t.parameters(),
		})
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}
