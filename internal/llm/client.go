package llm

import (
	"context"
	"fmt"
	"strings"
)

// StreamFunc receives text chunks as the model produces them.
type StreamFunc func(chunk string)

// Client is the provider boundary: one streamed model call over the
// canonical history.
type Client interface {
	// Chat sends the conversation and the available tools. An empty tools
	// slice disables tool use for this call.
	Chat(ctx context.Context, messages []Message, tools []ToolSchema, onText StreamFunc) (*ModelResponse, error)
	ModelName() string
	// Format is the message shape this provider's history must be kept in.
	Format() WireFormat
}

const (
	ProviderClaude = "claude"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// DefaultModels maps each provider to the model used when none is set.
var DefaultModels = map[string]string{
	ProviderClaude: "claude-sonnet-4-5-20250929",
	ProviderOpenAI: "gpt-4o",
	ProviderGemini: "gemini-2.5-pro",
}

// Providers lists the supported provider names.
func Providers() []string {
	return []string{ProviderClaude, ProviderOpenAI, ProviderGemini}
}

// NewClient builds the client for a provider name.
func NewClient(ctx context.Context, provider, model, apiKey string) (Client, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if strings.TrimSpace(model) == "" {
		model = DefaultModels[provider]
	}
	switch provider {
	case ProviderClaude:
		return NewAnthropicClient(apiKey, model)
	case ProviderOpenAI:
		return NewOpenAIClient(apiKey, model)
	case ProviderGemini:
		return NewGeminiClient(ctx, apiKey, model)
	default:
		return nil, fmt.Errorf("unknown provider: %s", provider)
	}
}

// toolNamesByID maps tool call IDs to tool names across a history, for
// providers that need the name on a result.
func toolNamesByID(messages []Message) map[string]string {
	names := make(map[string]string)
	for _, m := range messages {
		for _, c := range ToolCallsOf(m) {
			names[c.ID] = c.Name
		}
	}
	return names
}
