package llm

// InputSchema is the JSON-schema object describing a tool's parameters.
type InputSchema struct {
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
	Required   []string       `json:"required"`
}

// ToolSchema is the provider-neutral description of a tool.
type ToolSchema struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema InputSchema `json:"input_schema"`
}

// parameters renders the schema as a plain JSON-schema map.
func (s ToolSchema) parameters() map[string]any {
	props := s.InputSchema.Properties
	if props == nil {
		props = map[string]any{}
	}
	required := s.InputSchema.Required
	if required == nil {
		required = []string{}
	}
	typ := s.InputSchema.Type
	if typ == "" {
		typ = "object"
	}
	return map[string]any{
		"type":       typ,
		"properties": props,
		"required":   required,
	}
}
