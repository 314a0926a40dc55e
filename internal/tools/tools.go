// Package tools implements the tools the model can call and the registry
// that dispatches them.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/codefionn/krim/internal/llm"
	"github.com/codefionn/krim/internal/logger"
)

// Tool is implemented by built-in tools and by MCP proxies alike.
//
// Run returns the text the model sees. Expected failures (missing file,
// denied command) are reported in that text with an "error: " prefix; a
// returned error means the tool itself broke.
type Tool interface {
	Name() string
	Description() string
	Schema() llm.ToolSchema
	Run(ctx context.Context, args map[string]any) (string, error)
}

// Param declares one tool parameter.
type Param struct {
	Name        string
	Type        string
	Description string
	Optional    bool
}

// BuildSchema turns a parameter list into a tool schema. Every parameter
// not marked Optional is required.
func BuildSchema(name, description string, params []Param) llm.ToolSchema {
	props := make(map[string]any, len(params))
	required := make([]string, 0, len(params))
	for _, p := range params {
		props[p.Name] = map[string]any{
			"type":        p.Type,
			"description": p.Description,
		}
		if !p.Optional {
			required = append(required, p.Name)
		}
	}
	return llm.ToolSchema{
		Name:        name,
		Description: description,
		InputSchema: llm.InputSchema{Type: "object", Properties: props, Required: required},
	}
}

// Registry holds tools in registration order.
type Registry struct {
	mu    sync.RWMutex
	order []string
	tools map[string]Tool
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds t, replacing any tool of the same name in place.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := t.Name()
	if _, exists := r.tools[name]; !exists {
		r.order = append(r.order, name)
	}
	r.tools[name] = t
}

// Get returns the named tool or nil.
func (r *Registry) Get(name string) Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name]
}

// Names lists tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Schemas returns every tool schema in registration order, so repeated
// calls produce identical requests.
func (r *Registry) Schemas() []llm.ToolSchema {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]llm.ToolSchema, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name].Schema())
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Execute runs one call and always produces text for the model. Unknown
// tools, returned errors and panics become "error: ..." results.
func (r *Registry) Execute(ctx context.Context, call llm.ToolCall) (out string) {
	t := r.Get(call.Name)
	if t == nil {
		logger.Warn("tools: model called unknown tool %q", call.Name)
		return fmt.Sprintf("error: unknown tool '%s'", call.Name)
	}

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("tools: %s panicked: %v", call.Name, rec)
			out = fmt.Sprintf("error: tool '%s' raised: %v", call.Name, rec)
		}
	}()

	args := call.Args
	if args == nil {
		args = map[string]any{}
	}
	result, err := t.Run(ctx, args)
	if err != nil {
		logger.Warn("tools: %s failed: %v", call.Name, err)
		return fmt.Sprintf("error: tool '%s' raised: %v", call.Name, err)
	}
	return result
}

// MissingParams lists required parameters absent from args, sorted.
func MissingParams(schema llm.ToolSchema, args map[string]any) []string {
	var missing []string
	for _, name := range schema.InputSchema.Required {
		if _, ok := args[name]; !ok {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}

func GetStringParam(params map[string]any, key string, defaultVal string) string {
	if val, ok := params[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return defaultVal
}

func GetIntParam(params map[string]any, key string, defaultVal int) int {
	if val, ok := params[key]; ok {
		switch v := val.(type) {
		case int:
			return v
		case int64:
			return int(v)
		case float64:
			return int(v)
		case json.Number:
			if i, err := v.Int64(); err == nil {
				return int(i)
			}
		case string:
			var n int
			if _, err := fmt.Sscanf(strings.TrimSpace(v), "%d", &n); err == nil {
				return n
			}
		}
	}
	return defaultVal
}

// requireString fetches a required string parameter, reporting a missing
// or mistyped value the way the model will read it.
func requireString(params map[string]any, key string) (string, string) {
	val, ok := params[key]
	if !ok {
		return "", fmt.Sprintf("error: missing required parameter '%s'", key)
	}
	s, ok := val.(string)
	if !ok {
		return "", fmt.Sprintf("error: parameter '%s' must be a string", key)
	}
	return s, ""
}
