package mcp

import (
	"context"

	"github.com/codefionn/krim/internal/llm"
)

// Tool exposes one remote MCP tool through the tools.Tool interface. The
// exposed name may differ from the remote one when names collide.
type Tool struct {
	server *Server
	name   string
	remote RemoteTool
}

func NewTool(server *Server, exposedName string, remote RemoteTool) *Tool {
	return &Tool{server: server, name: exposedName, remote: remote}
}

func (t *Tool) Name() string        { return t.name }
func (t *Tool) RemoteName() string  { return t.remote.Name }
func (t *Tool) Server() string      { return t.server.Name() }
func (t *Tool) Description() string { return t.remote.Description }

// Schema passes the server's properties and required list through as-is.
func (t *Tool) Schema() llm.ToolSchema {
	props := t.remote.Properties
	if props == nil {
		props = map[string]any{}
	}
	required := t.remote.Required
	if required == nil {
		required = []string{}
	}
	return llm.ToolSchema{
		Name:        t.name,
		Description: t.remote.Description,
		InputSchema: llm.InputSchema{Type: "object", Properties: props, Required: required},
	}
}

func (t *Tool) Run(ctx context.Context, args map[string]any) (string, error) {
	return t.server.CallTool(ctx, t.remote.Name, args), nil
}
