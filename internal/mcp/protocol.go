package mcp

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	ProtocolVersion = "2024-11-05"
	ClientName      = "krim"
)

var (
	// ErrTimeout means no matching response arrived in time. The server
	// stays usable.
	ErrTimeout = errors.New("mcp: request timed out")
	// ErrServerClosed means the server's stdout ended.
	ErrServerClosed = errors.New("mcp: server closed the connection")
)

// RPCError is a JSON-RPC error envelope returned by the server.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("%d %s", e.Code, e.Message)
}

type request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      *int64 `json:"id,omitempty"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type response struct {
	ID     json.RawMessage `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

// matches reports whether the response id equals id. Servers that echo
// the id as a string are accepted too.
func (r *response) matches(id int64) bool {
	raw := strings.TrimSpace(string(r.ID))
	if raw == "" || raw == "null" {
		return false
	}
	want := strconv.FormatInt(id, 10)
	return raw == want || raw == strconv.Quote(want)
}

type clientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type initializeParams struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    map[string]any `json:"capabilities"`
	ClientInfo      clientInfo     `json:"clientInfo"`
}

// RemoteTool is a tool as advertised by tools/list.
type RemoteTool struct {
	Name        string
	Description string
	Properties  map[string]any
	Required    []string
}

type listToolsResult struct {
	Tools []struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		InputSchema struct {
			Properties map[string]any `json:"properties"`
			Required   []string       `json:"required"`
		} `json:"inputSchema"`
	} `json:"tools"`
}

type callToolParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

type contentBlock map[string]any

type callToolResult struct {
	Content []contentBlock `json:"content"`
	IsError bool           `json:"isError"`
}

// renderContent joins text blocks with newlines; other blocks are
// serialized as JSON.
func renderContent(blocks []contentBlock) string {
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		if b["type"] == "text" {
			if text, ok := b["text"].(string); ok {
				parts = append(parts, text)
				continue
			}
		}
		data, err := json.Marshal(b)
		if err != nil {
			continue
		}
		parts = append(parts, string(data))
	}
	return strings.Join(parts, "\n")
}
