package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/codefionn/krim/internal/fs"
	"github.com/codefionn/krim/internal/llm"
)

const ToolNameWrite = "write"

// WriteTool creates or overwrites a file.
type WriteTool struct {
	fs        fs.FileSystem
	onChanged func(string)
}

func NewWriteTool(filesystem fs.FileSystem, onChanged func(string)) *WriteTool {
	return &WriteTool{fs: filesystem, onChanged: onChanged}
}

func (t *WriteTool) Name() string { return ToolNameWrite }

func (t *WriteTool) Description() string {
	return "Write content to a file, creating parent directories as needed. Overwrites existing files."
}

func (t *WriteTool) Schema() llm.ToolSchema {
	return BuildSchema(t.Name(), t.Description(), []Param{
		{Name: "path", Type: "string", Description: "Path to the file"},
		{Name: "content", Type: "string", Description: "Full file content"},
	})
}

func (t *WriteTool) Run(ctx context.Context, args map[string]any) (string, error) {
	path, msg := requireString(args, "path")
	if msg != "" {
		return msg, nil
	}
	content, msg := requireString(args, "content")
	if msg != "" {
		return msg, nil
	}

	if err := t.fs.WriteFile(ctx, path, []byte(content)); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	notify(t.onChanged, path)
	return fmt.Sprintf("wrote %s (%d lines)", path, countLines(content)), nil
}

// countLines counts newlines plus one for an unterminated last line.
func countLines(s string) int {
	n := strings.Count(s, "\n")
	if s != "" && !strings.HasSuffix(s, "\n") {
		n++
	}
	return n
}
