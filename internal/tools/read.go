package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/codefionn/krim/internal/consts"
	"github.com/codefionn/krim/internal/fs"
	"github.com/codefionn/krim/internal/llm"
)

const ToolNameRead = "read"

// ReadTool returns numbered lines of a text file.
type ReadTool struct {
	fs fs.FileSystem
}

func NewReadTool(filesystem fs.FileSystem) *ReadTool {
	return &ReadTool{fs: filesystem}
}

func (t *ReadTool) Name() string { return ToolNameRead }

func (t *ReadTool) Description() string {
	return "Read a file with line numbers. Use offset and limit to page through large files."
}

func (t *ReadTool) Schema() llm.ToolSchema {
	return BuildSchema(t.Name(), t.Description(), []Param{
		{Name: "path", Type: "string", Description: "Path to the file"},
		{Name: "offset", Type: "integer", Description: "First line to read, 1-indexed (default 1)", Optional: true},
		{Name: "limit", Type: "integer", Description: fmt.Sprintf("Maximum number of lines (default %d)", consts.MaxLinesPerRead), Optional: true},
	})
}

func (t *ReadTool) Run(ctx context.Context, args map[string]any) (string, error) {
	path, msg := requireString(args, "path")
	if msg != "" {
		return msg, nil
	}
	offset := GetIntParam(args, "offset", 1)
	if offset < 1 {
		offset = 1
	}
	limit := GetIntParam(args, "limit", consts.MaxLinesPerRead)
	if limit < 1 {
		limit = consts.MaxLinesPerRead
	}

	info, err := t.fs.Stat(ctx, path)
	if err != nil {
		if fs.IsNotExist(err) {
			return fmt.Sprintf("error: %s not found", path), nil
		}
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir {
		return fmt.Sprintf("error: %s is a directory", path), nil
	}
	if info.Size > consts.MaxReadFileSize {
		return fmt.Sprintf("error: %s is too large (%dMB). use bash (head, tail, sed -n) to read portions.",
			path, info.Size/(1024*1024)), nil
	}

	data, err := t.fs.ReadFile(ctx, path)
	if err != nil {
		if fs.IsNotExist(err) {
			return fmt.Sprintf("error: %s not found", path), nil
		}
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	if isLikelyBinaryFile(path, data) {
		return fmt.Sprintf("error: %s is a binary file", path), nil
	}
	if len(data) == 0 {
		return "", nil
	}

	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	total := len(lines)
	if offset > total {
		return fmt.Sprintf("error: offset %d is past the end of %s (%d lines)", offset, path, total), nil
	}

	end := offset - 1 + limit
	if end > total {
		end = total
	}

	var b strings.Builder
	for i := offset - 1; i < end; i++ {
		if i > offset-1 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%4d\t%s", i+1, lines[i])
	}
	if end < total {
		fmt.Fprintf(&b, "\n... (%d more lines, %d total)", total-end, total)
	}
	return b.String(), nil
}
