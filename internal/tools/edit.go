package tools

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/codefionn/krim/internal/fs"
	"github.com/codefionn/krim/internal/llm"
	"github.com/codefionn/krim/internal/logger"
)

const ToolNameEdit = "edit"

// EditTool replaces one occurrence of a string in a file. When the text
// does not match exactly it retries with whitespace-normalized and then
// fuzzy line matching.
type EditTool struct {
	fs        fs.FileSystem
	onChanged func(string)
}

func NewEditTool(filesystem fs.FileSystem, onChanged func(string)) *EditTool {
	return &EditTool{fs: filesystem, onChanged: onChanged}
}

func (t *EditTool) Name() string { return ToolNameEdit }

func (t *EditTool) Description() string {
	return "Replace a unique occurrence of old with new in a file. " +
		"Falls back to whitespace-insensitive and fuzzy matching when the exact text is not found."
}

func (t *EditTool) Schema() llm.ToolSchema {
	return BuildSchema(t.Name(), t.Description(), []Param{
		{Name: "path", Type: "string", Description: "Path to the file"},
		{Name: "old", Type: "string", Description: "Text to replace; include enough context to be unique"},
		{Name: "new", Type: "string", Description: "Replacement text"},
	})
}

func (t *EditTool) Run(ctx context.Context, args map[string]any) (string, error) {
	path, msg := requireString(args, "path")
	if msg != "" {
		return msg, nil
	}
	oldText, msg := requireString(args, "old")
	if msg != "" {
		return msg, nil
	}
	newText, msg := requireString(args, "new")
	if msg != "" {
		return msg, nil
	}
	if oldText == "" {
		return "error: old string must not be empty", nil
	}

	data, err := t.fs.ReadFile(ctx, path)
	if err != nil {
		if fs.IsNotExist(err) {
			return fmt.Sprintf("error: %s not found", path), nil
		}
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	content := string(data)

	updated, label, errMsg := applyEdit(content, oldText, newText, path)
	if errMsg != "" {
		return errMsg, nil
	}
	if err := t.fs.WriteFile(ctx, path, []byte(updated)); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	notify(t.onChanged, path)
	logger.Debug("edit: %s (%s)", path, label)
	return fmt.Sprintf("edited %s (%s)", path, label), nil
}

// applyEdit runs the match cascade. It returns the new content and the
// match label, or an error message for the model.
func applyEdit(content, oldText, newText, path string) (string, string, string) {
	switch count := strings.Count(content, oldText); {
	case count == 1:
		return strings.Replace(content, oldText, newText, 1), "exact match", ""
	case count > 1:
		return "", "", uniqueError(count)
	}

	hay := splitLines(content)
	needle := needleLines(oldText)

	switch matches := findWhitespaceMatches(hay, needle); {
	case len(matches) == 1:
		return spliceLines(hay, matches[0], newText), "whitespace-normalized match", ""
	case len(matches) > 1:
		return "", "", uniqueError(len(matches))
	}

	if m, ok := findFuzzyMatch(hay, needle); ok {
		pct := int(math.Floor(m.similarity * 100))
		return spliceLines(hay, m, newText), fmt.Sprintf("fuzzy match, %d%% similar", pct), ""
	}

	return "", "", fmt.Sprintf("error: old string not found in %s. read the file and copy the exact text to replace.", path)
}

func uniqueError(count int) string {
	return fmt.Sprintf("error: old string found %d times, must be unique. include more surrounding lines.", count)
}
