package loop

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/codefionn/krim/internal/llm"
)

const (
	previewLines     = 15
	argsPreviewRunes = 80
)

// describeCall renders the one-line announcement of a tool call.
func describeCall(call llm.ToolCall) string {
	switch call.Name {
	case "bash":
		return fmt.Sprintf("%s  `%v`", call.Name, argOrEmpty(call.Args, "command"))
	case "read", "write", "edit":
		return fmt.Sprintf("%s  %v", call.Name, argOrEmpty(call.Args, "path"))
	}
	data, err := json.Marshal(call.Args)
	if err != nil {
		return call.Name
	}
	runes := []rune(string(data))
	if len(runes) > argsPreviewRunes {
		runes = runes[:argsPreviewRunes]
	}
	return call.Name + "  " + string(runes)
}

func argOrEmpty(args map[string]any, key string) any {
	if v, ok := args[key]; ok {
		return v
	}
	return ""
}

// previewResult keeps the first maxLines lines of a tool result.
func previewResult(result string, maxLines int) string {
	lines := strings.Split(result, "\n")
	if len(lines) <= maxLines {
		return result
	}
	return strings.Join(lines[:maxLines], "\n") + fmt.Sprintf("\n... (%d more lines)", len(lines)-maxLines)
}
