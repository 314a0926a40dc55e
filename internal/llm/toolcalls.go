package llm

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// NormalizeToolCallIDs ensures every tool call has a unique identifier.
// Some providers omit call IDs, which breaks result pairing on the next
// request.
func NormalizeToolCallIDs(calls []ToolCall) []ToolCall {
	seen := make(map[string]struct{}, len(calls))
	for i := range calls {
		id := strings.TrimSpace(calls[i].ID)
		if _, dup := seen[id]; dup {
			id = ""
		}
		if id == "" {
			if name := sanitizeToolName(calls[i].Name); name != "" {
				id = fmt.Sprintf("call_%s_%d", name, i+1)
			}
		}
		if _, dup := seen[id]; id == "" || dup {
			id = "call_" + strings.ReplaceAll(uuid.NewString(), "-", "")
		}
		seen[id] = struct{}{}
		calls[i].ID = id
		if calls[i].Args == nil {
			calls[i].Args = map[string]any{}
		}
	}
	return calls
}

func sanitizeToolName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return strings.Trim(b.String(), "_")
}
