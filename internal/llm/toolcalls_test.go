package llm

import (
	"strings"
	"testing"
)

func TestNormalizeToolCallIDs(t *testing.T) {
	calls := NormalizeToolCallIDs([]ToolCall{
		{ID: "keep", Name: "read"},
		{ID: "", Name: "mcp.fs/list"},
		{ID: "keep", Name: "bash"},
		{ID: "  ", Name: "???"},
	})

	if calls[0].ID != "keep" {
		t.Errorf("existing id changed: %q", calls[0].ID)
	}
	if calls[1].ID != "call_mcp_fs_list_2" {
		t.Errorf("generated id = %q", calls[1].ID)
	}
	if calls[2].ID == "keep" || !strings.HasPrefix(calls[2].ID, "call_bash_") {
		t.Errorf("duplicate id not replaced: %q", calls[2].ID)
	}
	if !strings.HasPrefix(calls[3].ID, "call_") || len(calls[3].ID) < 20 {
		t.Errorf("unnamed call should get a uuid-based id: %q", calls[3].ID)
	}
	for _, c := range calls {
		if c.Args == nil {
			t.Errorf("args should be non-nil for %s", c.ID)
		}
	}
}
