package llm

import (
	"reflect"
	"testing"
)

func sampleCalls() []ToolCall {
	return []ToolCall{
		{ID: "c1", Name: "read", Args: map[string]any{"path": "a.go"}},
		{ID: "c2", Name: "bash", Args: map[string]any{"command": "ls"}},
	}
}

func TestAssistantMessageBlocks(t *testing.T) {
	msg := FormatBlocks.AssistantMessage("looking", sampleCalls())
	if msg.Role != RoleAssistant || msg.Content != "" {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if len(msg.Blocks) != 3 || msg.Blocks[0].Type != BlockText || msg.Blocks[1].Type != BlockToolUse {
		t.Fatalf("unexpected blocks: %+v", msg.Blocks)
	}
	if msg.Blocks[2].ID != "c2" || msg.Blocks[2].Name != "bash" {
		t.Errorf("tool_use block lost identity: %+v", msg.Blocks[2])
	}

	noText := FormatBlocks.AssistantMessage("", sampleCalls())
	if len(noText.Blocks) != 2 || noText.Blocks[0].Type != BlockToolUse {
		t.Errorf("empty text should not produce a text block: %+v", noText.Blocks)
	}
}

func TestAssistantMessageToolMessages(t *testing.T) {
	msg := FormatToolMessages.AssistantMessage("", sampleCalls())
	if msg.Content != "" || len(msg.Blocks) != 0 {
		t.Errorf("tool-message assistant should have no content/blocks: %+v", msg)
	}
	if len(msg.ToolCalls) != 2 {
		t.Fatalf("expected 2 tool calls, got %d", len(msg.ToolCalls))
	}
	tc := msg.ToolCalls[0]
	if tc.ID != "c1" || tc.Type != "function" || tc.Function.Name != "read" || tc.Function.Arguments != `{"path":"a.go"}` {
		t.Errorf("unexpected wire call: %+v", tc)
	}
}

func TestAssistantMessagePlainInBothFormats(t *testing.T) {
	for _, f := range []WireFormat{FormatBlocks, FormatToolMessages} {
		msg := f.AssistantMessage("done", nil)
		want := Message{Role: RoleAssistant, Content: "done"}
		if !reflect.DeepEqual(msg, want) {
			t.Errorf("%v: got %+v", f, msg)
		}
	}
}

func TestToolResultMessages(t *testing.T) {
	results := []ToolResult{{CallID: "c1", Name: "read", Output: "x"}, {CallID: "c2", Name: "bash", Output: "y"}}

	blocks := FormatBlocks.ToolResultMessages(results)
	if len(blocks) != 1 || blocks[0].Role != RoleUser || len(blocks[0].Blocks) != 2 {
		t.Fatalf("blocks format should produce one user message: %+v", blocks)
	}
	if blocks[0].Blocks[1].ToolUseID != "c2" || blocks[0].Blocks[1].Content != "y" {
		t.Errorf("unexpected result block: %+v", blocks[0].Blocks[1])
	}

	tools := FormatToolMessages.ToolResultMessages(results)
	if len(tools) != 2 {
		t.Fatalf("tool-message format should produce one message per result")
	}
	if tools[0].Role != RoleTool || tools[0].ToolCallID != "c1" || tools[0].Name != "read" || tools[0].Content != "x" {
		t.Errorf("unexpected tool message: %+v", tools[0])
	}

	if FormatBlocks.ToolResultMessages(nil) != nil {
		t.Errorf("no results should produce no messages")
	}
}

func TestToolCallsOfRoundTrip(t *testing.T) {
	for _, f := range []WireFormat{FormatBlocks, FormatToolMessages} {
		t.Run(f.String(), func(t *testing.T) {
			msg := f.AssistantMessage("x", sampleCalls())
			got := ToolCallsOf(msg)
			if !reflect.DeepEqual(got, sampleCalls()) {
				t.Errorf("ToolCallsOf = %+v", got)
			}
			if !HasToolCalls(msg) {
				t.Errorf("HasToolCalls should be true")
			}
		})
	}
	if ToolCallsOf(UserMessage("hi")) != nil {
		t.Errorf("user message has no tool calls")
	}
}

func TestIsToolResult(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want bool
	}{
		{"plain user", UserMessage("hi"), false},
		{"tool role", Message{Role: RoleTool, ToolCallID: "1"}, true},
		{"result blocks", FormatBlocks.ToolResultMessages([]ToolResult{{CallID: "1"}})[0], true},
		{"assistant", Message{Role: RoleAssistant, Content: "x"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsToolResult(tt.msg); got != tt.want {
				t.Errorf("IsToolResult = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResultIDs(t *testing.T) {
	msgs := FormatBlocks.ToolResultMessages([]ToolResult{{CallID: "a"}, {CallID: "b"}})
	if got := ResultIDs(msgs[0]); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("ResultIDs = %v", got)
	}
	if got := ResultIDs(Message{Role: RoleTool, ToolCallID: "z"}); !reflect.DeepEqual(got, []string{"z"}) {
		t.Errorf("ResultIDs = %v", got)
	}
}

func TestParseArguments(t *testing.T) {
	if got := ParseArguments(""); len(got) != 0 {
		t.Errorf("empty -> %v", got)
	}
	if got := ParseArguments("not json"); len(got) != 0 {
		t.Errorf("malformed -> %v", got)
	}
	if got := ParseArguments("null"); got == nil || len(got) != 0 {
		t.Errorf("null -> %v", got)
	}
	got := ParseArguments(`{"b":1,"a":"x"}`)
	if got["a"] != "x" || got["b"] != float64(1) {
		t.Errorf("parsed -> %v", got)
	}
	if enc := EncodeArguments(got); enc != `{"a":"x","b":1}` {
		t.Errorf("EncodeArguments not canonical: %s", enc)
	}
}

func TestMessageCloneIsDeep(t *testing.T) {
	orig := FormatBlocks.AssistantMessage("t", sampleCalls())
	c := orig.Clone()
	c.Blocks[1].Input["path"] = "changed"
	c.Blocks[0].Text = "changed"
	if orig.Blocks[1].Input["path"] != "a.go" || orig.Blocks[0].Text != "t" {
		t.Errorf("clone shares state with original")
	}
}

func TestMessageText(t *testing.T) {
	m := Message{Role: RoleAssistant, Blocks: []Block{{Type: BlockText, Text: "a"}, {Type: BlockToolUse}, {Type: BlockText, Text: "b"}}}
	if m.Text() != "a\nb" {
		t.Errorf("Text() = %q", m.Text())
	}
}
