package tools

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/codefionn/krim/internal/llm"
)

type stubTool struct {
	name string
	run  func(args map[string]any) (string, error)
}

func (s *stubTool) Name() string        { return s.name }
func (s *stubTool) Description() string { return "stub" }
func (s *stubTool) Schema() llm.ToolSchema {
	return BuildSchema(s.name, "stub", nil)
}
func (s *stubTool) Run(_ context.Context, args map[string]any) (string, error) {
	return s.run(args)
}

func TestBuildSchema_RequiredExcludesOptional(t *testing.T) {
	schema := BuildSchema("bash", "run", []Param{
		{Name: "command", Type: "string", Description: "cmd"},
		{Name: "timeout", Type: "integer", Description: "secs", Optional: true},
	})

	if schema.InputSchema.Type != "object" {
		t.Fatalf("expected object schema, got %q", schema.InputSchema.Type)
	}
	if len(schema.InputSchema.Required) != 1 || schema.InputSchema.Required[0] != "command" {
		t.Fatalf("expected required [command], got %v", schema.InputSchema.Required)
	}
	prop, ok := schema.InputSchema.Properties["timeout"].(map[string]any)
	if !ok {
		t.Fatal("expected timeout property")
	}
	if _, leaked := prop["optional"]; leaked {
		t.Fatal("optional flag must not appear in the schema")
	}
	if prop["type"] != "integer" {
		t.Fatalf("expected integer type, got %v", prop["type"])
	}
}

func TestRegistry_OrderAndLookup(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubTool{name: "b"})
	r.Register(&stubTool{name: "a"})
	r.Register(&stubTool{name: "b"})

	names := r.Names()
	if strings.Join(names, ",") != "b,a" {
		t.Fatalf("expected registration order b,a got %v", names)
	}
	if r.Get("missing") != nil {
		t.Fatal("expected nil for unknown tool")
	}
	schemas := r.Schemas()
	if len(schemas) != 2 || schemas[0].Name != "b" || schemas[1].Name != "a" {
		t.Fatalf("unexpected schemas %+v", schemas)
	}
}

func TestRegistry_ExecuteErrorBoundary(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubTool{name: "ok", run: func(args map[string]any) (string, error) {
		return "done " + GetStringParam(args, "x", "?"), nil
	}})
	r.Register(&stubTool{name: "fails", run: func(map[string]any) (string, error) {
		return "", errors.New("disk on fire")
	}})
	r.Register(&stubTool{name: "panics", run: func(map[string]any) (string, error) {
		panic("boom")
	}})

	ctx := context.Background()
	tests := []struct {
		call llm.ToolCall
		want string
	}{
		{llm.ToolCall{Name: "ok", Args: map[string]any{"x": "1"}}, "done 1"},
		{llm.ToolCall{Name: "ok"}, "done ?"},
		{llm.ToolCall{Name: "nope"}, "error: unknown tool 'nope'"},
		{llm.ToolCall{Name: "fails"}, "error: tool 'fails' raised: disk on fire"},
		{llm.ToolCall{Name: "panics"}, "error: tool 'panics' raised: boom"},
	}
	for _, tt := range tests {
		t.Run(tt.call.Name, func(t *testing.T) {
			if got := r.Execute(ctx, tt.call); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestGetIntParam(t *testing.T) {
	params := map[string]any{"f": float64(7), "i": 3, "s": "12", "bad": "x"}
	if GetIntParam(params, "f", 0) != 7 {
		t.Fatal("float64 not converted")
	}
	if GetIntParam(params, "i", 0) != 3 {
		t.Fatal("int not returned")
	}
	if GetIntParam(params, "s", 0) != 12 {
		t.Fatal("numeric string not parsed")
	}
	if GetIntParam(params, "bad", 5) != 5 {
		t.Fatal("expected default for non-numeric string")
	}
	if GetIntParam(params, "missing", 9) != 9 {
		t.Fatal("expected default for missing key")
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 10); got != "short" {
		t.Fatalf("expected unchanged text, got %q", got)
	}

	text := strings.Repeat("a", 60) + strings.Repeat("b", 40) + strings.Repeat("c", 100)
	got := Truncate(text, 100)
	want := strings.Repeat("a", 60) + "\n\n... [100 characters truncated] ...\n\n" + strings.Repeat("c", 40)
	if got != want {
		t.Fatalf("unexpected truncation:\n%q", got)
	}
}

func TestTruncate_ThousandsSeparator(t *testing.T) {
	got := Truncate(strings.Repeat("x", 31234), 0)
	if !strings.Contains(got, "... [1,234 characters truncated] ...") {
		t.Fatalf("expected grouped omitted count, got marker in %q", got[17990:18050])
	}
	if !strings.HasPrefix(got, strings.Repeat("x", 18000)+"\n\n...") {
		t.Fatal("expected 60% of the default budget as head")
	}
}

func TestGroupThousands(t *testing.T) {
	cases := map[int]string{0: "0", 999: "999", 1000: "1,000", 1234567: "1,234,567", -4500: "-4,500"}
	for in, want := range cases {
		if got := groupThousands(in); got != want {
			t.Errorf("groupThousands(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestIsLikelyBinaryFile(t *testing.T) {
	if !isLikelyBinaryFile("a.png", []byte("text")) {
		t.Fatal("expected binary extension to count")
	}
	if !isLikelyBinaryFile("a.dat", []byte{'a', 0, 'b'}) {
		t.Fatal("expected NUL byte to count")
	}
	if !isLikelyBinaryFile("a.txt", []byte{0xff, 0xfe, 'a'}) {
		t.Fatal("expected invalid UTF-8 to count")
	}
	if isLikelyBinaryFile("main.go", []byte("package main\n")) {
		t.Fatal("plain source is not binary")
	}
}

func TestNewDefaultRegistry(t *testing.T) {
	r := NewDefaultRegistry(Options{WorkDir: t.TempDir()})
	want := []string{ToolNameRead, ToolNameWrite, ToolNameEdit, ToolNameBash}
	if strings.Join(r.Names(), ",") != strings.Join(want, ",") {
		t.Fatalf("expected %v, got %v", want, r.Names())
	}
}
