package logger

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"DEBUG", LevelDebug},
		{"info", LevelInfo},
		{"", LevelInfo},
		{"warning", LevelWarn},
		{" error ", LevelError},
		{"off", LevelNone},
		{"bogus", LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(LevelWarn, &buf)

	l.Debug("hidden %d", 1)
	l.Info("hidden %d", 2)
	l.Warn("shown %d", 3)
	l.Error("shown %d", 4)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("below-level lines were written: %q", out)
	}
	if !strings.Contains(out, "[WARN] shown 3") || !strings.Contains(out, "[ERROR] shown 4") {
		t.Errorf("missing expected lines: %q", out)
	}
}

func TestWithPrefixSharesSink(t *testing.T) {
	var buf bytes.Buffer
	root := New(LevelDebug, &buf)
	child := root.WithPrefix("mcp").WithPrefix("fs")

	child.Info("started")
	if !strings.Contains(buf.String(), "[mcp:fs] started") {
		t.Fatalf("prefix missing: %q", buf.String())
	}

	root.SetLevel(LevelError)
	child.Info("dropped")
	if strings.Contains(buf.String(), "dropped") {
		t.Errorf("level change on parent should apply to derived loggers")
	}
}

func TestOpenWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "krim.log")
	l, err := Open(LevelInfo, path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	l.Info("hello %s", "file")
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	// writes after close are discarded rather than failing
	l.Error("after close")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), "hello file") {
		t.Errorf("log file content = %q", data)
	}
	if strings.Contains(string(data), "after close") {
		t.Errorf("write after close reached the file")
	}
}

func TestGlobalBeforeInitDiscards(t *testing.T) {
	Debug("nothing to see")
	if Global().GetLevel() != LevelNone && globalLogger == nil {
		t.Errorf("uninitialised global logger should be disabled")
	}
}

func TestSlogHandler(t *testing.T) {
	var buf bytes.Buffer
	l := New(LevelInfo, &buf)
	s := slog.New(NewSlogHandler(l)).With("server", "fs").WithGroup("req")

	s.Debug("invisible")
	s.Info("call", "id", 7, slog.Group("tool", "name", "read"))

	out := buf.String()
	if strings.Contains(out, "invisible") {
		t.Errorf("debug record should be filtered: %q", out)
	}
	for _, want := range []string{"[INFO] call", "server=fs", "req.id=7", "req.tool.name=read"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}
