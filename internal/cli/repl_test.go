package cli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codefionn/krim/internal/orchestrator/loop"
	"github.com/codefionn/krim/internal/vcs"
)

type fakeAgent struct {
	runs      []string
	verbose   bool
	estimate  int
	budget    int
	compacted [2]int
	undo      *vcs.UndoResult
	undoErr   error
}

func (a *fakeAgent) Run(_ context.Context, input string) *loop.RunStats {
	a.runs = append(a.runs, input)
	stats := loop.NewRunStats()
	stats.Turns = 1
	stats.Outcome = loop.Done
	return stats
}

func (a *fakeAgent) TokenUsage() (int, int)   { return a.estimate, a.budget }
func (a *fakeAgent) ForceCompact() (int, int) { return a.compacted[0], a.compacted[1] }
func (a *fakeAgent) SetVerbose(v bool)        { a.verbose = v }
func (a *fakeAgent) Verbose() bool            { return a.verbose }
func (a *fakeAgent) Undo(context.Context) (*vcs.UndoResult, error) {
	return a.undo, a.undoErr
}

type staticSummary []string

func (s staticSummary) Summary() []string { return s }

func runREPL(t *testing.T, agent *fakeAgent, input string) string {
	t.Helper()
	var buf bytes.Buffer
	repl := NewREPL(bufio.NewReader(strings.NewReader(input)), NewRenderer(&buf, RendererOptions{}), agent, staticSummary{"provider: claude", "max_turns: 30"})
	require.NoError(t, repl.Loop(context.Background()))
	return buf.String()
}

func TestREPLRunsPromptsAndCommands(t *testing.T) {
	agent := &fakeAgent{estimate: 50, budget: 100}
	out := runREPL(t, agent, "hello\n\n/tokens\n/verbose\n/nope\n/path/to/file.go fix it\nexit\nnever\n")

	assert.Equal(t, []string{"hello", "/path/to/file.go fix it"}, agent.runs)
	assert.True(t, agent.verbose)
	assert.Contains(t, out, "context: ~50 / 100 tokens (50%)")
	assert.Contains(t, out, "verbose: on")
	assert.Contains(t, out, "unknown command: /nope (try /help)")
	assert.True(t, strings.HasSuffix(out, "bye\n"))
}

func TestREPLExitWords(t *testing.T) {
	for _, word := range []string{"exit", "quit", "q", "EXIT"} {
		agent := &fakeAgent{}
		out := runREPL(t, agent, word+"\nhello\n")
		assert.Empty(t, agent.runs, word)
		assert.Contains(t, out, "bye", word)
	}
}

func TestREPLEndOfInput(t *testing.T) {
	agent := &fakeAgent{}
	out := runREPL(t, agent, "last task")
	assert.Equal(t, []string{"last task"}, agent.runs)
	assert.Contains(t, out, "bye")

	agent = &fakeAgent{}
	out = runREPL(t, agent, "")
	assert.Empty(t, agent.runs)
	assert.Contains(t, out, "bye")
}

func TestCommandHelpAndConfig(t *testing.T) {
	out := runREPL(t, &fakeAgent{}, "/help\n/config\n")
	for name := range commands {
		assert.Contains(t, out, name)
	}
	assert.Contains(t, out, "  provider: claude")
	assert.Contains(t, out, "  max_turns: 30")
}

func TestCommandCompact(t *testing.T) {
	out := runREPL(t, &fakeAgent{compacted: [2]int{12, 8}}, "/compact\n")
	assert.Contains(t, out, "compacted: ~12 -> ~8 tokens")

	out = runREPL(t, &fakeAgent{compacted: [2]int{3, 3}}, "/compact\n")
	assert.Contains(t, out, "nothing to compact")
}

func TestCommandUndo(t *testing.T) {
	agent := &fakeAgent{undo: &vcs.UndoResult{
		Subject: "krim: fix parser",
		Files:   []vcs.FileStat{{Path: "parser.go", Added: 3, Deleted: 1}},
	}}
	out := runREPL(t, agent, "/undo\n")
	assert.Contains(t, out, "undid: krim: fix parser")
	assert.Contains(t, out, "  parser.go +3 -1")

	out = runREPL(t, &fakeAgent{undoErr: &vcs.ForeignCommitError{Subject: "manual change"}}, "/undo\n")
	assert.Contains(t, out, "refusing to undo: last commit is not a krim commit: manual change")

	out = runREPL(t, &fakeAgent{undoErr: vcs.ErrNotRepository}, "/undo\n")
	assert.Contains(t, out, "undo needs a git repository")

	out = runREPL(t, &fakeAgent{undoErr: errors.New("reset failed")}, "/undo\n")
	assert.Contains(t, out, "undo failed: reset failed")
}

func TestIsCommand(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"/help", true},
		{"/tokens now", true},
		{"/", false},
		{"/src/main.go has a bug", false},
		{"fix /help text", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isCommand(tt.input), tt.input)
	}
}
