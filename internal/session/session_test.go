package session

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codefionn/krim/internal/llm"
)

func TestNewSession(t *testing.T) {
	s := NewSession("be helpful", "/tmp/project")
	require.NotEmpty(t, s.ID)
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, "be helpful", s.SystemPrompt())
	assert.NotEqual(t, s.ID, NewSession("x", "").ID)
}

func TestAppendAndSnapshot(t *testing.T) {
	s := NewSession("sys", "")
	s.Append(llm.UserMessage("a"), llm.Message{Role: llm.RoleAssistant, Content: "b"})

	snap := s.Messages()
	require.Len(t, snap, 3)
	snap[1] = llm.UserMessage("mutated")
	assert.Equal(t, "a", s.Messages()[1].Content, "snapshot is a copy")

	last, ok := s.Last()
	require.True(t, ok)
	assert.Equal(t, "b", last.Content)
}

func TestSetSystemPromptAndClear(t *testing.T) {
	s := NewSession("sys", "")
	s.Append(llm.UserMessage("a"))
	s.TrackFileModified("main.go")
	s.SetSystemPrompt("sys\n\n# Skill: review")

	assert.Equal(t, "sys\n\n# Skill: review", s.SystemPrompt())
	assert.Equal(t, []string{"main.go"}, s.ModifiedFiles())

	s.Clear()
	assert.Equal(t, 1, s.Len())
	assert.Empty(t, s.ModifiedFiles())
	assert.Equal(t, "sys\n\n# Skill: review", s.SystemPrompt())
}

func TestSessionCompact(t *testing.T) {
	s := NewSession("sys", "")
	for _, m := range history(llm.FormatBlocks, 6, strings.Repeat("x", 3000))[1:] {
		s.Append(m)
	}
	budget := s.TokenEstimate()

	assert.False(t, s.Compact(budget*2, 0.75), "under threshold")
	assert.Equal(t, 0, s.Compactions())

	assert.True(t, s.Compact(budget, 0.75))
	assert.Equal(t, 1, s.Compactions())
	assert.Less(t, s.TokenEstimate(), budget)

	before, after := s.ForceCompact(budget)
	assert.Equal(t, before, after, "already under the target")
	assert.Equal(t, 1, s.Compactions())
}

func TestSessionCompact_NothingToDropIsNotCounted(t *testing.T) {
	s := NewSession("sys", "")
	s.Append(llm.UserMessage(strings.Repeat("x", 9000)))
	budget := s.TokenEstimate() / 2

	assert.False(t, s.Compact(budget, 0.75), "a lone huge message cannot be compacted")
	assert.False(t, s.Compact(budget, 0.75))
	assert.Equal(t, 0, s.Compactions())
	assert.Equal(t, 2, s.Len())

	before, after := s.ForceCompact(budget)
	assert.Equal(t, before, after)
	assert.Equal(t, 0, s.Compactions())
}
