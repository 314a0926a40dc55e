// Package session holds the conversation history of one agent session.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/codefionn/krim/internal/llm"
)

// Session is an in-memory conversation. Index 0 of the history is always
// the system message. Appended messages are never modified in place;
// compaction swaps in a rewritten history instead.
type Session struct {
	ID         string
	WorkingDir string
	CreatedAt  time.Time

	mu            sync.RWMutex
	messages      []llm.Message
	filesModified map[string]bool
	compactions   int
	updatedAt     time.Time
}

// NewSession starts a history with the given system prompt.
func NewSession(systemPrompt, workingDir string) *Session {
	now := time.Now()
	return &Session{
		ID:            uuid.NewString(),
		WorkingDir:    workingDir,
		CreatedAt:     now,
		messages:      []llm.Message{llm.SystemMessage(systemPrompt)},
		filesModified: make(map[string]bool),
		updatedAt:     now,
	}
}

// Append adds messages to the end of the history.
func (s *Session) Append(msgs ...llm.Message) {
	if len(msgs) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msgs...)
	s.updatedAt = time.Now()
}

// Messages returns a snapshot of the history.
func (s *Session) Messages() []llm.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]llm.Message(nil), s.messages...)
}

func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// Last returns the most recent message, if any.
func (s *Session) Last() (llm.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.messages) == 0 {
		return llm.Message{}, false
	}
	return s.messages[len(s.messages)-1], true
}

// SystemPrompt returns the text of message 0.
func (s *Session) SystemPrompt() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.messages) == 0 {
		return ""
	}
	return s.messages[0].Content
}

// SetSystemPrompt replaces message 0, e.g. after a skill is injected.
func (s *Session) SetSystemPrompt(prompt string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.messages) == 0 {
		s.messages = []llm.Message{llm.SystemMessage(prompt)}
		return
	}
	s.messages[0] = llm.SystemMessage(prompt)
	s.updatedAt = time.Now()
}

// Compact replaces the history with its compacted form when it exceeds the
// threshold share of maxTokens. It reports whether compaction ran.
func (s *Session) Compact(maxTokens int, threshold float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !NeedsCompaction(s.messages, maxTokens, threshold) {
		return false
	}
	_, _, changed := s.compactLocked(maxTokens)
	return changed
}

// ForceCompact compacts regardless of the threshold and returns the token
// estimate before and after.
func (s *Session) ForceCompact(maxTokens int) (before, after int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	before, after, _ = s.compactLocked(maxTokens)
	return before, after
}

// compactLocked replaces the history with its compacted form and counts a
// compaction only when messages were dropped or the estimate shrank.
func (s *Session) compactLocked(maxTokens int) (before, after int, changed bool) {
	before = EstimateMessagesTokens(s.messages)
	out := Compact(s.messages, maxTokens)
	after = EstimateMessagesTokens(out)
	if len(out) == len(s.messages) && after >= before {
		return before, before, false
	}
	s.messages = out
	s.compactions++
	s.updatedAt = time.Now()
	return before, after, true
}

// Compactions counts how often the history has been compacted.
func (s *Session) Compactions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.compactions
}

// TokenEstimate is the heuristic size of the current history.
func (s *Session) TokenEstimate() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return EstimateMessagesTokens(s.messages)
}

// Clear drops everything but the system message.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.messages) > 1 {
		s.messages = s.messages[:1:1]
	}
	s.filesModified = make(map[string]bool)
	s.updatedAt = time.Now()
}

func (s *Session) TrackFileModified(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filesModified[path] = true
}

func (s *Session) ModifiedFiles() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	files := make([]string, 0, len(s.filesModified))
	for f := range s.filesModified {
		files = append(files, f)
	}
	return files
}

func (s *Session) UpdatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updatedAt
}
