package loop

import (
	"sync"

	"github.com/codefionn/krim/internal/llm"
)

// State tracks one run: the turn counter and the repeated-call detector.
type State struct {
	mu sync.Mutex

	iteration     int
	maxIterations int

	detector            *CallDetector
	enableLoopDetection bool
}

// NewState creates the state for a fresh run.
func NewState(cfg *Config) *State {
	cfg = cfg.normalized()
	return &State{
		maxIterations:       cfg.MaxIterations,
		detector:            NewCallDetector(cfg.LoopWindow, cfg.LoopRepeats),
		enableLoopDetection: !cfg.DisableLoopDetection,
	}
}

// Iteration returns the number of turns started so far.
func (s *State) Iteration() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.iteration
}

// Increment starts a new turn and returns its 1-based number.
func (s *State) Increment() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.iteration++
	return s.iteration
}

func (s *State) MaxIterations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxIterations
}

// HasReachedLimit returns true if the maximum iteration limit has been reached
func (s *State) HasReachedLimit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.iteration >= s.maxIterations
}

// RecordToolCalls feeds a batch to the detector and reports a loop.
func (s *State) RecordToolCalls(calls []llm.ToolCall) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.enableLoopDetection {
		return false
	}
	return s.detector.Record(calls)
}

// ResetLoopDetection resets the loop detector state
func (s *State) ResetLoopDetection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detector.Reset()
}
