package loop

// RunStats summarizes one Run.
type RunStats struct {
	Turns         int
	ToolCalls     int
	ToolCallNames map[string]int
	Compactions   int
	Outcome       IterationResult
}

func NewRunStats() *RunStats {
	return &RunStats{ToolCallNames: make(map[string]int)}
}

// RecordToolCall counts one executed call.
func (s *RunStats) RecordToolCall(name string) {
	if s.ToolCallNames == nil {
		s.ToolCallNames = make(map[string]int)
	}
	s.ToolCalls++
	s.ToolCallNames[name]++
}
