package stringsearch

import (
	"sort"
	"strings"
)

// ChunkedMatcher indexes every pattern by its fixed-size chunks. A text is
// scanned chunk by chunk and only patterns sharing a chunk with the text are
// verified with a full substring check. Patterns shorter than the chunk size
// are verified directly. Matching is case-insensitive.
type ChunkedMatcher struct {
	chunkSize int
	patterns  []string
	lowered   []string
	index     map[string][]int
	short     []int
}

func NewChunkedMatcher(patterns []string, chunkSize int) *ChunkedMatcher {
	if chunkSize <= 0 {
		chunkSize = 3
	}
	m := &ChunkedMatcher{
		chunkSize: chunkSize,
		patterns:  append([]string(nil), patterns...),
		lowered:   make([]string, len(patterns)),
		index:     make(map[string][]int),
	}
	for i, p := range m.patterns {
		lp := strings.ToLower(p)
		m.lowered[i] = lp
		if lp == "" {
			continue
		}
		if len(lp) < chunkSize {
			m.short = append(m.short, i)
			continue
		}
		// the first chunk is enough: any occurrence of the pattern makes the
		// text contain that chunk too
		first := lp[:chunkSize]
		m.index[first] = append(m.index[first], i)
	}
	return m
}

// MatchString returns the indices of all patterns occurring in text, sorted.
func (m *ChunkedMatcher) MatchString(text string) []int {
	lt := strings.ToLower(text)
	seen := make(map[int]struct{})
	var out []int

	check := func(i int) {
		if _, ok := seen[i]; ok {
			return
		}
		seen[i] = struct{}{}
		if strings.Contains(lt, m.lowered[i]) {
			out = append(out, i)
		}
	}

	for _, i := range m.short {
		check(i)
	}
	for pos := 0; pos+m.chunkSize <= len(lt); pos++ {
		for _, i := range m.index[lt[pos:pos+m.chunkSize]] {
			check(i)
		}
	}
	sort.Ints(out)
	return out
}

// FindAll returns the original spelling of every matching pattern.
func (m *ChunkedMatcher) FindAll(text string) []string {
	var out []string
	for _, i := range m.MatchString(text) {
		out = append(out, m.patterns[i])
	}
	return out
}

func (m *ChunkedMatcher) Contains(text string) bool {
	return len(m.MatchString(text)) > 0
}

func (m *ChunkedMatcher) Patterns() []string {
	return append([]string(nil), m.patterns...)
}
