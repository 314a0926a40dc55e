package tools

import (
	"strings"
	"unicode"
)

// FuzzyThreshold is the similarity a fuzzy window must exceed.
const FuzzyThreshold = 0.8

// lineMatch is a window of whole lines [start, start+count).
type lineMatch struct {
	start, count int
	similarity   float64
}

// normalizeWhitespace collapses whitespace runs to one space and trims.
func normalizeWhitespace(s string) string {
	return strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " ")
}

func splitLines(s string) []string {
	return strings.Split(s, "\n")
}

// needleLines drops the empty element a trailing newline leaves behind.
func needleLines(s string) []string {
	lines := splitLines(s)
	if len(lines) > 1 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// findWhitespaceMatches returns every line window whose normalized text
// equals the normalized needle.
func findWhitespaceMatches(hay []string, needle []string) []lineMatch {
	target := normalizeWhitespace(strings.Join(needle, "\n"))
	if target == "" {
		return nil
	}
	n := len(needle)
	var out []lineMatch
	for i := 0; i+n <= len(hay); i++ {
		if normalizeWhitespace(strings.Join(hay[i:i+n], "\n")) == target {
			out = append(out, lineMatch{start: i, count: n, similarity: 1})
		}
	}
	return out
}

// findFuzzyMatch returns the most similar window of len(needle) lines. The
// first window wins ties.
func findFuzzyMatch(hay []string, needle []string) (lineMatch, bool) {
	n := len(needle)
	if n == 0 || n > len(hay) {
		return lineMatch{}, false
	}
	target := []rune(strings.Join(needle, "\n"))
	best := lineMatch{similarity: -1}
	for i := 0; i+n <= len(hay); i++ {
		candidate := []rune(strings.Join(hay[i:i+n], "\n"))
		if !lengthsCanReach(len(candidate), len(target), FuzzyThreshold) {
			continue
		}
		if sim := similarity(candidate, target); sim > best.similarity {
			best = lineMatch{start: i, count: n, similarity: sim}
		}
	}
	if best.similarity <= FuzzyThreshold {
		return lineMatch{}, false
	}
	return best, true
}

// lengthsCanReach reports whether two strings of these lengths could still
// reach the threshold; the length gap alone bounds the distance.
func lengthsCanReach(a, b int, threshold float64) bool {
	longest := max(a, b)
	if longest == 0 {
		return true
	}
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return float64(longest-diff)/float64(longest) > threshold
}

// similarity is 1 - levenshtein(a, b) / max(len(a), len(b)).
func similarity(a, b []rune) float64 {
	longest := max(len(a), len(b))
	if longest == 0 {
		return 1
	}
	return float64(longest-levenshtein(a, b)) / float64(longest)
}

func levenshtein(a, b []rune) int {
	if len(a) < len(b) {
		a, b = b, a
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// spliceLines replaces the window m in lines with replacement.
func spliceLines(lines []string, m lineMatch, replacement string) string {
	out := make([]string, 0, len(lines))
	out = append(out, lines[:m.start]...)
	if replacement != "" {
		out = append(out, splitLines(strings.TrimSuffix(replacement, "\n"))...)
	}
	out = append(out, lines[m.start+m.count:]...)
	return strings.Join(out, "\n")
}
