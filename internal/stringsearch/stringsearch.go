// Package stringsearch finds which of a fixed set of patterns occur in a text.
package stringsearch

// StringMatcher reports pattern occurrences by index into the pattern list.
type StringMatcher interface {
	MatchString(text string) []int
	FindAll(text string) []string
	Contains(text string) bool
	Patterns() []string
}

// NewStringMatcher returns a case-insensitive chunked matcher with the
// default chunk size.
func NewStringMatcher(patterns []string) StringMatcher {
	return NewChunkedMatcher(patterns, 4)
}
