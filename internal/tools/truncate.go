package tools

import (
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/codefionn/krim/internal/consts"
)

// Truncate keeps text within maxChars characters by cutting out the middle:
// 60% of the budget from the head, the rest from the tail, and a marker
// with the number of omitted characters in between. maxChars <= 0 uses the
// default budget.
func Truncate(text string, maxChars int) string {
	if maxChars <= 0 {
		maxChars = consts.MaxOutputChars
	}
	if utf8.RuneCountInString(text) <= maxChars {
		return text
	}

	runes := []rune(text)
	head := int(float64(maxChars) * consts.TruncateHeadRatio)
	tail := maxChars - head
	omitted := len(runes) - maxChars

	return string(runes[:head]) +
		fmt.Sprintf("\n\n... [%s characters truncated] ...\n\n", groupThousands(omitted)) +
		string(runes[len(runes)-tail:])
}

func groupThousands(n int) string {
	s := strconv.Itoa(n)
	if n < 0 {
		return "-" + groupThousands(-n)
	}
	if len(s) <= 3 {
		return s
	}
	out := make([]byte, 0, len(s)+len(s)/3)
	lead := len(s) % 3
	if lead == 0 {
		lead = 3
	}
	out = append(out, s[:lead]...)
	for i := lead; i < len(s); i += 3 {
		out = append(out, ',')
		out = append(out, s[i:i+3]...)
	}
	return string(out)
}
