package session

import (
	"encoding/json"
	"unicode/utf8"

	"github.com/codefionn/krim/internal/consts"
	"github.com/codefionn/krim/internal/llm"
)

const compactedSuffix = "... [compacted]"

// EstimateTokens is a rough token count: one token per three characters.
func EstimateTokens(text string) int {
	return utf8.RuneCountInString(text) / consts.CharsPerToken
}

// EstimateMessageTokens estimates one message: its plain content or its
// JSON-serialized blocks, plus JSON-serialized tool calls.
func EstimateMessageTokens(m llm.Message) int {
	total := 0
	if len(m.Blocks) > 0 {
		if data, err := json.Marshal(m.Blocks); err == nil {
			total += EstimateTokens(string(data))
		}
	} else {
		total += EstimateTokens(m.Content)
	}
	if len(m.ToolCalls) > 0 {
		if data, err := json.Marshal(m.ToolCalls); err == nil {
			total += EstimateTokens(string(data))
		}
	}
	return total
}

func EstimateMessagesTokens(msgs []llm.Message) int {
	total := 0
	for _, m := range msgs {
		total += EstimateMessageTokens(m)
	}
	return total
}

// NeedsCompaction reports whether the estimate exceeds threshold*maxTokens.
func NeedsCompaction(msgs []llm.Message, maxTokens int, threshold float64) bool {
	return float64(EstimateMessagesTokens(msgs)) > float64(maxTokens)*threshold
}

// Compact returns a smaller copy of msgs; the input is never modified.
//
// Phase one shortens old tool results (everything before the last few
// messages). Phase two evicts whole groups from the front, right after the
// system message, until the estimate is under the target share of
// maxTokens or only a handful of messages remain. Groups keep tool calls
// and their results together, so no result outlives its call.
func Compact(msgs []llm.Message, maxTokens int) []llm.Message {
	out := make([]llm.Message, len(msgs))
	for i, m := range msgs {
		out[i] = m.Clone()
	}
	if len(out) <= consts.CompactMinMessages {
		return out
	}

	boundary := len(out) - consts.CompactKeepRecent
	for i := 1; i < boundary; i++ {
		out[i] = shortenResults(out[i])
	}

	target := float64(maxTokens) * consts.CompactionTarget
	for len(out) > consts.CompactMinMessages && float64(EstimateMessagesTokens(out)) > target {
		next, dropped := DropOldestGroup(out, 1)
		if !dropped {
			break
		}
		out = next
	}
	return out
}

func shortenResults(m llm.Message) llm.Message {
	if !llm.IsToolResult(m) {
		return m
	}
	if m.Role == llm.RoleTool {
		m.Content = shorten(m.Content)
		return m
	}
	for i, b := range m.Blocks {
		if b.Type == llm.BlockToolResult {
			m.Blocks[i].Content = shorten(b.Content)
		}
	}
	return m
}

func shorten(s string) string {
	if utf8.RuneCountInString(s) <= consts.CompactResultMinChars {
		return s
	}
	return string([]rune(s)[:consts.CompactResultKeepChars]) + compactedSuffix
}

// DropOldestGroup removes the group starting at index start and reports
// whether anything was removed. Index 0 is never removed. A group is:
//   - an assistant message with tool calls plus all results directly after it
//   - a plain user message plus the plain assistant reply after it
//   - a user message on its own when the next assistant message calls tools
//   - a run of results whose call is already gone
//   - any other single message
func DropOldestGroup(msgs []llm.Message, start int) ([]llm.Message, bool) {
	if start < 1 {
		start = 1
	}
	if start >= len(msgs) {
		return msgs, false
	}

	end := start + 1
	m := msgs[start]
	switch {
	case llm.HasToolCalls(m), llm.IsToolResult(m):
		for end < len(msgs) && llm.IsToolResult(msgs[end]) {
			end++
		}
	case m.Role == llm.RoleUser:
		if end < len(msgs) && msgs[end].Role == llm.RoleAssistant && !llm.HasToolCalls(msgs[end]) {
			end++
		}
	}

	out := make([]llm.Message, 0, len(msgs)-(end-start))
	out = append(out, msgs[:start]...)
	out = append(out, msgs[end:]...)
	return out, true
}
