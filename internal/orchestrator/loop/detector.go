package loop

import (
	"encoding/json"

	"github.com/cespare/xxhash/v2"

	"github.com/codefionn/krim/internal/llm"
)

// CallDetector spots a model stuck issuing the same tool calls. Each batch
// is reduced to a hash of its canonical JSON form; arguments are compared
// with sorted keys, so key order does not matter.
type CallDetector struct {
	window  int
	repeats int
	recent  []uint64
}

func NewCallDetector(window, repeats int) *CallDetector {
	if repeats < 2 {
		repeats = 2
	}
	if window < repeats {
		window = repeats
	}
	return &CallDetector{window: window, repeats: repeats}
}

// Record adds a batch and reports whether the last repeats batches are
// identical.
func (d *CallDetector) Record(calls []llm.ToolCall) bool {
	d.recent = append(d.recent, Signature(calls))
	if over := len(d.recent) - d.window; over > 0 {
		d.recent = append(d.recent[:0], d.recent[over:]...)
	}
	if len(d.recent) < d.repeats {
		return false
	}
	last := d.recent[len(d.recent)-1]
	for _, h := range d.recent[len(d.recent)-d.repeats:] {
		if h != last {
			return false
		}
	}
	return true
}

func (d *CallDetector) Reset() {
	d.recent = d.recent[:0]
}

// Len is the number of remembered batches.
func (d *CallDetector) Len() int { return len(d.recent) }

// Signature hashes the (name, args) pairs of a batch. Call IDs are ignored.
func Signature(calls []llm.ToolCall) uint64 {
	pairs := make([][2]any, len(calls))
	for i, c := range calls {
		args := c.Args
		if args == nil {
			args = map[string]any{}
		}
		pairs[i] = [2]any{c.Name, args}
	}
	// encoding/json writes map keys sorted, which makes the form canonical.
	data, err := json.Marshal(pairs)
	if err != nil {
		data = []byte(err.Error())
	}
	return xxhash.Sum64(data)
}
