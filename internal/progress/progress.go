package progress

import (
	"strings"
	"sync"
)

type ReportMode int

const (
	// ReportNoStatus streams only (no status indicator).
	ReportNoStatus ReportMode = iota
	// ReportJustStatus reports to status indicator only.
	ReportJustStatus
	// ReportStreamAndStatus reports to both stream and status indicator.
	ReportStreamAndStatus
)

// Kind says what an update carries, so a renderer can style it.
type Kind int

const (
	// KindStream is an incremental chunk of model text.
	KindStream Kind = iota
	// KindStatus is transient activity information (e.g. "compacting").
	KindStatus
	// KindToolCall announces a tool invocation.
	KindToolCall
	// KindToolResult carries a preview of a tool's output.
	KindToolResult
	// KindNotice is an informational line for the user.
	KindNotice
	// KindWarning flags a recoverable problem.
	KindWarning
	// KindError reports a failure that ended the current run.
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindStream:
		return "stream"
	case KindStatus:
		return "status"
	case KindToolCall:
		return "tool_call"
	case KindToolResult:
		return "tool_result"
	case KindNotice:
		return "notice"
	case KindWarning:
		return "warning"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// Update describes a progress or streaming message emitted by the loop or tools.
type Update struct {
	Kind Kind
	// Message is the content to deliver to the user.
	Message string
	// Tool names the tool for KindToolCall and KindToolResult updates.
	Tool string
	// AddNewLine appends a newline to Message if one is not already present.
	AddNewLine bool
	// Mode controls where the message should be surfaced.
	Mode ReportMode
	// Ephemeral marks the update as transient (should not persist once superseded).
	Ephemeral bool
}

// ShouldStream returns true if the update belongs in the main output.
func (u Update) ShouldStream() bool {
	return u.Mode == ReportNoStatus || u.Mode == ReportStreamAndStatus
}

// ShouldStatus returns true if the update should be shown in a status indicator.
func (u Update) ShouldStatus() bool {
	return u.Mode == ReportJustStatus || u.Mode == ReportStreamAndStatus
}

// Callback receives progress updates.
type Callback func(Update) error

// Normalize applies the requested formatting (currently newline handling).
func Normalize(update Update) Update {
	if update.AddNewLine && update.Message != "" && !strings.HasSuffix(update.Message, "\n") {
		update.Message += "\n"
	}
	return update
}

// Dispatch normalizes and sends the update if the callback is set.
func Dispatch(cb Callback, update Update) error {
	if cb == nil {
		return nil
	}
	return cb(Normalize(update))
}

// Recorder is a Callback target that keeps every update, for tests and
// for replaying output.
type Recorder struct {
	mu      sync.Mutex
	updates []Update
}

func (r *Recorder) Callback() Callback {
	return func(u Update) error {
		r.mu.Lock()
		r.updates = append(r.updates, u)
		r.mu.Unlock()
		return nil
	}
}

// Updates returns a copy of everything recorded so far.
func (r *Recorder) Updates() []Update {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Update(nil), r.updates...)
}

// OfKind returns the recorded messages of one kind, in order.
func (r *Recorder) OfKind(k Kind) []string {
	var out []string
	for _, u := range r.Updates() {
		if u.Kind == k {
			out = append(out, u.Message)
		}
	}
	return out
}

// Text concatenates all streamed chunks.
func (r *Recorder) Text() string {
	return strings.Join(r.OfKind(KindStream), "")
}
