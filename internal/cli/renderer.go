// Package cli renders agent output on a terminal and runs the interactive
// read-eval loop with its slash commands.
package cli

import (
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"

	"github.com/codefionn/krim/internal/logger"
	"github.com/codefionn/krim/internal/progress"
)

const (
	defaultWidth = 100
	resultBar    = "│ "
)

type styles struct {
	status   lipgloss.Style
	toolName lipgloss.Style
	toolArgs lipgloss.Style
	result   lipgloss.Style
	notice   lipgloss.Style
	warning  lipgloss.Style
	err      lipgloss.Style
	prompt   lipgloss.Style
	accent   lipgloss.Style
	bold     lipgloss.Style
	dim      lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		status:   r.NewStyle().Faint(true),
		toolName: r.NewStyle().Bold(true).Foreground(lipgloss.Color("6")),
		toolArgs: r.NewStyle(),
		result:   r.NewStyle().Faint(true),
		notice:   r.NewStyle().Faint(true),
		warning:  r.NewStyle().Foreground(lipgloss.Color("3")),
		err:      r.NewStyle().Foreground(lipgloss.Color("1")),
		prompt:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("2")),
		accent:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("6")),
		bold:     r.NewStyle().Bold(true),
		dim:      r.NewStyle().Faint(true),
	}
}

// RendererOptions configures a Renderer.
type RendererOptions struct {
	// Width bounds wrapped and truncated lines; zero means 100 columns.
	Width int
	// Markdown buffers the streamed answer and renders it with glamour once
	// it is complete. Without it, text is written as it streams.
	Markdown bool
}

// Renderer is the terminal output sink for progress updates.
type Renderer struct {
	mu      sync.Mutex
	out     io.Writer
	width   int
	st      styles
	md      *glamour.TermRenderer
	pending strings.Builder
	midLine bool
}

func NewRenderer(out io.Writer, opts RendererOptions) *Renderer {
	width := opts.Width
	if width <= 0 {
		width = defaultWidth
	}
	r := &Renderer{
		out:   out,
		width: width,
		st:    newStyles(lipgloss.NewRenderer(out)),
	}
	if opts.Markdown {
		md, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(width),
			glamour.WithPreservedNewLines(),
		)
		if err != nil {
			logger.Warn("cli: markdown renderer unavailable: %v", err)
		} else {
			r.md = md
		}
	}
	return r
}

// Callback adapts the renderer to progress.Callback.
func (r *Renderer) Callback() progress.Callback {
	return r.Handle
}

// Handle renders one update.
func (r *Renderer) Handle(u progress.Update) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if u.Kind == progress.KindStream {
		if r.md != nil {
			r.pending.WriteString(u.Message)
			return nil
		}
		r.write(u.Message)
		return nil
	}

	r.flushLocked()
	msg := strings.TrimRight(u.Message, "\n")
	switch u.Kind {
	case progress.KindStatus:
		r.line(r.st.status.Render(msg))
	case progress.KindToolCall:
		r.line(r.toolCall(u.Tool, msg))
	case progress.KindToolResult:
		r.block(msg)
	case progress.KindNotice:
		r.line(r.st.notice.Render(msg))
	case progress.KindWarning:
		r.wrapped(r.st.warning, msg)
	case progress.KindError:
		r.wrapped(r.st.err, msg)
	default:
		r.line(msg)
	}
	return nil
}

// Flush ends the current answer: buffered markdown is rendered and an open
// line is terminated.
func (r *Renderer) Flush() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flushLocked()
	if r.midLine {
		r.write("\n")
	}
}

// Println writes a plain line, for command output.
func (r *Renderer) Println(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flushLocked()
	r.line(s)
}

// Prompt writes the input prompt without a newline.
func (r *Renderer) Prompt() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flushLocked()
	if r.midLine {
		r.write("\n")
	}
	r.write(r.st.prompt.Render(">") + " ")
	r.midLine = false
}

func (r *Renderer) flushLocked() {
	text := r.pending.String()
	r.pending.Reset()
	if strings.TrimSpace(text) == "" {
		return
	}
	rendered, err := r.md.Render(text)
	if err != nil {
		logger.Debug("cli: markdown render failed: %v", err)
		rendered = text
	}
	r.line(strings.Trim(rendered, "\n"))
}

func (r *Renderer) toolCall(tool, msg string) string {
	if tool == "" || !strings.HasPrefix(msg, tool) {
		return r.st.toolName.Render(msg)
	}
	return r.st.toolName.Render(tool) + r.st.toolArgs.Render(strings.TrimPrefix(msg, tool))
}

// block prints a tool result preview behind a bar, one styled line at a
// time so lines are not padded to a common width.
func (r *Renderer) block(msg string) {
	limit := uint(r.width - len([]rune(resultBar)))
	for _, l := range strings.Split(msg, "\n") {
		r.line(r.st.result.Render(resultBar + truncate.StringWithTail(l, limit, "…")))
	}
}

func (r *Renderer) wrapped(style lipgloss.Style, msg string) {
	for _, l := range strings.Split(wordwrap.String(msg, r.width), "\n") {
		r.line(style.Render(l))
	}
}

func (r *Renderer) line(s string) {
	if r.midLine {
		r.write("\n")
	}
	r.write(s + "\n")
}

func (r *Renderer) write(s string) {
	if s == "" {
		return
	}
	if _, err := io.WriteString(r.out, s); err != nil {
		logger.Debug("cli: write failed: %v", err)
	}
	r.midLine = !strings.HasSuffix(s, "\n")
}
