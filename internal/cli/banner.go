package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var logo = []string{
	"██╗  ██╗██████╗ ██╗███╗   ███╗",
	"██║ ██╔╝██╔══██╗██║████╗ ████║",
	"█████╔╝ ██████╔╝██║██╔████╔██║",
	"██╔═██╗ ██╔══██╗██║██║╚██╔╝██║",
	"██║  ██╗██║  ██║██║██║ ╚═╝ ██║",
	"╚═╝  ╚═╝╚═╝  ╚═╝╚═╝╚═╝     ╚═╝",
}

const tagline = "trust the model, keep the harness light."

// BannerInfo is what the banner reports about the session.
type BannerInfo struct {
	Version    string
	Provider   string
	Model      string
	MaxTurns   int
	ProjectDir string
}

// PrintBanner writes the interactive-mode welcome.
func PrintBanner(w io.Writer, info BannerInfo) {
	st := newStyles(lipgloss.NewRenderer(w))
	var b strings.Builder
	for _, l := range logo {
		b.WriteString(" " + st.accent.Render(l) + "\n")
	}
	b.WriteString("  " + st.dim.Italic(true).Render(tagline) + "\n\n")

	sep := st.dim.Render("  │  ")
	b.WriteString("  " + st.dim.Render("v") + st.bold.Render(info.Version) + sep +
		st.prompt.Render(info.Provider) + st.dim.Render("/") + info.Model + sep +
		st.dim.Render(fmt.Sprintf("max_turns=%d", info.MaxTurns)) + "\n")
	if info.ProjectDir != "" {
		b.WriteString("  " + st.dim.Render("config: "+info.ProjectDir) + "\n")
	}
	b.WriteString("  " + st.dim.Render("type /help for commands, 'exit' to quit") + "\n\n")
	_, _ = io.WriteString(w, b.String())
}

// Header is the one-line banner of single-task mode.
func Header(w io.Writer, info BannerInfo) {
	st := newStyles(lipgloss.NewRenderer(w))
	_, _ = fmt.Fprintf(w, "%s v%s  %s\n", st.accent.Render("krim"), info.Version,
		st.dim.Render(fmt.Sprintf("%s/%s  max_turns=%d", info.Provider, info.Model, info.MaxTurns)))
}
