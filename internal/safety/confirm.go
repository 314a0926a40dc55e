package safety

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// Confirmer asks the user whether a command classified as Ask may run.
type Confirmer interface {
	Confirm(command string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(command string) bool

func (f ConfirmFunc) Confirm(command string) bool { return f(command) }

// AutoApprove approves every command that reaches it. Deny patterns are
// still enforced before a Confirmer is consulted.
var AutoApprove Confirmer = ConfirmFunc(func(string) bool { return true })

// RejectAll refuses everything, used when nobody can answer.
var RejectAll Confirmer = ConfirmFunc(func(string) bool { return false })

// TerminalConfirmer prompts on a terminal and reads a y/N answer.
type TerminalConfirmer struct {
	mu     sync.Mutex
	in     *bufio.Reader
	out    io.Writer
	isTerm func() bool
}

// NewTerminalConfirmer prompts on stderr and reads from stdin.
func NewTerminalConfirmer() *TerminalConfirmer {
	return &TerminalConfirmer{
		in:  bufio.NewReader(os.Stdin),
		out: os.Stderr,
		isTerm: func() bool {
			return term.IsTerminal(int(os.Stdin.Fd()))
		},
	}
}

// NewConfirmer builds a TerminalConfirmer over arbitrary streams, treating
// them as interactive.
func NewConfirmer(in io.Reader, out io.Writer) *TerminalConfirmer {
	return &TerminalConfirmer{
		in:     bufio.NewReader(in),
		out:    out,
		isTerm: func() bool { return true },
	}
}

// Confirm returns true only for an explicit "y" or "yes". Without a
// terminal, on EOF or on a read error the command is rejected.
func (c *TerminalConfirmer) Confirm(command string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.isTerm != nil && !c.isTerm() {
		return false
	}
	fmt.Fprintf(c.out, "\n  $ %s\n  allow? [y/N] ", command)
	line, err := c.in.ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintln(c.out)
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
