// Package safety decides whether a shell command may run unattended.
package safety

import (
	"strings"

	"github.com/codefionn/krim/internal/stringsearch"
)

// Action is the outcome of classifying a command.
type Action int

const (
	// Allow runs the command without asking.
	Allow Action = iota
	// Deny refuses the command outright.
	Deny
	// Ask requires an explicit confirmation from the user.
	Ask
)

func (a Action) String() string {
	switch a {
	case Allow:
		return "allow"
	case Deny:
		return "deny"
	case Ask:
		return "ask"
	default:
		return "unknown"
	}
}

// DefaultAllowCommands are read-only or routine build commands that never
// need a confirmation.
var DefaultAllowCommands = []string{
	"ls", "cat", "head", "tail", "find", "grep", "rg", "wc",
	"git status", "git diff", "git log", "git branch",
	"python -m py_compile", "python -c",
	"npm run lint", "npm test", "pytest", "make",
}

// DefaultDenyPatterns are destructive fragments that are refused wherever
// they appear in a command.
var DefaultDenyPatterns = []string{
	"rm -rf /", "rm -rf ~", "rm -rf /*",
	"> /dev/sda", "mkfs.", "dd if=",
	":(){:|:&};:", "chmod -R 777 /",
	"curl|sh", "curl|bash", "wget|sh", "wget|bash",
}

// Classify checks command against the deny patterns first, then the allowed
// prefixes. Deny patterns match as case-insensitive substrings anywhere in
// the command, so "git add if=x" is caught by "dd if=". A prefix is allowed
// only when it is the whole command or is followed by a space or tab.
func Classify(command string, denyPatterns, allowPrefixes []string, askByDefault bool) Action {
	return classify(command, stringsearch.NewStringMatcher(denyPatterns), allowPrefixes, askByDefault)
}

func classify(command string, deny stringsearch.StringMatcher, allowPrefixes []string, askByDefault bool) Action {
	cmd := strings.ToLower(strings.TrimSpace(command))
	fallback := Allow
	if askByDefault {
		fallback = Ask
	}
	if cmd == "" {
		return fallback
	}

	if deny.Contains(cmd) {
		return Deny
	}

	for _, prefix := range allowPrefixes {
		p := strings.ToLower(strings.TrimSpace(prefix))
		if p == "" {
			continue
		}
		if cmd == p {
			return Allow
		}
		if strings.HasPrefix(cmd, p) {
			next := cmd[len(p)]
			if next == ' ' || next == '\t' {
				return Allow
			}
		}
	}
	return fallback
}

// Policy is a reusable classifier with its deny list compiled once.
type Policy struct {
	deny         stringsearch.StringMatcher
	allow        []string
	askByDefault bool
}

func NewPolicy(denyPatterns, allowPrefixes []string, askByDefault bool) *Policy {
	return &Policy{
		deny:         stringsearch.NewStringMatcher(denyPatterns),
		allow:        append([]string(nil), allowPrefixes...),
		askByDefault: askByDefault,
	}
}

// DefaultPolicy uses the built-in lists and asks for anything unknown.
func DefaultPolicy() *Policy {
	return NewPolicy(DefaultDenyPatterns, DefaultAllowCommands, true)
}

func (p *Policy) Classify(command string) Action {
	return classify(command, p.deny, p.allow, p.askByDefault)
}

// MatchedDenyPatterns lists which deny patterns a command trips, for logging.
func (p *Policy) MatchedDenyPatterns(command string) []string {
	return p.deny.FindAll(strings.ToLower(strings.TrimSpace(command)))
}
