package fs

import (
	"bufio"
	"path/filepath"
	"regexp"
	"strings"
)

type ignoreRule struct {
	re      *regexp.Regexp
	negate  bool
	dirOnly bool
}

// ignoreRules is an ordered list of gitignore rules; the last matching
// rule wins.
type ignoreRules []ignoreRule

func parseIgnore(data []byte) ignoreRules {
	var rules ignoreRules
	sc := bufio.NewScanner(strings.NewReader(string(data)))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		var r ignoreRule
		if strings.HasPrefix(line, "!") {
			r.negate = true
			line = line[1:]
		}
		if strings.HasSuffix(line, "/") {
			r.dirOnly = true
			line = strings.TrimSuffix(line, "/")
		}
		if line == "" {
			continue
		}
		re, err := regexp.Compile(globToRegexp(line))
		if err != nil {
			continue
		}
		r.re = re
		rules = append(rules, r)
	}
	return rules
}

// globToRegexp translates a gitignore glob. A pattern without a leading
// slash matches at any depth; a match on a directory covers its contents.
func globToRegexp(glob string) string {
	anchored := strings.HasPrefix(glob, "/")
	glob = strings.TrimPrefix(glob, "/")

	var b strings.Builder
	if anchored {
		b.WriteString("^")
	} else {
		b.WriteString("(^|/)")
	}
	for i := 0; i < len(glob); i++ {
		switch c := glob[i]; c {
		case '*':
			if i+1 < len(glob) && glob[i+1] == '*' {
				b.WriteString(".*")
				i++
			} else {
				b.WriteString("[^/]*")
			}
		case '?':
			b.WriteString("[^/]")
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	b.WriteString("($|/)")
	return b.String()
}

func (rules ignoreRules) ignored(rel string, isDir bool) bool {
	rel = strings.TrimPrefix(rel, "./")
	ignored := false
	for _, r := range rules {
		if r.dirOnly && !isDir {
			continue
		}
		if r.re.MatchString(rel) {
			ignored = !r.negate
		}
	}
	return ignored
}

// loadIgnoreChain collects the .gitignore files from base down to dir.
func loadIgnoreChain(base, dir string, read func(string) ([]byte, error)) ignoreRules {
	var rules ignoreRules
	rel, err := filepath.Rel(base, dir)
	if err != nil || strings.HasPrefix(rel, "..") {
		rel = "."
	}
	current := base
	parts := []string{}
	if rel != "." {
		parts = strings.Split(rel, string(filepath.Separator))
	}
	for i := 0; ; i++ {
		if data, err := read(filepath.Join(current, ".gitignore")); err == nil {
			rules = append(rules, parseIgnore(data)...)
		}
		if i >= len(parts) {
			break
		}
		current = filepath.Join(current, parts[i])
	}
	return rules
}
