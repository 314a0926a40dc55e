// Package skills discovers reusable prompt packages. A skill is a
// directory holding a SKILL.md file; its contents are appended to the
// system prompt when the skill is active.
package skills

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/codefionn/krim/internal/logger"
)

const FileName = "SKILL.md"

// Skill is one discovered skill.
type Skill struct {
	Name   string
	Prompt string
	Dir    string
}

// Summary is the first non-blank line of the prompt.
func (s *Skill) Summary() string {
	for _, line := range strings.Split(s.Prompt, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}

// Set maps skill names to skills.
type Set map[string]*Skill

// Names returns the skill names in sorted order.
func (s Set) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the named skill or an error listing what exists.
func (s Set) Lookup(name string) (*Skill, error) {
	if sk, ok := s[name]; ok {
		return sk, nil
	}
	if len(s) == 0 {
		return nil, fmt.Errorf("skill '%s' not found", name)
	}
	return nil, fmt.Errorf("skill '%s' not found (available: %s)", name, strings.Join(s.Names(), ", "))
}

// Discover scans each dir for <name>/SKILL.md. Later dirs override
// earlier ones, so pass the global dir before the project dir.
func Discover(dirs ...string) Set {
	set := make(Set)
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			if !os.IsNotExist(err) {
				logger.Warn("skills: cannot read %s: %v", dir, err)
			}
			continue
		}
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			skillDir := filepath.Join(dir, e.Name())
			data, err := os.ReadFile(filepath.Join(skillDir, FileName))
			if err != nil {
				continue
			}
			if prev, ok := set[e.Name()]; ok {
				logger.Debug("skills: %s in %s overrides %s", e.Name(), dir, prev.Dir)
			}
			set[e.Name()] = &Skill{Name: e.Name(), Prompt: string(data), Dir: skillDir}
		}
	}
	return set
}

// Inject appends the skill's instructions to a system prompt.
func Inject(systemPrompt string, skill *Skill) string {
	return systemPrompt + "\n\n# Skill: " + skill.Name + "\n" + skill.Prompt
}
