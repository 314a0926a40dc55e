// Package prompt assembles the system prompt: the fixed core text, the
// names of extra (MCP) tools, a snapshot of the environment, project
// instructions and rules.
package prompt

import (
	"bytes"
	"context"
	"strings"

	"github.com/codefionn/krim/internal/config"
	"github.com/codefionn/krim/internal/fs"
	"github.com/codefionn/krim/internal/vcs"
)

type systemPromptData struct {
	Core         string
	ExtraTools   []string
	Environment  string
	Instructions string
	Rules        []string
}

// Builder builds system prompts for one working directory.
type Builder struct {
	fs         fs.FileSystem
	vcs        vcs.VCS
	workingDir string
	config     *config.Config
}

// NewBuilder creates a builder. vcs may be nil outside repositories.
func NewBuilder(filesystem fs.FileSystem, repo vcs.VCS, workingDir string, cfg *config.Config) *Builder {
	return &Builder{
		fs:         filesystem,
		vcs:        repo,
		workingDir: workingDir,
		config:     cfg,
	}
}

// BuildSystemPrompt renders the prompt. extraTools are tool names beyond
// the four built-ins.
func (b *Builder) BuildSystemPrompt(ctx context.Context, extraTools []string) (string, error) {
	data := systemPromptData{
		Core:        Core,
		ExtraTools:  extraTools,
		Environment: GatherEnvironment(ctx, b.workingDir, b.vcs, b.fs),
	}
	if b.config != nil {
		data.Instructions = strings.TrimSpace(b.config.Instructions)
		for _, r := range b.config.Rules {
			if r = strings.TrimSpace(r); r != "" {
				data.Rules = append(data.Rules, r)
			}
		}
	}

	var buf bytes.Buffer
	if err := systemPrompt.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
