package orchestrator

import (
	"context"
	"fmt"

	"github.com/codefionn/krim/internal/config"
	"github.com/codefionn/krim/internal/consts"
	"github.com/codefionn/krim/internal/fs"
	"github.com/codefionn/krim/internal/llm"
	"github.com/codefionn/krim/internal/logger"
	"github.com/codefionn/krim/internal/mcp"
	"github.com/codefionn/krim/internal/progress"
	"github.com/codefionn/krim/internal/prompt"
	"github.com/codefionn/krim/internal/provider"
	"github.com/codefionn/krim/internal/safety"
	"github.com/codefionn/krim/internal/session"
	"github.com/codefionn/krim/internal/skills"
	"github.com/codefionn/krim/internal/tools"
	"github.com/codefionn/krim/internal/vcs"
)

// Setup describes a session to assemble from loaded configuration.
type Setup struct {
	Config  *config.Config
	WorkDir string
	// Skill activates a discovered skill by name.
	Skill string
	NoMCP bool
	// Confirmer answers "ask" verdicts of the safety policy.
	Confirmer safety.Confirmer
	Progress  progress.Callback
	// Client overrides the provider client built from Config.
	Client llm.Client
	// FS overrides the cached disk filesystem.
	FS fs.FileSystem
}

// NewFromConfig builds a ready orchestrator: client, tools, MCP servers,
// system prompt and optional skill. Only problems that make a session
// impossible are returned; failing MCP servers are reported and skipped.
func NewFromConfig(ctx context.Context, s Setup) (*Orchestrator, error) {
	cfg := s.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	var skill *skills.Skill
	if s.Skill != "" {
		found, err := skills.Discover(cfg.SkillDirs()...).Lookup(s.Skill)
		if err != nil {
			return nil, err
		}
		skill = found
	}

	client := s.Client
	if client == nil {
		name := provider.CanonicalName(cfg.Provider)
		key := provider.ResolveAPIKey(name)
		if key == "" {
			return nil, provider.MissingKeyError(name)
		}
		c, err := llm.NewClient(ctx, name, cfg.Model, key)
		if err != nil {
			return nil, err
		}
		client = c
	}

	var closers []func() error
	fsys := s.FS
	if fsys == nil {
		cached := fs.NewCachedFS(s.WorkDir, consts.DirCacheTTL)
		closers = append(closers, cached.Close)
		fsys = cached
	}

	sess := session.NewSession("", s.WorkDir)
	registry := tools.NewDefaultRegistry(tools.Options{
		FS:            fsys,
		WorkDir:       s.WorkDir,
		Policy:        cfg.Policy(),
		Confirmer:     s.Confirmer,
		MaxOutput:     cfg.MaxOutputChars,
		OnFileChanged: sess.TrackFileModified,
	})

	var extraTools []string
	if !s.NoMCP && len(cfg.MCPServers) > 0 {
		emit(s.Progress, progress.KindNotice, fmt.Sprintf("mcp: connecting to %d server(s)...", len(cfg.MCPServers)))
		mgr := mcp.NewManager()
		mgr.StartAll(ctx, cfg.MCPServers, s.Progress, mcp.WithMaxOutput(cfg.MaxOutputChars))
		closers = append(closers, mgr.Close)
		extraTools = mgr.RegisterTools(registry)
		if len(extraTools) > 0 {
			emit(s.Progress, progress.KindNotice, fmt.Sprintf("mcp: %d tool(s) loaded", len(extraTools)))
		}
	}

	git := vcs.NewGit(s.WorkDir)
	var repo vcs.VCS
	if git.IsRepository(ctx) {
		repo = git
	}

	systemPrompt, err := prompt.NewBuilder(fsys, repo, s.WorkDir, cfg).BuildSystemPrompt(ctx, extraTools)
	if err != nil {
		closeAll(closers)
		return nil, fmt.Errorf("build system prompt: %w", err)
	}
	if skill != nil {
		systemPrompt = skills.Inject(systemPrompt, skill)
		emit(s.Progress, progress.KindNotice, fmt.Sprintf("skill: %s active", skill.Name))
	}
	sess.SetSystemPrompt(systemPrompt)
	logger.Debug("system prompt: %d chars, %d tools", len(systemPrompt), registry.Len())

	o, err := New(Options{
		Client:     client,
		Session:    sess,
		Tools:      registry,
		Progress:   s.Progress,
		VCS:        repo,
		AutoCommit: cfg.AutoCommit,
		Loop:       buildLoopConfig(cfg),
	})
	if err != nil {
		closeAll(closers)
		return nil, err
	}
	for _, c := range closers {
		o.OnClose(c)
	}
	return o, nil
}

func emit(cb progress.Callback, kind progress.Kind, msg string) {
	_ = progress.Dispatch(cb, progress.Update{Kind: kind, Message: msg, AddNewLine: true})
}

func closeAll(closers []func() error) {
	for i := len(closers) - 1; i >= 0; i-- {
		_ = closers[i]()
	}
}
