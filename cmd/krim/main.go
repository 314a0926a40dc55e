package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/codefionn/krim/internal/cli"
	"github.com/codefionn/krim/internal/config"
	"github.com/codefionn/krim/internal/consts"
	"github.com/codefionn/krim/internal/logger"
	"github.com/codefionn/krim/internal/orchestrator"
	"github.com/codefionn/krim/internal/orchestrator/loop"
	"github.com/codefionn/krim/internal/provider"
	"github.com/codefionn/krim/internal/safety"
	"github.com/codefionn/krim/internal/skills"
	"github.com/codefionn/krim/internal/vcs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() (err error) {
	opts, err := parseArgs(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	if opts.version {
		fmt.Printf("krim %s\n", consts.Version)
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	workDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to determine working directory: %w", err)
	}
	gitRoot, _ := vcs.NewGit(workDir).RepositoryRoot(ctx, workDir)

	cfg, err := config.Load(config.LoadOptions{WorkDir: workDir, GitRoot: gitRoot})
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyOverrides(cfg, opts)

	if initErr := logger.Init(logger.ParseLevel(cfg.LogLevel), cfg.LogPath); initErr != nil {
		return fmt.Errorf("failed to initialize logger: %w", initErr)
	}
	defer func() {
		if err != nil {
			logger.Error("fatal: %v", err)
		}
		if closeErr := logger.Global().Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close logger: %v\n", closeErr)
		}
	}()
	slog.SetDefault(slog.New(logger.NewSlogHandler(logger.Global())))
	logger.Info("krim %s starting in %s", consts.Version, workDir)
	logger.Debug("config: provider=%s model=%s max_turns=%d project_dir=%s", cfg.Provider, cfg.Model, cfg.MaxTurns, cfg.ProjectDir)

	if opts.listSkills {
		listSkills(cfg)
		return nil
	}

	stdin := bufio.NewReader(os.Stdin)
	interactiveIn := term.IsTerminal(int(os.Stdin.Fd()))
	renderer := cli.NewRenderer(os.Stdout, cli.RendererOptions{
		Width:    terminalWidth(),
		Markdown: term.IsTerminal(int(os.Stdout.Fd())),
	})

	orch, err := orchestrator.NewFromConfig(ctx, orchestrator.Setup{
		Config:    cfg,
		WorkDir:   workDir,
		Skill:     opts.skill,
		NoMCP:     opts.noMCP,
		Confirmer: pickConfirmer(opts.yolo, interactiveIn, stdin),
		Progress:  renderer.Callback(),
	})
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := orch.Close(); closeErr != nil {
			logger.Warn("shutdown: %v", closeErr)
		}
	}()

	info := cli.BannerInfo{
		Version:    consts.Version,
		Provider:   provider.CanonicalName(cfg.Provider),
		Model:      orch.Client().ModelName(),
		MaxTurns:   orch.MaxTurns(),
		ProjectDir: cfg.ProjectDir,
	}

	if opts.task != "" {
		cli.Header(os.Stdout, info)
		runCtx, stopRun := signal.NotifyContext(ctx, os.Interrupt)
		defer stopRun()
		stats := cli.RunTask(runCtx, orch, renderer, opts.task)
		logger.Info("task finished: %s after %d turns, %d tool calls", stats.Outcome, stats.Turns, stats.ToolCalls)
		if stats.Outcome == loop.Error {
			return errors.New("task ended with a model error")
		}
		return nil
	}

	cli.PrintBanner(os.Stdout, info)
	return cli.NewREPL(stdin, renderer, orch, cfg).Loop(ctx)
}

func applyOverrides(cfg *config.Config, opts *options) {
	if opts.provider != "" {
		cfg.Provider = opts.provider
		// A model from the config file belongs to the configured provider.
		if opts.model == "" {
			cfg.Model = ""
		}
	}
	if opts.model != "" {
		cfg.Model = opts.model
	}
	if opts.maxTurns > 0 {
		cfg.MaxTurns = opts.maxTurns
	}
	if envLevel := strings.TrimSpace(os.Getenv("KRIM_LOG_LEVEL")); envLevel != "" {
		cfg.LogLevel = envLevel
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	if opts.logFile != "" {
		cfg.LogPath = opts.logFile
	}
}

// pickConfirmer decides how "ask" commands are answered. Without a terminal
// nobody can answer, so they are rejected.
func pickConfirmer(yolo, interactive bool, stdin *bufio.Reader) safety.Confirmer {
	switch {
	case yolo:
		return safety.AutoApprove
	case interactive:
		return safety.NewConfirmer(stdin, os.Stderr)
	default:
		return safety.RejectAll
	}
}

func listSkills(cfg *config.Config) {
	set := skills.Discover(cfg.SkillDirs()...)
	if len(set) == 0 {
		fmt.Printf("no skills found (add <name>/%s under %s)\n", skills.FileName, strings.Join(cfg.SkillDirs(), " or "))
		return
	}
	for _, name := range set.Names() {
		fmt.Printf("%-20s %s\n", name, set[name].Summary())
	}
}

func terminalWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return 0
	}
	return w
}
