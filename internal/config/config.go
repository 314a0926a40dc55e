// Package config loads layered krim configuration: defaults, the global
// ~/.krim directory, the project .krim directory, then command-line flags.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/codefionn/krim/internal/consts"
	"github.com/codefionn/krim/internal/logger"
	"github.com/codefionn/krim/internal/safety"
)

const (
	DirName          = ".krim"
	ConfigFileName   = "config.json"
	InstructionsFile = "KRIM.md"
	MCPFileName      = "mcp.json"
	RulesDirName     = "rules"
	SkillsDirName    = "skills"
)

// MCPServerConfig describes one stdio MCP server.
type MCPServerConfig struct {
	Name    string            `json:"-"`
	Command []string          `json:"command"`
	Env     map[string]string `json:"env,omitempty"`
}

// Config represents application configuration
type Config struct {
	Provider         string   `json:"provider"`
	Model            string   `json:"model,omitempty"`
	MaxTurns         int      `json:"max_turns"`
	MaxOutputChars   int      `json:"max_output_chars"`
	AutoCommit       bool     `json:"auto_commit"`
	AllowCommands    []string `json:"allow_commands"`
	DenyPatterns     []string `json:"deny_patterns"`
	AskByDefault     bool     `json:"ask_by_default"`
	LogLevel         string   `json:"log_level"` // debug, info, warn, error, none
	LogPath          string   `json:"log_path"`
	MaxContextTokens int      `json:"max_context_tokens"`

	// Resolved at load time.
	GlobalDir    string            `json:"-"`
	ProjectDir   string            `json:"-"`
	Instructions string            `json:"-"`
	Rules        []string          `json:"-"`
	MCPServers   []MCPServerConfig `json:"-"`
}

// DefaultGlobalDir is ~/.krim.
func DefaultGlobalDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DirName
	}
	return filepath.Join(home, DirName)
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	globalDir := DefaultGlobalDir()
	return &Config{
		Provider:         "claude",
		MaxTurns:         consts.DefaultMaxTurns,
		MaxOutputChars:   consts.MaxOutputChars,
		AllowCommands:    append([]string(nil), safety.DefaultAllowCommands...),
		DenyPatterns:     append([]string(nil), safety.DefaultDenyPatterns...),
		AskByDefault:     true,
		LogLevel:         "info",
		LogPath:          filepath.Join(globalDir, "logs", "krim.log"),
		MaxContextTokens: consts.DefaultMaxContextTokens,
		GlobalDir:        globalDir,
	}
}

// LoadOptions locates the configuration directories. An empty GlobalDir
// means ~/.krim; GitRoot may be empty outside a repository.
type LoadOptions struct {
	GlobalDir string
	WorkDir   string
	GitRoot   string
}

// FindProjectDir returns <workDir>/.krim if it exists, else <gitRoot>/.krim
// if that exists, else "".
func FindProjectDir(workDir, gitRoot string) string {
	for _, base := range []string{workDir, gitRoot} {
		if base == "" {
			continue
		}
		dir := filepath.Join(base, DirName)
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir
		}
	}
	return ""
}

// Load builds the effective configuration. Missing files are skipped and
// malformed ones are logged and treated as empty.
func Load(opts LoadOptions) (*Config, error) {
	cfg := DefaultConfig()
	if opts.GlobalDir != "" {
		cfg.GlobalDir = opts.GlobalDir
		cfg.LogPath = filepath.Join(opts.GlobalDir, "logs", "krim.log")
	}
	cfg.ProjectDir = FindProjectDir(opts.WorkDir, opts.GitRoot)

	merged := loadJSONObject(filepath.Join(cfg.GlobalDir, ConfigFileName))
	if cfg.ProjectDir != "" {
		merged = mergeObjects(merged, loadJSONObject(filepath.Join(cfg.ProjectDir, ConfigFileName)))
	}
	if len(merged) > 0 {
		data, err := json.Marshal(merged)
		if err != nil {
			return nil, fmt.Errorf("encode merged config: %w", err)
		}
		// Unmarshal into the defaults so only provided fields change.
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("apply config: %w", err)
		}
	}
	cfg.normalize()

	cfg.Instructions = loadInstructions(cfg.dirs())
	cfg.Rules = loadRules(cfg.dirs())
	cfg.MCPServers = loadMCPServers(cfg.dirs())
	return cfg, nil
}

// dirs lists the configuration directories in precedence order, lowest first.
func (c *Config) dirs() []string {
	dirs := []string{c.GlobalDir}
	if c.ProjectDir != "" && c.ProjectDir != c.GlobalDir {
		dirs = append(dirs, c.ProjectDir)
	}
	return dirs
}

// SkillDirs lists the directories skills are discovered in, global first.
func (c *Config) SkillDirs() []string {
	var out []string
	for _, d := range c.dirs() {
		out = append(out, filepath.Join(d, SkillsDirName))
	}
	return out
}

func (c *Config) normalize() {
	if strings.TrimSpace(c.Provider) == "" {
		c.Provider = "claude"
	}
	if c.MaxTurns <= 0 {
		c.MaxTurns = consts.DefaultMaxTurns
	}
	if c.MaxOutputChars <= 0 {
		c.MaxOutputChars = consts.MaxOutputChars
	}
	if c.MaxContextTokens <= 0 {
		c.MaxContextTokens = consts.DefaultMaxContextTokens
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	c.LogPath = expandHome(c.LogPath)
}

// Policy builds the command safety policy from the allow and deny lists.
func (c *Config) Policy() *safety.Policy {
	return safety.NewPolicy(c.DenyPatterns, c.AllowCommands, c.AskByDefault)
}

// Summary renders the effective settings for display, one per line.
func (c *Config) Summary() []string {
	model := c.Model
	if model == "" {
		model = "(provider default)"
	}
	project := c.ProjectDir
	if project == "" {
		project = "(none)"
	}
	servers := make([]string, 0, len(c.MCPServers))
	for _, s := range c.MCPServers {
		servers = append(servers, s.Name)
	}
	return []string{
		"provider: " + c.Provider,
		"model: " + model,
		fmt.Sprintf("max_turns: %d", c.MaxTurns),
		fmt.Sprintf("max_output_chars: %d", c.MaxOutputChars),
		fmt.Sprintf("max_context_tokens: %d", c.MaxContextTokens),
		fmt.Sprintf("auto_commit: %t", c.AutoCommit),
		fmt.Sprintf("ask_by_default: %t", c.AskByDefault),
		fmt.Sprintf("allow_commands: %d, deny_patterns: %d", len(c.AllowCommands), len(c.DenyPatterns)),
		"global dir: " + c.GlobalDir,
		"project dir: " + project,
		fmt.Sprintf("rules: %d", len(c.Rules)),
		"mcp servers: " + strings.Join(servers, ", "),
		"log: " + c.LogLevel + " " + c.LogPath,
	}
}

func loadJSONObject(path string) map[string]any {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("config: cannot read %s: %v", path, err)
		}
		return map[string]any{}
	}
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil || obj == nil {
		logger.Warn("config: ignoring malformed %s: %v", path, err)
		return map[string]any{}
	}
	return obj
}

// mergeObjects deep-merges override into base. Nested objects merge key by
// key; any other value, lists included, replaces the base value.
func mergeObjects(base, override map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		if sub, ok := v.(map[string]any); ok {
			if prev, ok := out[k].(map[string]any); ok {
				out[k] = mergeObjects(prev, sub)
				continue
			}
		}
		out[k] = v
	}
	return out
}

func loadInstructions(dirs []string) string {
	var parts []string
	for _, d := range dirs {
		data, err := os.ReadFile(filepath.Join(d, InstructionsFile))
		if err != nil {
			continue
		}
		if strings.TrimSpace(string(data)) != "" {
			parts = append(parts, string(data))
		}
	}
	return strings.Join(parts, "\n\n")
}

func loadRules(dirs []string) []string {
	var rules []string
	for _, d := range dirs {
		matches, err := filepath.Glob(filepath.Join(d, RulesDirName, "*.md"))
		if err != nil {
			continue
		}
		sort.Strings(matches)
		for _, m := range matches {
			data, err := os.ReadFile(m)
			if err != nil {
				logger.Warn("config: cannot read rule %s: %v", m, err)
				continue
			}
			rules = append(rules, string(data))
		}
	}
	return rules
}

type mcpFile struct {
	Servers map[string]MCPServerConfig `json:"mcpServers"`
}

// loadMCPServers reads mcp.json from each directory. A later directory
// replaces a server of the same name. The result is sorted by name.
func loadMCPServers(dirs []string) []MCPServerConfig {
	byName := make(map[string]MCPServerConfig)
	for _, d := range dirs {
		path := filepath.Join(d, MCPFileName)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var f mcpFile
		if err := json.Unmarshal(data, &f); err != nil {
			logger.Warn("config: ignoring malformed %s: %v", path, err)
			continue
		}
		for name, srv := range f.Servers {
			if len(srv.Command) == 0 {
				logger.Warn("config: mcp server %q in %s has no command", name, path)
				continue
			}
			srv.Name = name
			byName[name] = srv
		}
	}

	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]MCPServerConfig, 0, len(names))
	for _, name := range names {
		out = append(out, byName[name])
	}
	return out
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
