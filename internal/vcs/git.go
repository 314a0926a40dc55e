package vcs

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path"
	"strconv"
	"strings"
	"sync"

	godiff "github.com/sourcegraph/go-diff/diff"

	"github.com/codefionn/krim/internal/consts"
	"github.com/codefionn/krim/internal/logger"
)

// sensitiveNames are never staged when they show up as new files.
var sensitiveNames = map[string]bool{
	"credentials.json": true,
	"secrets.json":     true,
	".DS_Store":        true,
	"node_modules":     true,
	"__pycache__":      true,
}

// Git implements the VCS interface by shelling out to the git binary.
type Git struct {
	workingDir string
	log        *logger.Logger

	// repoRootOnce ensures we only look up the repo root once
	repoRootOnce sync.Once
	repoRoot     string
	repoRootErr  error
}

// NewGit creates a new Git VCS instance for the given working directory.
func NewGit(workingDir string) *Git {
	return &Git{
		workingDir: workingDir,
		log:        logger.Global().WithPrefix("git"),
	}
}

// run executes git in dir with a bounded timeout and returns stdout.
func (g *Git) run(ctx context.Context, dir string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, consts.GitCommandTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", append([]string{"-C", dir}, args...)...)
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return string(out), fmt.Errorf("git %s: %w: %s", args[0], err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return string(out), fmt.Errorf("git %s: %w", args[0], err)
	}
	return string(out), nil
}

// getRepoRoot returns the cached repository root, looking it up if necessary.
func (g *Git) getRepoRoot(ctx context.Context) (string, error) {
	g.repoRootOnce.Do(func() {
		g.repoRoot, g.repoRootErr = g.RepositoryRoot(ctx, g.workingDir)
	})
	return g.repoRoot, g.repoRootErr
}

// RepositoryRoot returns the root directory of the Git repository
// containing dir (the working directory when dir is empty).
func (g *Git) RepositoryRoot(ctx context.Context, dir string) (string, error) {
	if dir == "" {
		dir = g.workingDir
	}
	out, err := g.run(ctx, dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotRepository, err)
	}
	return strings.TrimSpace(out), nil
}

// IsRepository reports whether the working directory is inside a repository.
func (g *Git) IsRepository(ctx context.Context) bool {
	_, err := g.getRepoRoot(ctx)
	return err == nil
}

// CurrentBranch returns the name of the current branch.
func (g *Git) CurrentBranch(ctx context.Context) (string, error) {
	if !g.IsRepository(ctx) {
		return "", nil
	}
	out, err := g.run(ctx, g.workingDir, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		// An unborn branch has no HEAD commit yet.
		out, err = g.run(ctx, g.workingDir, "symbolic-ref", "--short", "HEAD")
		if err != nil {
			return "", nil
		}
	}
	branch := strings.TrimSpace(out)
	if branch == "HEAD" {
		return "", nil
	}
	return branch, nil
}

func (g *Git) Status(ctx context.Context) ([]string, error) {
	return g.statusLines(ctx, "--porcelain")
}

func (g *Git) statusLines(ctx context.Context, args ...string) ([]string, error) {
	if !g.IsRepository(ctx) {
		return nil, ErrNotRepository
	}
	out, err := g.run(ctx, g.workingDir, append([]string{"status"}, args...)...)
	if err != nil {
		return nil, err
	}
	return splitLines(out), nil
}

func (g *Git) RecentCommits(ctx context.Context, n int) ([]string, error) {
	if !g.IsRepository(ctx) {
		return nil, ErrNotRepository
	}
	if n <= 0 {
		return nil, nil
	}
	out, err := g.run(ctx, g.workingDir, "log", "--oneline", "-n", strconv.Itoa(n))
	if err != nil {
		// No commits yet.
		return nil, nil
	}
	return splitLines(out), nil
}

func (g *Git) ListFiles(ctx context.Context) ([]string, error) {
	if !g.IsRepository(ctx) {
		return nil, ErrNotRepository
	}
	out, err := g.run(ctx, g.workingDir, "ls-files")
	if err != nil {
		return nil, err
	}
	return splitLines(out), nil
}

func (g *Git) HasChanges(ctx context.Context) (bool, error) {
	lines, err := g.Status(ctx)
	if err != nil {
		return false, err
	}
	return len(lines) > 0, nil
}

func (g *Git) CommitDirty(ctx context.Context, message string) (bool, error) {
	if message == "" {
		message = DirtyCommitMessage
	}
	return g.commit(ctx, message)
}

func (g *Git) AutoCommit(ctx context.Context, message string) (string, error) {
	if message == "" {
		message = AutoCommitMessage
	}
	committed, err := g.commit(ctx, message)
	if err != nil || !committed {
		return "", err
	}
	out, err := g.run(ctx, g.workingDir, "rev-parse", "--short", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (g *Git) commit(ctx context.Context, message string) (bool, error) {
	if !strings.HasPrefix(message, CommitPrefix) {
		message = CommitPrefix + " " + message
	}
	changed, err := g.HasChanges(ctx)
	if err != nil || !changed {
		return false, err
	}
	if err := g.stage(ctx); err != nil {
		return false, err
	}
	staged, err := g.run(ctx, g.workingDir, "diff", "--cached", "--name-only")
	if err != nil {
		return false, err
	}
	if strings.TrimSpace(staged) == "" {
		g.log.Debug("nothing staged after skipping sensitive files")
		return false, nil
	}
	if _, err := g.run(ctx, g.workingDir, "commit", "-m", message); err != nil {
		return false, err
	}
	g.log.Info("committed: %s", message)
	return true, nil
}

// stage adds tracked changes and every new file that is not sensitive.
func (g *Git) stage(ctx context.Context) error {
	if _, err := g.run(ctx, g.workingDir, "add", "-u"); err != nil {
		return err
	}
	lines, err := g.statusLines(ctx, "--porcelain", "--untracked-files=all")
	if err != nil {
		return err
	}
	var add []string
	for _, line := range lines {
		if !strings.HasPrefix(line, "?? ") {
			continue
		}
		file := statusPath(line)
		if isSensitive(file) {
			g.log.Debug("not staging %s", file)
			continue
		}
		add = append(add, file)
	}
	if len(add) == 0 {
		return nil
	}
	root, err := g.getRepoRoot(ctx)
	if err != nil {
		return err
	}
	_, err = g.run(ctx, root, append([]string{"add", "--"}, add...)...)
	return err
}

func (g *Git) Undo(ctx context.Context) (*UndoResult, error) {
	if !g.IsRepository(ctx) {
		return nil, ErrNotRepository
	}
	out, err := g.run(ctx, g.workingDir, "log", "-1", "--format=%s")
	if err != nil {
		return nil, err
	}
	subject := strings.TrimSpace(out)
	if !strings.HasPrefix(subject, CommitPrefix) {
		return nil, &ForeignCommitError{Subject: subject}
	}

	result := &UndoResult{Subject: subject}
	patch, err := g.run(ctx, g.workingDir, "show", "--format=", "--no-color", "--no-ext-diff", "HEAD")
	if err != nil {
		g.log.Warn("cannot read diff of %q: %v", subject, err)
	} else if files, err := DiffStats(patch); err != nil {
		g.log.Warn("cannot parse diff of %q: %v", subject, err)
	} else {
		result.Files = files
	}

	if _, err := g.run(ctx, g.workingDir, "reset", "HEAD^"); err != nil {
		return nil, fmt.Errorf("git reset failed: %w", err)
	}
	g.log.Info("undid commit: %s", subject)
	return result, nil
}

// DiffStats summarizes a multi-file unified diff per file.
func DiffStats(patch string) ([]FileStat, error) {
	if strings.TrimSpace(patch) == "" {
		return nil, nil
	}
	fileDiffs, err := godiff.ParseMultiFileDiff([]byte(patch))
	if err != nil {
		return nil, err
	}
	stats := make([]FileStat, 0, len(fileDiffs))
	for _, fd := range fileDiffs {
		if fd == nil {
			continue
		}
		s := fd.Stat()
		stats = append(stats, FileStat{
			Path:    diffPath(fd),
			Added:   int(s.Added + s.Changed),
			Deleted: int(s.Deleted + s.Changed),
		})
	}
	return stats, nil
}

func diffPath(fd *godiff.FileDiff) string {
	name := strings.TrimSpace(fd.NewName)
	if name == "" || name == "/dev/null" {
		name = strings.TrimSpace(fd.OrigName)
	}
	name = strings.Trim(name, "\"")
	name = strings.TrimPrefix(name, "a/")
	return strings.TrimPrefix(name, "b/")
}

// statusPath extracts the path from a porcelain status line.
func statusPath(line string) string {
	if len(line) < 4 {
		return ""
	}
	p := line[3:]
	if i := strings.Index(p, " -> "); i >= 0 {
		p = p[i+4:]
	}
	if strings.HasPrefix(p, "\"") {
		if unq, err := strconv.Unquote(p); err == nil {
			p = unq
		}
	}
	return p
}

func isSensitive(file string) bool {
	file = strings.TrimSuffix(file, "/")
	if strings.HasPrefix(path.Base(file), ".env") {
		return true
	}
	for _, part := range strings.Split(file, "/") {
		if sensitiveNames[part] {
			return true
		}
	}
	return false
}

func splitLines(out string) []string {
	out = strings.TrimRight(out, "\n")
	if strings.TrimSpace(out) == "" {
		return nil
	}
	return strings.Split(out, "\n")
}
