package prompt

import (
	"context"
	"fmt"
	"strings"

	"github.com/codefionn/krim/internal/fs"
	"github.com/codefionn/krim/internal/logger"
	"github.com/codefionn/krim/internal/vcs"
)

const (
	maxChangedFiles = 10
	maxCommits      = 5
	maxFiles        = 50
	maxFileDepth    = 3
)

// GatherEnvironment describes the working directory: cwd, git state when
// inside a repository, and a short list of project files.
func GatherEnvironment(ctx context.Context, workDir string, repo vcs.VCS, fsys fs.FileSystem) string {
	parts := []string{"cwd: " + workDir}

	inRepo := false
	if repo != nil {
		if _, err := repo.RepositoryRoot(ctx, workDir); err == nil {
			inRepo = true
			parts = append(parts, "git:\n"+gitInfo(ctx, repo))
		}
	}

	parts = append(parts, "project files:\n"+projectFiles(ctx, inRepo, repo, fsys))
	return strings.Join(parts, "\n\n")
}

func gitInfo(ctx context.Context, repo vcs.VCS) string {
	branch, _ := repo.CurrentBranch(ctx)
	if branch == "" {
		branch = "(detached)"
	}
	lines := []string{"branch: " + branch}

	status, err := repo.Status(ctx)
	switch {
	case err != nil:
		logger.Debug("prompt: git status failed: %v", err)
	case len(status) == 0:
		lines = append(lines, "changes: clean")
	case len(status) > maxChangedFiles:
		lines = append(lines, fmt.Sprintf("changes: %d files modified (showing first %d)", len(status), maxChangedFiles))
		lines = append(lines, status[:maxChangedFiles]...)
	default:
		lines = append(lines, "changes:")
		lines = append(lines, status...)
	}

	if commits, _ := repo.RecentCommits(ctx, maxCommits); len(commits) > 0 {
		lines = append(lines, "recent commits:")
		lines = append(lines, commits...)
	}
	return strings.Join(lines, "\n")
}

// projectFiles prefers tracked files and falls back to a gitignore-aware
// walk of the working directory.
func projectFiles(ctx context.Context, inRepo bool, repo vcs.VCS, fsys fs.FileSystem) string {
	if inRepo {
		if tracked, err := repo.ListFiles(ctx); err == nil && len(tracked) > 0 {
			var files []string
			for _, f := range tracked {
				if strings.Count(f, "/") < maxFileDepth {
					files = append(files, f)
				}
			}
			return listing(files[:min(len(files), maxFiles)], len(files))
		}
	}

	if fsys == nil {
		return "(empty directory)"
	}
	files, total, err := fs.Tree(ctx, fsys, ".", fs.TreeOptions{
		MaxDepth: maxFileDepth,
		Limit:    maxFiles,
		SkipDirs: fs.DefaultSkipDirs,
	})
	if err != nil {
		logger.Debug("prompt: listing project files failed: %v", err)
	}
	return listing(files, total)
}

func listing(files []string, total int) string {
	if len(files) == 0 {
		return "(empty directory)"
	}
	out := strings.Join(files, "\n")
	if total > len(files) {
		out += fmt.Sprintf("\n... (%d more files)", total-len(files))
	}
	return out
}
