// Package vcs provides a version control system abstraction layer.
// Git is the only implementation; MockVCS stands in for it in tests.
package vcs

import (
	"context"
	"errors"
	"fmt"
)

// CommitPrefix marks commits made on the agent's behalf. Undo only ever
// removes commits whose subject starts with it.
const CommitPrefix = "krim:"

const (
	DirtyCommitMessage = CommitPrefix + " save uncommitted changes before agent edits"
	AutoCommitMessage  = CommitPrefix + " agent edits"
)

// ErrNotRepository is returned by operations that need a repository.
var ErrNotRepository = errors.New("not a git repository")

// ForeignCommitError is returned by Undo when HEAD was not made by the agent.
type ForeignCommitError struct {
	Subject string
}

func (e *ForeignCommitError) Error() string {
	return fmt.Sprintf("last commit is not a krim commit: %s", e.Subject)
}

// VCS represents a version control system.
type VCS interface {
	// RepositoryRoot returns the root directory of the repository
	// containing dir. Returns an error if not in a repository.
	RepositoryRoot(ctx context.Context, dir string) (string, error)

	// CurrentBranch returns the name of the current branch.
	// Returns an empty string if not in a repository or on a detached HEAD.
	CurrentBranch(ctx context.Context) (string, error)

	// Status returns the short status lines ("XY path").
	Status(ctx context.Context) ([]string, error)

	// RecentCommits returns up to n one-line commit summaries, newest first.
	RecentCommits(ctx context.Context, n int) ([]string, error)

	// ListFiles returns the tracked files relative to the repository root.
	ListFiles(ctx context.Context) ([]string, error)

	HasChanges(ctx context.Context) (bool, error)

	// CommitDirty commits pending user changes so they stay apart from the
	// agent's edits. It reports whether a commit was made.
	CommitDirty(ctx context.Context, message string) (bool, error)

	// AutoCommit commits the agent's edits and returns the short hash, or ""
	// when there was nothing to commit.
	AutoCommit(ctx context.Context, message string) (string, error)

	// Undo resets the last agent commit, leaving its changes in the
	// working tree.
	Undo(ctx context.Context) (*UndoResult, error)
}

// FileStat is the line count summary of one file in an undone commit.
type FileStat struct {
	Path    string
	Added   int
	Deleted int
}

// UndoResult describes the commit Undo removed.
type UndoResult struct {
	Subject string
	Files   []FileStat
}

// Lines renders one "path +a -d" line per file.
func (r *UndoResult) Lines() []string {
	lines := make([]string, 0, len(r.Files))
	for _, f := range r.Files {
		lines = append(lines, fmt.Sprintf("%s +%d -%d", f.Path, f.Added, f.Deleted))
	}
	return lines
}
