package vcs

import (
	"context"
)

// MockVCS is a mock implementation of the VCS interface for testing.
// Unset funcs behave like a clean repository without commits.
type MockVCS struct {
	RepositoryRootFunc func(ctx context.Context, dir string) (string, error)
	CurrentBranchFunc  func(ctx context.Context) (string, error)
	StatusFunc         func(ctx context.Context) ([]string, error)
	RecentCommitsFunc  func(ctx context.Context, n int) ([]string, error)
	ListFilesFunc      func(ctx context.Context) ([]string, error)
	HasChangesFunc     func(ctx context.Context) (bool, error)
	CommitDirtyFunc    func(ctx context.Context, message string) (bool, error)
	AutoCommitFunc     func(ctx context.Context, message string) (string, error)
	UndoFunc           func(ctx context.Context) (*UndoResult, error)

	// Commits records every message passed to CommitDirty and AutoCommit.
	Commits []string
}

func (m *MockVCS) RepositoryRoot(ctx context.Context, dir string) (string, error) {
	if m.RepositoryRootFunc != nil {
		return m.RepositoryRootFunc(ctx, dir)
	}
	return "", nil
}

func (m *MockVCS) CurrentBranch(ctx context.Context) (string, error) {
	if m.CurrentBranchFunc != nil {
		return m.CurrentBranchFunc(ctx)
	}
	return "", nil
}

func (m *MockVCS) Status(ctx context.Context) ([]string, error) {
	if m.StatusFunc != nil {
		return m.StatusFunc(ctx)
	}
	return nil, nil
}

func (m *MockVCS) RecentCommits(ctx context.Context, n int) ([]string, error) {
	if m.RecentCommitsFunc != nil {
		return m.RecentCommitsFunc(ctx, n)
	}
	return nil, nil
}

func (m *MockVCS) ListFiles(ctx context.Context) ([]string, error) {
	if m.ListFilesFunc != nil {
		return m.ListFilesFunc(ctx)
	}
	return nil, nil
}

func (m *MockVCS) HasChanges(ctx context.Context) (bool, error) {
	if m.HasChangesFunc != nil {
		return m.HasChangesFunc(ctx)
	}
	return false, nil
}

func (m *MockVCS) CommitDirty(ctx context.Context, message string) (bool, error) {
	m.Commits = append(m.Commits, message)
	if m.CommitDirtyFunc != nil {
		return m.CommitDirtyFunc(ctx, message)
	}
	return false, nil
}

func (m *MockVCS) AutoCommit(ctx context.Context, message string) (string, error) {
	m.Commits = append(m.Commits, message)
	if m.AutoCommitFunc != nil {
		return m.AutoCommitFunc(ctx, message)
	}
	return "", nil
}

func (m *MockVCS) Undo(ctx context.Context) (*UndoResult, error) {
	if m.UndoFunc != nil {
		return m.UndoFunc(ctx)
	}
	return nil, ErrNotRepository
}
