package prompt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/codefionn/krim/internal/config"
	"github.com/codefionn/krim/internal/fs"
	"github.com/codefionn/krim/internal/vcs"
)

func repoMock() *vcs.MockVCS {
	return &vcs.MockVCS{
		RepositoryRootFunc: func(context.Context, string) (string, error) { return "/repo", nil },
		CurrentBranchFunc:  func(context.Context) (string, error) { return "main", nil },
		StatusFunc:         func(context.Context) ([]string, error) { return []string{" M main.go"}, nil },
		RecentCommitsFunc: func(_ context.Context, n int) ([]string, error) {
			if n != maxCommits {
				return nil, fmt.Errorf("unexpected n %d", n)
			}
			return []string{"abc123 initial"}, nil
		},
		ListFilesFunc: func(context.Context) ([]string, error) {
			return []string{"go.mod", "main.go", "a/b/c.go", "a/b/c/d.go"}, nil
		},
	}
}

func noRepo() *vcs.MockVCS {
	return &vcs.MockVCS{
		RepositoryRootFunc: func(context.Context, string) (string, error) { return "", vcs.ErrNotRepository },
	}
}

func TestGatherEnvironment_Repository(t *testing.T) {
	got := GatherEnvironment(context.Background(), "/repo", repoMock(), fs.NewMockFS())
	want := strings.Join([]string{
		"cwd: /repo",
		"",
		"git:",
		"branch: main",
		"changes:",
		" M main.go",
		"recent commits:",
		"abc123 initial",
		"",
		"project files:",
		"go.mod",
		"main.go",
		"a/b/c.go",
	}, "\n")
	if got != want {
		t.Errorf("unexpected environment:\n%s\n--- want ---\n%s", got, want)
	}
}

func TestGatherEnvironment_ManyChangesAndFiles(t *testing.T) {
	repo := repoMock()
	repo.CurrentBranchFunc = func(context.Context) (string, error) { return "", nil }
	repo.StatusFunc = func(context.Context) ([]string, error) {
		var lines []string
		for i := 0; i < 12; i++ {
			lines = append(lines, fmt.Sprintf("?? f%d", i))
		}
		return lines, nil
	}
	repo.ListFilesFunc = func(context.Context) ([]string, error) {
		var files []string
		for i := 0; i < 60; i++ {
			files = append(files, fmt.Sprintf("file%02d.go", i))
		}
		return files, nil
	}

	got := GatherEnvironment(context.Background(), "/repo", repo, nil)
	for _, want := range []string{
		"branch: (detached)",
		"changes: 12 files modified (showing first 10)\n?? f0\n",
		"?? f9\nrecent commits:",
		"file49.go\n... (10 more files)",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in:\n%s", want, got)
		}
	}
	if strings.Contains(got, "?? f10") || strings.Contains(got, "file50.go") {
		t.Errorf("listing not capped:\n%s", got)
	}
}

func TestGatherEnvironment_CleanRepoWithoutCommits(t *testing.T) {
	repo := repoMock()
	repo.StatusFunc = func(context.Context) ([]string, error) { return nil, nil }
	repo.RecentCommitsFunc = nil
	got := GatherEnvironment(context.Background(), "/repo", repo, nil)
	if !strings.Contains(got, "branch: main\nchanges: clean\n\nproject files:") {
		t.Errorf("unexpected environment:\n%s", got)
	}
}

func TestGatherEnvironment_FallsBackToFilesystem(t *testing.T) {
	ctx := context.Background()
	mfs := fs.NewMockFS()
	for _, p := range []string{"main.go", "pkg/util.go", "node_modules/x/index.js", "a/b/c/deep.go", "gen/out.txt"} {
		if err := mfs.WriteFile(ctx, p, []byte("x")); err != nil {
			t.Fatal(err)
		}
	}
	if err := mfs.WriteFile(ctx, ".gitignore", []byte("gen/\n")); err != nil {
		t.Fatal(err)
	}

	got := GatherEnvironment(ctx, "/work", noRepo(), mfs)
	want := "cwd: /work\n\nproject files:\n.gitignore\nmain.go\npkg/util.go"
	if got != want {
		t.Errorf("unexpected environment:\n%q\nwant\n%q", got, want)
	}
}

func TestGatherEnvironment_EmptyDirectory(t *testing.T) {
	got := GatherEnvironment(context.Background(), "/empty", nil, fs.NewMockFS())
	if got != "cwd: /empty\n\nproject files:\n(empty directory)" {
		t.Errorf("unexpected environment: %q", got)
	}
}

func TestBuildSystemPrompt(t *testing.T) {
	cfg := &config.Config{
		Instructions: "  Use tabs.  ",
		Rules:        []string{"Never push.", "  ", "Write tests."},
	}
	b := NewBuilder(fs.NewMockFS(), noRepo(), "/work", cfg)

	got, err := b.BuildSystemPrompt(context.Background(), []string{"search", "fetch"})
	if err != nil {
		t.Fatalf("BuildSystemPrompt failed: %v", err)
	}
	want := Core + "\n\n" +
		"Additional tools available: search, fetch\n\n" +
		"# Environment\ncwd: /work\n\nproject files:\n(empty directory)\n\n" +
		"# Project Instructions\nUse tabs.\n\n" +
		"# Rule 1\nNever push.\n\n" +
		"# Rule 2\nWrite tests."
	if got != want {
		t.Errorf("unexpected prompt:\n%s\n--- want ---\n%s", got, want)
	}
}

func TestBuildSystemPrompt_Minimal(t *testing.T) {
	b := NewBuilder(nil, nil, "/work", nil)
	got, err := b.BuildSystemPrompt(context.Background(), nil)
	if err != nil {
		t.Fatalf("BuildSystemPrompt failed: %v", err)
	}
	if got != Core+"\n\n# Environment\ncwd: /work\n\nproject files:\n(empty directory)" {
		t.Errorf("unexpected prompt: %q", got)
	}
	if strings.Contains(got, "Additional tools") || strings.Contains(got, "# Rule") {
		t.Error("optional sections must be omitted")
	}
}

func TestRepoErrorsAreTolerated(t *testing.T) {
	repo := repoMock()
	repo.StatusFunc = func(context.Context) ([]string, error) { return nil, errors.New("boom") }
	repo.ListFilesFunc = func(context.Context) ([]string, error) { return nil, errors.New("boom") }
	got := GatherEnvironment(context.Background(), "/repo", repo, nil)
	if !strings.HasSuffix(got, "project files:\n(empty directory)") || strings.Contains(got, "changes") {
		t.Errorf("unexpected environment:\n%s", got)
	}
}
