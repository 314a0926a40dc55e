package fs

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
)

// TreeOptions bounds a project tree listing.
type TreeOptions struct {
	// MaxDepth counts path separators: files at depth >= MaxDepth are skipped.
	MaxDepth int
	// Limit caps the number of files returned; Total still counts all files.
	Limit int
	// SkipDirs are directory names never descended into.
	SkipDirs []string
}

// DefaultSkipDirs are build and dependency directories that only add noise
// to a project overview.
var DefaultSkipDirs = []string{".git", "node_modules", "__pycache__", ".venv", "venv", ".tox", "dist", "build"}

// Tree lists files under root breadth-first by directory, honouring
// gitignore through ListDirFiltered. It returns the first Limit relative
// paths (sorted) and the total number of files seen within MaxDepth.
func Tree(ctx context.Context, fsys FileSystem, root string, opts TreeOptions) ([]string, int, error) {
	skip := make(map[string]bool, len(opts.SkipDirs))
	for _, d := range opts.SkipDirs {
		skip[d] = true
	}

	var files []string
	var walk func(dir string, depth int) error
	walk = func(dir string, depth int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		entries, err := fsys.ListDirFiltered(ctx, dir)
		if err != nil {
			return err
		}
		for _, e := range entries {
			name := filepath.Base(e.Path)
			rel := relTo(root, e.Path)
			if e.IsDir {
				if skip[name] || strings.HasPrefix(name, ".") && name != "." {
					continue
				}
				if depth+1 < opts.MaxDepth {
					if err := walk(e.Path, depth+1); err != nil {
						return err
					}
				}
				continue
			}
			if depth < opts.MaxDepth {
				files = append(files, rel)
			}
		}
		return nil
	}
	if err := walk(root, 0); err != nil {
		return nil, 0, err
	}

	sort.Strings(files)
	total := len(files)
	if opts.Limit > 0 && len(files) > opts.Limit {
		files = files[:opts.Limit]
	}
	return files, total, nil
}

func relTo(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}
