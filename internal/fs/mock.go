package fs

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// MockFS is an in-memory FileSystem for tests. Paths are cleaned and used
// as keys verbatim.
type MockFS struct {
	mu    sync.RWMutex
	files map[string][]byte
	dirs  map[string]bool
}

func NewMockFS() *MockFS {
	return &MockFS{files: make(map[string][]byte), dirs: map[string]bool{".": true}}
}

func clean(path string) string {
	return filepath.Clean(ExpandHome(path))
}

func (m *MockFS) ReadFile(_ context.Context, path string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.files[clean(path)]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
	}
	return append([]byte(nil), data...), nil
}

func (m *MockFS) WriteFile(_ context.Context, path string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := clean(path)
	m.files[p] = append([]byte(nil), data...)
	for d := filepath.Dir(p); ; d = filepath.Dir(d) {
		m.dirs[d] = true
		if d == "." || d == "/" {
			break
		}
	}
	return nil
}

func (m *MockFS) Stat(_ context.Context, path string) (*FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p := clean(path)
	if data, ok := m.files[p]; ok {
		return &FileInfo{Path: path, Size: int64(len(data)), ModTime: time.Now()}, nil
	}
	if m.dirs[p] {
		return &FileInfo{Path: path, IsDir: true, ModTime: time.Now()}, nil
	}
	return nil, &fs.PathError{Op: "stat", Path: path, Err: fs.ErrNotExist}
}

func (m *MockFS) Exists(ctx context.Context, path string) (bool, error) {
	_, err := m.Stat(ctx, path)
	return err == nil, nil
}

func (m *MockFS) MkdirAll(_ context.Context, path string, _ os.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for d := clean(path); ; d = filepath.Dir(d) {
		m.dirs[d] = true
		if d == "." || d == "/" {
			break
		}
	}
	return nil
}

func (m *MockFS) ListDirFiltered(_ context.Context, path string) ([]*FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	dir := clean(path)
	if !m.dirs[dir] {
		return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
	}

	var rules ignoreRules
	if data, ok := m.files[filepath.Join(dir, ".gitignore")]; ok {
		rules = parseIgnore(data)
	}

	children := map[string]*FileInfo{}
	add := func(p string, isDir bool, size int) {
		parent := filepath.Dir(p)
		if parent != dir || p == dir {
			return
		}
		name := filepath.Base(p)
		if name == ".git" || rules.ignored(name, isDir) {
			return
		}
		children[name] = &FileInfo{Path: filepath.Join(path, name), IsDir: isDir, Size: int64(size)}
	}
	for p, data := range m.files {
		add(p, false, len(data))
	}
	for d := range m.dirs {
		add(d, true, 0)
	}

	names := make([]string, 0, len(children))
	for n := range children {
		names = append(names, n)
	}
	sort.Strings(names)
	out := make([]*FileInfo, 0, len(names))
	for _, n := range names {
		out = append(out, children[n])
	}
	return out, nil
}

// Files lists every stored file path, sorted.
func (m *MockFS) Files() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.files))
	for p := range m.files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// HasPrefix reports whether any stored path starts with prefix.
func (m *MockFS) HasPrefix(prefix string) bool {
	for _, f := range m.Files() {
		if strings.HasPrefix(f, prefix) {
			return true
		}
	}
	return false
}
