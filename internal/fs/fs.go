// Package fs is the file access layer used by the file tools and by
// project context gathering.
package fs

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/codefionn/krim/internal/logger"
)

// FileInfo is the metadata the tools care about.
type FileInfo struct {
	Path    string
	Size    int64
	ModTime time.Time
	IsDir   bool
}

// FileSystem abstracts disk access so tools can run against MockFS in tests.
// Relative paths resolve against the filesystem's base directory.
type FileSystem interface {
	ReadFile(ctx context.Context, path string) ([]byte, error)
	// WriteFile creates missing parent directories.
	WriteFile(ctx context.Context, path string, data []byte) error
	Stat(ctx context.Context, path string) (*FileInfo, error)
	Exists(ctx context.Context, path string) (bool, error)
	MkdirAll(ctx context.Context, path string, perm os.FileMode) error
	// ListDirFiltered lists a directory without .git and gitignored entries.
	ListDirFiltered(ctx context.Context, path string) ([]*FileInfo, error)
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// IsNotExist reports whether err means the file is missing, for any
// FileSystem implementation.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

// CachedFS reads and writes the real disk and caches directory listings.
// Cached listings are dropped when fsnotify reports a change in the
// directory or when this process writes into it.
type CachedFS struct {
	baseDir  string
	cacheTTL time.Duration

	mu       sync.RWMutex
	dirCache map[string]dirCacheEntry
	watched  map[string]bool

	watcher   *fsnotify.Watcher
	stopWatch chan struct{}
	closeOnce sync.Once
}

type dirCacheEntry struct {
	entries []*FileInfo
	loaded  time.Time
}

// NewCachedFS roots a filesystem at baseDir. Without a working watcher the
// cache still expires after cacheTTL.
func NewCachedFS(baseDir string, cacheTTL time.Duration) *CachedFS {
	cfs := &CachedFS{
		baseDir:   baseDir,
		cacheTTL:  cacheTTL,
		dirCache:  make(map[string]dirCacheEntry),
		watched:   make(map[string]bool),
		stopWatch: make(chan struct{}),
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Warn("fs: file watcher unavailable: %v", err)
		return cfs
	}
	cfs.watcher = watcher
	go cfs.watch()
	return cfs
}

func (cfs *CachedFS) BaseDir() string { return cfs.baseDir }

func (cfs *CachedFS) Close() error {
	var err error
	cfs.closeOnce.Do(func() {
		close(cfs.stopWatch)
		if cfs.watcher != nil {
			err = cfs.watcher.Close()
		}
	})
	return err
}

func (cfs *CachedFS) watch() {
	for {
		select {
		case <-cfs.stopWatch:
			return
		case event, ok := <-cfs.watcher.Events:
			if !ok {
				return
			}
			cfs.invalidate(filepath.Dir(event.Name))
			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				cfs.invalidate(event.Name)
			}
		case err, ok := <-cfs.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("fs: watcher error: %v", err)
		}
	}
}

func (cfs *CachedFS) invalidate(dir string) {
	cfs.mu.Lock()
	delete(cfs.dirCache, dir)
	cfs.mu.Unlock()
}

func (cfs *CachedFS) watchDir(abs string) {
	if cfs.watcher == nil {
		return
	}
	cfs.mu.Lock()
	seen := cfs.watched[abs]
	cfs.watched[abs] = true
	cfs.mu.Unlock()
	if seen {
		return
	}
	if err := cfs.watcher.Add(abs); err != nil {
		logger.Debug("fs: cannot watch %s: %v", abs, err)
	}
}

// Resolve turns a tool-supplied path into an absolute one.
func (cfs *CachedFS) Resolve(path string) string {
	path = ExpandHome(path)
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(cfs.baseDir, path)
}

func (cfs *CachedFS) ReadFile(_ context.Context, path string) ([]byte, error) {
	return os.ReadFile(cfs.Resolve(path))
}

func (cfs *CachedFS) WriteFile(_ context.Context, path string, data []byte) error {
	abs := cfs.Resolve(path)
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(abs, data, 0o644); err != nil {
		return err
	}
	cfs.invalidate(dir)
	return nil
}

func (cfs *CachedFS) Stat(_ context.Context, path string) (*FileInfo, error) {
	info, err := os.Stat(cfs.Resolve(path))
	if err != nil {
		return nil, err
	}
	return &FileInfo{Path: path, Size: info.Size(), ModTime: info.ModTime(), IsDir: info.IsDir()}, nil
}

func (cfs *CachedFS) Exists(ctx context.Context, path string) (bool, error) {
	_, err := cfs.Stat(ctx, path)
	if err == nil {
		return true, nil
	}
	if IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func (cfs *CachedFS) MkdirAll(_ context.Context, path string, perm os.FileMode) error {
	return os.MkdirAll(cfs.Resolve(path), perm)
}

func (cfs *CachedFS) ListDirFiltered(_ context.Context, path string) ([]*FileInfo, error) {
	abs := cfs.Resolve(path)

	entries, err := cfs.listDir(path, abs)
	if err != nil {
		return nil, err
	}

	rules := loadIgnoreChain(cfs.baseDir, abs, func(p string) ([]byte, error) { return os.ReadFile(p) })
	out := make([]*FileInfo, 0, len(entries))
	for _, e := range entries {
		name := filepath.Base(e.Path)
		if name == ".git" {
			continue
		}
		rel, err := filepath.Rel(cfs.baseDir, filepath.Join(abs, name))
		if err != nil {
			rel = name
		}
		if rules.ignored(filepath.ToSlash(rel), e.IsDir) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (cfs *CachedFS) listDir(path, abs string) ([]*FileInfo, error) {
	cfs.mu.RLock()
	entry, ok := cfs.dirCache[abs]
	cfs.mu.RUnlock()
	if ok && time.Since(entry.loaded) < cfs.cacheTTL {
		return entry.entries, nil
	}

	dirEntries, err := os.ReadDir(abs)
	if err != nil {
		return nil, err
	}
	entries := make([]*FileInfo, 0, len(dirEntries))
	for _, de := range dirEntries {
		info, err := de.Info()
		if err != nil {
			continue
		}
		entries = append(entries, &FileInfo{
			Path:    filepath.Join(path, de.Name()),
			Size:    info.Size(),
			ModTime: info.ModTime(),
			IsDir:   de.IsDir(),
		})
	}

	cfs.mu.Lock()
	cfs.dirCache[abs] = dirCacheEntry{entries: entries, loaded: time.Now()}
	cfs.mu.Unlock()
	cfs.watchDir(abs)
	return entries, nil
}
