package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Level is the minimum severity a Logger writes.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	// LevelNone silences the logger completely.
	LevelNone
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelNone:
		return "NONE"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a config or flag value onto a Level. Unknown values fall
// back to LevelInfo.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "info", "":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	case "none", "off":
		return LevelNone
	default:
		return LevelInfo
	}
}

// sink is shared between a Logger and every logger derived from it with
// WithPrefix, so that writes from different components never interleave.
type sink struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
	level  Level
}

// Logger writes timestamped, leveled lines. The terminal belongs to the
// agent's output, so logs normally go to a file.
type Logger struct {
	sink   *sink
	prefix string
}

var (
	globalMu     sync.RWMutex
	globalLogger *Logger
)

// New returns a logger writing to w. A nil writer discards everything.
func New(level Level, w io.Writer) *Logger {
	if w == nil {
		w = io.Discard
		level = LevelNone
	}
	return &Logger{sink: &sink{w: w, level: level}}
}

// Open returns a logger appending to the file at path, creating parent
// directories as needed. An empty path or LevelNone yields a discard logger.
func Open(level Level, path string) (*Logger, error) {
	if level == LevelNone || path == "" {
		return New(LevelNone, nil), nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	l := New(level, f)
	l.sink.closer = f
	return l, nil
}

// Init replaces the process-wide logger. The previous logger, if any, is
// closed.
func Init(level Level, path string) error {
	l, err := Open(level, path)
	if err != nil {
		return err
	}
	SetGlobal(l)
	return nil
}

// SetGlobal installs l as the process-wide logger.
func SetGlobal(l *Logger) {
	globalMu.Lock()
	prev := globalLogger
	globalLogger = l
	globalMu.Unlock()
	if prev != nil && prev.sink != l.sink {
		_ = prev.Close()
	}
}

// Global returns the process-wide logger, or a discard logger before Init.
func Global() *Logger {
	globalMu.RLock()
	l := globalLogger
	globalMu.RUnlock()
	if l != nil {
		return l
	}
	return New(LevelNone, nil)
}

// WithPrefix derives a logger whose lines carry an extra component tag.
func (l *Logger) WithPrefix(prefix string) *Logger {
	p := prefix
	if l.prefix != "" {
		p = l.prefix + ":" + prefix
	}
	return &Logger{sink: l.sink, prefix: p}
}

func (l *Logger) SetLevel(level Level) {
	l.sink.mu.Lock()
	l.sink.level = level
	l.sink.mu.Unlock()
}

func (l *Logger) GetLevel() Level {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	return l.sink.level
}

func (l *Logger) write(level Level, format string, args ...any) {
	s := l.sink
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.level == LevelNone || level < s.level {
		return
	}

	var b strings.Builder
	b.WriteString(time.Now().Format("2006-01-02 15:04:05.000"))
	b.WriteString(" [")
	b.WriteString(level.String())
	b.WriteString("] ")
	if l.prefix != "" {
		b.WriteString("[" + l.prefix + "] ")
	}
	fmt.Fprintf(&b, format, args...)
	b.WriteByte('\n')
	_, _ = io.WriteString(s.w, b.String())
}

func (l *Logger) Debug(format string, args ...any) { l.write(LevelDebug, format, args...) }
func (l *Logger) Info(format string, args ...any)  { l.write(LevelInfo, format, args...) }
func (l *Logger) Warn(format string, args ...any)  { l.write(LevelWarn, format, args...) }
func (l *Logger) Error(format string, args ...any) { l.write(LevelError, format, args...) }

// Close releases the underlying file when the logger owns one.
func (l *Logger) Close() error {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	if l.sink.closer == nil {
		return nil
	}
	err := l.sink.closer.Close()
	l.sink.closer = nil
	l.sink.w = io.Discard
	l.sink.level = LevelNone
	return err
}

func Debug(format string, args ...any) { Global().Debug(format, args...) }
func Info(format string, args ...any)  { Global().Info(format, args...) }
func Warn(format string, args ...any)  { Global().Warn(format, args...) }
func Error(format string, args ...any) { Global().Error(format, args...) }
