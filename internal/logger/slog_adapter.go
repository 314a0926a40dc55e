package logger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// NewSlogHandler routes log/slog records into l, so libraries that log via
// slog.Default end up in the same file as everything else.
func NewSlogHandler(l *Logger) slog.Handler {
	if l == nil {
		return nil
	}
	return &slogHandler{log: l}
}

type slogHandler struct {
	log    *Logger
	group  string
	fields string
}

func toLevel(level slog.Level) Level {
	switch {
	case level >= slog.LevelError:
		return LevelError
	case level >= slog.LevelWarn:
		return LevelWarn
	case level >= slog.LevelInfo:
		return LevelInfo
	default:
		return LevelDebug
	}
}

func (h *slogHandler) Enabled(_ context.Context, level slog.Level) bool {
	min := h.log.GetLevel()
	return min != LevelNone && toLevel(level) >= min
}

func (h *slogHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	b.WriteString(h.fields)
	r.Attrs(func(a slog.Attr) bool {
		appendAttr(&b, h.group, a)
		return true
	})

	msg := r.Message
	if b.Len() > 0 {
		msg = strings.TrimSpace(msg + " " + strings.TrimSpace(b.String()))
	}
	h.log.write(toLevel(r.Level), "%s", msg)
	return nil
}

func (h *slogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	var b strings.Builder
	b.WriteString(h.fields)
	for _, a := range attrs {
		appendAttr(&b, h.group, a)
	}
	return &slogHandler{log: h.log, group: h.group, fields: b.String()}
}

func (h *slogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &slogHandler{log: h.log, group: joinKey(h.group, name), fields: h.fields}
}

func appendAttr(b *strings.Builder, group string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		sub := joinKey(group, a.Key)
		for _, nested := range a.Value.Group() {
			appendAttr(b, sub, nested)
		}
		return
	}
	key := a.Key
	if key == "" {
		key = "attr"
	}
	fmt.Fprintf(b, " %s=%v", joinKey(group, key), a.Value)
}

func joinKey(group, key string) string {
	if group == "" {
		return key
	}
	return group + "." + key
}
