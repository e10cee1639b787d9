// Package slogutil builds the slog loggers used by codemap: a compact
// line format for humans, JSON for machines, and file sinks under the
// repository's .codemap directory.
package slogutil

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
)

// LineHandler writes one line per record:
//
//	2026-03-14T09:00:00Z [info] Diagram served | runId=... cached=true
//
// String values containing spaces, quotes or '=' are quoted.
type LineHandler struct {
	w     io.Writer
	level slog.Leveler
	mu    *sync.Mutex

	// prefix is prepended to keys, "a.b." inside groups a and b
	prefix string
	// preformatted holds rendered WithAttrs attributes
	preformatted string
}

// NewLineHandler creates a line handler writing to w.
func NewLineHandler(w io.Writer, opts *slog.HandlerOptions) *LineHandler {
	var level slog.Leveler = slog.LevelInfo
	if opts != nil && opts.Level != nil {
		level = opts.Level
	}
	return &LineHandler{w: w, level: level, mu: &sync.Mutex{}}
}

func (h *LineHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *LineHandler) Handle(_ context.Context, r slog.Record) error {
	var sb strings.Builder

	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	sb.WriteString(ts.UTC().Format(time.RFC3339))
	sb.WriteString(" [")
	sb.WriteString(levelString(r.Level))
	sb.WriteString("] ")
	sb.WriteString(r.Message)

	attrs := h.preformatted
	if r.NumAttrs() > 0 {
		var rec strings.Builder
		r.Attrs(func(a slog.Attr) bool {
			appendAttr(&rec, h.prefix, a)
			return true
		})
		attrs += rec.String()
	}
	if attrs != "" {
		sb.WriteString(" |")
		sb.WriteString(attrs)
	}
	sb.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, sb.String())
	return err
}

func (h *LineHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	var sb strings.Builder
	for _, a := range attrs {
		appendAttr(&sb, h.prefix, a)
	}
	h2 := *h
	h2.preformatted = h.preformatted + sb.String()
	return &h2
}

func (h *LineHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	h2.prefix = h.prefix + name + "."
	return &h2
}

// appendAttr renders " key=value", flattening groups into dotted keys.
func appendAttr(sb *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		p := prefix
		if a.Key != "" {
			p += a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			appendAttr(sb, p, ga)
		}
		return
	}
	if a.Key == "" {
		return
	}
	sb.WriteByte(' ')
	sb.WriteString(prefix)
	sb.WriteString(a.Key)
	sb.WriteByte('=')
	sb.WriteString(formatValue(a.Value))
}

func levelString(level slog.Level) string {
	switch {
	case level < slog.LevelInfo:
		return "debug"
	case level < slog.LevelWarn:
		return "info"
	case level < slog.LevelError:
		return "warn"
	default:
		return "error"
	}
}

func formatValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		s := v.String()
		if s == "" || strings.ContainsAny(s, " \t\n\"=") {
			return strconv.Quote(s)
		}
		return s
	case slog.KindTime:
		return v.Time().UTC().Format(time.RFC3339)
	case slog.KindDuration:
		return v.Duration().String()
	default:
		return fmt.Sprint(v.Any())
	}
}
