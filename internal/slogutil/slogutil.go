package slogutil

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// LevelSilent is above every standard level.
const LevelSilent = slog.Level(100)

// NewLogger creates a logger in the line format.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(NewLineHandler(w, &slog.HandlerOptions{Level: level}))
}

// NewHandler returns a handler for the configured format: "json" selects
// slog's JSON handler, anything else the line format.
func NewHandler(w io.Writer, level slog.Level, format string) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(format, "json") {
		return slog.NewJSONHandler(w, opts)
	}
	return NewLineHandler(w, opts)
}

// NewFileLogger appends line-format records to path, creating the file
// and its directory when missing.
func NewFileLogger(path string, level slog.Level) (*slog.Logger, *os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return NewLogger(f, level), f, nil
}

// NewDiscardLogger returns a logger that drops everything.
func NewDiscardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

var levelNames = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

// LevelFromString maps debug, info, warn or error (any case) to a level.
// Anything else is info.
func LevelFromString(s string) slog.Level {
	if l, ok := levelNames[strings.ToLower(strings.TrimSpace(s))]; ok {
		return l
	}
	return slog.LevelInfo
}

// LevelFromVerbosity maps CLI flags to the stderr level: warn by default,
// info for -v, debug for -vv, silent for --quiet.
func LevelFromVerbosity(verbosity int, quiet bool) slog.Level {
	switch {
	case quiet:
		return LevelSilent
	case verbosity <= 0:
		return slog.LevelWarn
	case verbosity == 1:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}

// TeeHandler fans records out to every handler enabled for their level.
type TeeHandler []slog.Handler

// NewTeeHandler creates a handler that writes to all provided handlers.
func NewTeeHandler(handlers ...slog.Handler) TeeHandler {
	return TeeHandler(handlers)
}

func (t TeeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t TeeHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range t {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (t TeeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return t.each(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (t TeeHandler) WithGroup(name string) slog.Handler {
	return t.each(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (t TeeHandler) each(fn func(slog.Handler) slog.Handler) TeeHandler {
	out := make(TeeHandler, len(t))
	for i, h := range t {
		out[i] = fn(h)
	}
	return out
}

// NewTeeLogger creates a logger that writes to multiple destinations.
func NewTeeLogger(handlers ...slog.Handler) *slog.Logger {
	return slog.New(NewTeeHandler(handlers...))
}
