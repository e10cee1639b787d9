// Package watcher reports changes to analyzable source files under a
// directory tree, batched by a debounce window.
package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"codemap/internal/paths"
	"codemap/internal/slogutil"
	"codemap/internal/source"
)

// EventType represents the type of file system event
type EventType int

const (
	EventCreate EventType = iota
	EventModify
	EventDelete
	EventRename
)

// String returns a string representation of the event type
func (e EventType) String() string {
	switch e {
	case EventCreate:
		return "create"
	case EventModify:
		return "modify"
	case EventDelete:
		return "delete"
	case EventRename:
		return "rename"
	default:
		return "unknown"
	}
}

// Event is a change to one file. Path is relative to the watched root.
type Event struct {
	Type      EventType
	Path      string
	Timestamp time.Time
}

// ChangeHandler is called with each debounced batch
type ChangeHandler func(events []Event)

// Config contains watcher configuration
type Config struct {
	DebounceMs int
	// Ignore lists directory names that are never watched
	Ignore []string
}

// DefaultConfig returns the default watcher configuration
func DefaultConfig() Config {
	return Config{
		DebounceMs: 500,
		Ignore:     []string{".git", ".codemap", "node_modules", "__pycache__", "dist", "build"},
	}
}

// Watcher watches a source tree with fsnotify
type Watcher struct {
	root    string
	config  Config
	logger  *slog.Logger
	handler ChangeHandler
	ignore  map[string]bool

	fsw       *fsnotify.Watcher
	debouncer *BatchDebouncer

	mu      sync.Mutex
	running bool
}

// New creates a watcher over root. Call Run to start watching.
func New(root string, config Config, logger *slog.Logger, handler ChangeHandler) (*Watcher, error) {
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	if config.DebounceMs <= 0 {
		config.DebounceMs = DefaultConfig().DebounceMs
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		root:    abs,
		config:  config,
		logger:  logger,
		handler: handler,
		ignore:  make(map[string]bool, len(config.Ignore)),
		fsw:     fsw,
	}
	for _, name := range config.Ignore {
		w.ignore[name] = true
	}
	w.debouncer = NewBatchDebouncer(time.Duration(config.DebounceMs)*time.Millisecond, w.emit)
	return w, nil
}

// Run watches until ctx is done. Pending events are flushed on return.
func (w *Watcher) Run(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()
	defer w.fsw.Close()

	if err := w.addRecursive(w.root); err != nil {
		return err
	}
	w.logger.Info("Watching source tree", "root", w.root, "debounceMs", w.config.DebounceMs)

	for {
		select {
		case <-ctx.Done():
			w.debouncer.Flush()
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("File watcher error", "error", err.Error())
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if !w.IsIgnored(ev.Name) {
				if err := w.addRecursive(ev.Name); err != nil {
					w.logger.Warn("Failed to watch new directory", "path", ev.Name, "error", err.Error())
				}
			}
			return
		}
	}
	if w.IsIgnored(ev.Name) || !Relevant(ev.Name) {
		return
	}

	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil {
		return
	}
	w.debouncer.Add(Event{
		Type:      convertOp(ev.Op),
		Path:      paths.NormalizePath(rel),
		Timestamp: time.Now(),
	})
}

func (w *Watcher) emit(events []Event) {
	w.logger.Debug("Source changes detected", "files", len(events))
	if w.handler != nil {
		w.handler(events)
	}
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && w.IsIgnored(path) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

// IsIgnored reports whether any path segment below the root is an
// ignored or hidden directory name
func (w *Watcher) IsIgnored(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == "." {
		return false
	}
	for _, seg := range strings.Split(filepath.ToSlash(rel), "/") {
		if w.ignore[seg] || (strings.HasPrefix(seg, ".") && seg != "." && seg != "..") {
			return true
		}
	}
	return false
}

// Relevant reports whether a change to path can alter a diagram: a
// supported source file or a project manifest.
func Relevant(path string) bool {
	switch filepath.Base(path) {
	case "pyproject.toml", "package.json":
		return true
	}
	_, ok := source.DetectLanguage(path)
	return ok
}

func convertOp(op fsnotify.Op) EventType {
	switch {
	case op.Has(fsnotify.Create):
		return EventCreate
	case op.Has(fsnotify.Remove):
		return EventDelete
	case op.Has(fsnotify.Rename):
		return EventRename
	default:
		return EventModify
	}
}
