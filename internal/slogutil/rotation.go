package slogutil

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// RotatingFile is an append-only log file that is moved aside once it
// would grow past maxSize. Backups are numbered path.1 (newest) through
// path.N; older ones are removed.
type RotatingFile struct {
	mu         sync.Mutex
	path       string
	maxSize    int64
	maxBackups int

	f    *os.File
	size int64
}

// OpenRotatingFile opens path for appending. maxSize <= 0 never rotates;
// maxBackups == 0 discards the old file on rotation.
func OpenRotatingFile(path string, maxSize int64, maxBackups int) (*RotatingFile, error) {
	r := &RotatingFile{path: path, maxSize: maxSize, maxBackups: maxBackups}
	if err := r.open(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *RotatingFile) open() error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return err
	}
	r.f, r.size = f, info.Size()
	return nil
}

// Write appends p, rotating first when p would overflow a non-empty file.
// A failed rotation keeps writing to the current file.
func (r *RotatingFile) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.f == nil {
		return 0, os.ErrClosed
	}
	if r.maxSize > 0 && r.size > 0 && r.size+int64(len(p)) > r.maxSize {
		if err := r.rotate(); err != nil && r.f == nil {
			return 0, err
		}
	}
	n, err := r.f.Write(p)
	r.size += int64(n)
	return n, err
}

func (r *RotatingFile) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.f == nil {
		return nil
	}
	err := r.f.Close()
	r.f = nil
	return err
}

func (r *RotatingFile) rotate() error {
	if err := r.f.Close(); err != nil {
		return err
	}
	r.f = nil

	if r.maxBackups <= 0 {
		_ = os.Remove(r.path)
	} else {
		_ = os.Remove(r.backup(r.maxBackups))
		for n := r.maxBackups - 1; n >= 1; n-- {
			_ = os.Rename(r.backup(n), r.backup(n+1))
		}
		_ = os.Rename(r.path, r.backup(1))
	}
	return r.open()
}

func (r *RotatingFile) backup(n int) string {
	return r.path + "." + strconv.Itoa(n)
}

var sizeUnits = []struct {
	suffix string
	factor float64
}{
	{"GB", 1 << 30},
	{"MB", 1 << 20},
	{"KB", 1 << 10},
	{"G", 1 << 30},
	{"M", 1 << 20},
	{"K", 1 << 10},
	{"B", 1},
}

// ParseSize converts "10MB", "512kb" or "2048" into bytes. Units are
// binary. Empty or malformed input yields 0.
func ParseSize(s string) int64 {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return 0
	}
	factor := 1.0
	for _, u := range sizeUnits {
		if rest, ok := strings.CutSuffix(s, u.suffix); ok {
			s, factor = strings.TrimSpace(rest), u.factor
			break
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0
	}
	return int64(v * factor)
}

// NewFileLoggerWithRotation returns a line-format logger over a rotating
// file. An empty or invalid maxSize falls back to a plain file.
func NewFileLoggerWithRotation(path string, level slog.Level, maxSize string, maxBackups int) (*slog.Logger, io.Closer, error) {
	size := ParseSize(maxSize)
	if size <= 0 {
		return NewFileLogger(path, level)
	}
	rf, err := OpenRotatingFile(path, size, maxBackups)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return NewLogger(rf, level), rf, nil
}
