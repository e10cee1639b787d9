package slogutil

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseSize(t *testing.T) {
	tests := []struct {
		input string
		want  int64
	}{
		{"", 0},
		{"lots", 0},
		{"-5MB", 0},
		{"2048", 2048},
		{"512b", 512},
		{"1KB", 1 << 10},
		{"64k", 64 << 10},
		{"10MB", 10 << 20},
		{" 1.5 mb ", int64(1.5 * (1 << 20))},
		{"1G", 1 << 30},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseSize(tt.input); got != tt.want {
				t.Errorf("ParseSize(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestRotatingFile_KeepsBackups(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "codemap.log")

	rf, err := OpenRotatingFile(path, 30, 2)
	if err != nil {
		t.Fatalf("OpenRotatingFile failed: %v", err)
	}

	// each line is 20 bytes, so every write after the first rotates
	for _, line := range []string{"line-1 ............\n", "line-2 ............\n", "line-3 ............\n", "line-4 ............\n"} {
		if _, err := rf.Write([]byte(line)); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}
	if err := rf.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	want := map[string]string{
		path:        "line-4",
		path + ".1": "line-3",
		path + ".2": "line-2",
	}
	for p, marker := range want {
		data, err := os.ReadFile(p)
		if err != nil {
			t.Fatalf("missing %s: %v", p, err)
		}
		if !strings.HasPrefix(string(data), marker) {
			t.Errorf("%s = %q, want %s", filepath.Base(p), data, marker)
		}
	}
	if _, err := os.Stat(path + ".3"); !os.IsNotExist(err) {
		t.Error("backups beyond maxBackups should be removed")
	}
}

func TestRotatingFile_NoBackups(t *testing.T) {
	path := filepath.Join(t.TempDir(), "codemap.log")

	rf, err := OpenRotatingFile(path, 10, 0)
	if err != nil {
		t.Fatalf("OpenRotatingFile failed: %v", err)
	}
	defer rf.Close()

	_, _ = rf.Write([]byte("first....\n"))
	_, _ = rf.Write([]byte("second...\n"))

	data, _ := os.ReadFile(path)
	if string(data) != "second...\n" {
		t.Errorf("log = %q, want only the latest write", data)
	}
	if _, err := os.Stat(path + ".1"); !os.IsNotExist(err) {
		t.Error("no backup should be kept")
	}
}

func TestRotatingFile_WriteAfterClose(t *testing.T) {
	rf, err := OpenRotatingFile(filepath.Join(t.TempDir(), "codemap.log"), 0, 1)
	if err != nil {
		t.Fatalf("OpenRotatingFile failed: %v", err)
	}
	if err := rf.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := rf.Write([]byte("late")); err == nil {
		t.Error("expected an error writing to a closed file")
	}
	if err := rf.Close(); err != nil {
		t.Errorf("second Close should be a no-op, got %v", err)
	}
}

func TestNewFileLoggerWithRotation(t *testing.T) {
	dir := t.TempDir()

	logger, closer, err := NewFileLoggerWithRotation(filepath.Join(dir, "a.log"), slog.LevelInfo, "1MB", 3)
	if err != nil {
		t.Fatalf("NewFileLoggerWithRotation failed: %v", err)
	}
	if _, ok := closer.(*RotatingFile); !ok {
		t.Errorf("closer = %T, want *RotatingFile", closer)
	}
	logger.Info("Diagram served", "kind", "uml")
	_ = closer.Close()

	data, err := os.ReadFile(filepath.Join(dir, "a.log"))
	if err != nil || !strings.Contains(string(data), "kind=uml") {
		t.Errorf("log not written: %q, %v", data, err)
	}

	_, closer, err = NewFileLoggerWithRotation(filepath.Join(dir, "b.log"), slog.LevelInfo, "", 3)
	if err != nil {
		t.Fatalf("plain fallback failed: %v", err)
	}
	if _, ok := closer.(*os.File); !ok {
		t.Errorf("closer = %T, want *os.File for empty maxSize", closer)
	}
	_ = closer.Close()
}
