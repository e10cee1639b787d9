package slogutil

import (
	"bytes"
	"context"
	"log/slog"
	"regexp"
	"strings"
	"testing"
	"time"
)

var lineFormat = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}Z \[(debug|info|warn|error)\] .+\n$`)

func TestLineHandler(t *testing.T) {
	tests := []struct {
		name string
		log  func(*slog.Logger)
		want string
	}{
		{
			name: "plain attrs",
			log:  func(l *slog.Logger) { l.Info("Diagram served", "kind", "uml", "bytes", 42) },
			want: "[info] Diagram served | kind=uml bytes=42",
		},
		{
			name: "no attrs",
			log:  func(l *slog.Logger) { l.Warn("Cache miss") },
			want: "[warn] Cache miss\n",
		},
		{
			name: "quoted string",
			log:  func(l *slog.Logger) { l.Info("Skipping file", "error", "unexpected indent") },
			want: `error="unexpected indent"`,
		},
		{
			name: "empty string",
			log:  func(l *slog.Logger) { l.Info("Fetch", "scope", "") },
			want: `scope=""`,
		},
		{
			name: "duration",
			log:  func(l *slog.Logger) { l.Debug("Extraction complete", "took", 1500*time.Millisecond) },
			want: "took=1.5s",
		},
		{
			name: "group attr",
			log: func(l *slog.Logger) {
				l.Info("Cache stats", slog.Group("cache", slog.Int("hits", 2), slog.Int("misses", 1)))
			},
			want: "cache.hits=2 cache.misses=1",
		},
		{
			name: "with attrs and group",
			log: func(l *slog.Logger) {
				l.With("runId", "r1").WithGroup("fetch").Info("Done", "files", 3)
			},
			want: "| runId=r1 fetch.files=3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.log(NewLogger(&buf, slog.LevelDebug))

			out := buf.String()
			if !lineFormat.MatchString(out) {
				t.Errorf("line does not match format: %q", out)
			}
			if !strings.Contains(out, tt.want) {
				t.Errorf("output %q does not contain %q", out, tt.want)
			}
		})
	}
}

func TestLineHandler_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelWarn)

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	out := buf.String()
	for _, dropped := range []string{"debug message", "info message"} {
		if strings.Contains(out, dropped) {
			t.Errorf("%q should be filtered", dropped)
		}
	}
	for _, kept := range []string{"warn message", "error message"} {
		if !strings.Contains(out, kept) {
			t.Errorf("%q should be included", kept)
		}
	}
}

func TestLevelFromString(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{" warn ", slog.LevelWarn},
		{"Warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := LevelFromString(tt.input); got != tt.want {
			t.Errorf("LevelFromString(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestLevelFromVerbosity(t *testing.T) {
	tests := []struct {
		verbosity int
		quiet     bool
		want      slog.Level
	}{
		{0, false, slog.LevelWarn},
		{1, false, slog.LevelInfo},
		{2, false, slog.LevelDebug},
		{4, false, slog.LevelDebug},
		{2, true, LevelSilent},
	}

	for _, tt := range tests {
		if got := LevelFromVerbosity(tt.verbosity, tt.quiet); got != tt.want {
			t.Errorf("LevelFromVerbosity(%d, %v) = %v, want %v", tt.verbosity, tt.quiet, got, tt.want)
		}
	}
}

func TestTeeHandler(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := NewTeeLogger(
		NewLineHandler(&stderr, &slog.HandlerOptions{Level: slog.LevelWarn}),
		NewLineHandler(&file, &slog.HandlerOptions{Level: slog.LevelDebug}),
	).With("runId", "r1")

	logger.Debug("Extracting file")
	logger.Warn("Analysis truncated")

	if strings.Contains(stderr.String(), "Extracting file") {
		t.Error("stderr should not receive debug records")
	}
	if !strings.Contains(stderr.String(), "Analysis truncated | runId=r1") {
		t.Errorf("stderr missing warn record: %q", stderr.String())
	}
	if strings.Count(file.String(), "runId=r1") != 2 {
		t.Errorf("file should receive both records: %q", file.String())
	}
}

func TestNewHandler_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, slog.LevelInfo, "JSON"))
	logger.Info("Diagram generated", "kind", "uml", "classes", 3)

	out := buf.String()
	if !strings.Contains(out, `"msg":"Diagram generated"`) || !strings.Contains(out, `"kind":"uml"`) {
		t.Errorf("expected JSON record, got: %s", out)
	}
}

func TestNewDiscardLogger(t *testing.T) {
	logger := NewDiscardLogger()
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Error("discard logger should not be enabled")
	}
	logger.Error("dropped")
}
