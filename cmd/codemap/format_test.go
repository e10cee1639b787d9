package main

import (
	"errors"
	"strings"
	"testing"
	"time"

	"codemap/internal/cache"
	"codemap/internal/diagram"
	"codemap/internal/engine"
	"codemap/internal/envelope"
	cmerrors "codemap/internal/errors"
)

func TestFormatResponse_JSON(t *testing.T) {
	resp := map[string]interface{}{
		"key": "value",
		"num": 42,
	}

	result, err := FormatResponse(resp, FormatJSON)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(result, `"key": "value"`) {
		t.Error("JSON output missing expected key")
	}
	if !strings.Contains(result, `"num": 42`) {
		t.Error("JSON output missing expected number")
	}
}

func TestFormatResponse_UnsupportedFormat(t *testing.T) {
	_, err := FormatResponse(map[string]string{"key": "value"}, "xml")
	if err == nil {
		t.Fatal("expected error for unsupported format")
	}
	if !strings.Contains(err.Error(), "unsupported format") {
		t.Errorf("error should mention unsupported format, got: %v", err)
	}
}

func TestFormatHuman_Error(t *testing.T) {
	err := cmerrors.New(cmerrors.InputUnavailable, "no source files found", nil, []cmerrors.FixAction{
		{Type: cmerrors.RunCommand, Description: "Check the path", Command: "codemap generate uml --path src"},
	})
	resp := envelope.New().Error(err).Build()

	out, fmtErr := FormatResponse(resp, FormatHuman)
	if fmtErr != nil {
		t.Fatalf("unexpected error: %v", fmtErr)
	}
	for _, want := range []string{"Error [INPUT_UNAVAILABLE]", "Check the path", "$ codemap generate uml --path src"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestFormatHuman_PlainError(t *testing.T) {
	resp := envelope.New().Error(errors.New("disk full")).Build()

	out, err := FormatResponse(resp, FormatHuman)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "Error: disk full") {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestFormatHuman_Generate(t *testing.T) {
	resp := &engine.Response{
		DiagramType: diagram.KindArchitecture,
		ScopeID:     "repo-1",
		Cached:      true,
		CacheKey:    "0123456789abcdef0123456789abcdef",
		GeneratedAt: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
		Metadata: &diagram.Metadata{
			FilesAnalyzed: 3,
			Totals:        map[string]int{"layers": 2, "components": 5},
		},
	}
	env := envelope.New().Data(resp).Warning("partial").Suggest("codemap generate architecture --refresh", "Regenerate").Build()

	out, err := FormatResponse(env, FormatHuman)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{
		"Diagram: architecture",
		"Source: cache (key 0123456789ab)",
		"Files analyzed: 3",
		"  components: 5\n  layers: 2",
		"! partial",
		"$ codemap generate architecture --refresh",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestFormatHuman_CacheList(t *testing.T) {
	entries := []cache.Entry{
		{Artifact: cache.Artifact{CacheKey: "aaaaaaaaaaaaaaaa", Kind: "uml", ScopeID: "repo-1", AccessCount: 4}},
		{Artifact: cache.Artifact{CacheKey: "bbbbbbbbbbbbbbbb", Kind: "dependency", ScopeID: "repo-2"}, IsExpired: true},
	}

	out, err := FormatResponse(envelope.New().Data(entries).Build(), FormatHuman)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "Cached diagrams: 2") {
		t.Errorf("missing count:\n%s", out)
	}
	if !strings.Contains(out, "hits=4") || !strings.Contains(out, "expired") {
		t.Errorf("missing row details:\n%s", out)
	}
}

func TestFormatHuman_FallsBackToJSON(t *testing.T) {
	out, err := FormatResponse(envelope.Operational([]string{"CODEMAP_LOG_LEVEL"}), FormatHuman)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, `"CODEMAP_LOG_LEVEL"`) {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KiB"},
		{5 * 1024 * 1024, "5.0 MiB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.in); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
