package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"codemap/internal/cache"
	"codemap/internal/engine"
	"codemap/internal/envelope"
	cmerrors "codemap/internal/errors"
	"codemap/internal/version"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatHuman OutputFormat = "human"
)

// FormatResponse formats a response according to the specified format
func FormatResponse(resp interface{}, format OutputFormat) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(resp)
	case FormatHuman:
		return formatHuman(resp)
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

// formatJSON formats the response as JSON
func formatJSON(resp interface{}) (string, error) {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

// formatHuman formats the response in human-readable format
func formatHuman(resp interface{}) (string, error) {
	env, ok := resp.(*envelope.Response)
	if !ok {
		return formatJSON(resp)
	}

	var b strings.Builder
	if env.Error != nil {
		writeErrorHuman(&b, env.Error)
		return b.String(), nil
	}

	var body string
	var err error
	switch v := env.Data.(type) {
	case *engine.Response:
		body = formatGenerateHuman(v)
	case *ExtractResponseCLI:
		body = formatExtractHuman(v)
	case []cache.Entry:
		body = formatCacheListHuman(v)
	case *cache.Stats:
		body = formatCacheStatsHuman(v)
	case *CacheCountResponseCLI:
		body = fmt.Sprintf("Cache %s: %d entries removed\n", v.Action, v.Removed)
	case *WatchPassCLI:
		body = formatWatchHuman(v)
	case *VersionResponseCLI:
		body = version.Full() + "\nGo: " + v.GoVersion + "\n"
	default:
		body, err = formatJSON(env.Data)
		if err != nil {
			return "", err
		}
		body += "\n"
	}
	b.WriteString(body)
	writeMetaHuman(&b, env)
	return b.String(), nil
}

func writeErrorHuman(b *strings.Builder, e *envelope.ErrorInfo) {
	if e.Code != "" {
		b.WriteString(fmt.Sprintf("Error [%s]: %s\n", e.Code, e.Message))
	} else {
		b.WriteString(fmt.Sprintf("Error: %s\n", e.Message))
	}
	fixes, _ := e.Fixes.([]cmerrors.FixAction)
	if len(fixes) == 0 {
		return
	}
	b.WriteString("Suggested fixes:\n")
	for _, fix := range fixes {
		b.WriteString(fmt.Sprintf("  - %s\n", fix.Description))
		if fix.Command != "" {
			b.WriteString(fmt.Sprintf("    $ %s\n", fix.Command))
		}
	}
}

func writeMetaHuman(b *strings.Builder, env *envelope.Response) {
	if m := env.Meta; m != nil && m.Confidence != nil && len(m.Confidence.Factors) > 0 {
		b.WriteString(fmt.Sprintf("\nConfidence: %s (%.0f%%)\n", m.Confidence.Tier, m.Confidence.Score*100))
	}
	if len(env.Warnings) > 0 {
		b.WriteString("\nWarnings:\n")
		for _, w := range env.Warnings {
			b.WriteString(fmt.Sprintf("  ! %s\n", w.Message))
		}
	}
	if len(env.SuggestedNextCalls) > 0 {
		b.WriteString("\nSuggested Follow-ups:\n")
		for i, s := range env.SuggestedNextCalls {
			b.WriteString(fmt.Sprintf("  %d. %s\n", i+1, s.Reason))
			b.WriteString(fmt.Sprintf("     $ %s\n", s.Command))
		}
	}
}

// formatGenerateHuman summarizes a diagram response
func formatGenerateHuman(resp *engine.Response) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Diagram: %s\n", resp.DiagramType))
	b.WriteString(strings.Repeat("=", 60) + "\n\n")
	b.WriteString(fmt.Sprintf("Scope: %s\n", resp.ScopeID))
	source := "generated"
	if resp.Cached {
		source = "cache"
	}
	b.WriteString(fmt.Sprintf("Source: %s (key %s)\n", source, shortKey(resp.CacheKey)))
	b.WriteString(fmt.Sprintf("Generated: %s\n", resp.GeneratedAt.Format("2006-01-02 15:04:05 MST")))

	if m := resp.Metadata; m != nil {
		b.WriteString(fmt.Sprintf("Files analyzed: %d\n", m.FilesAnalyzed))
		if len(m.Totals) > 0 {
			b.WriteString("Totals:\n")
			for _, k := range sortedKeys(m.Totals) {
				b.WriteString(fmt.Sprintf("  %s: %d\n", k, m.Totals[k]))
			}
		}
		if m.Empty {
			b.WriteString(fmt.Sprintf("\n%s\n", m.Message))
		}
	}
	if len(resp.Truncated) > 0 {
		b.WriteString(fmt.Sprintf("Dropped by file limit: %d\n", len(resp.Truncated)))
	}
	return b.String()
}

// formatExtractHuman lists entities grouped by file
func formatExtractHuman(resp *ExtractResponseCLI) string {
	var b strings.Builder

	b.WriteString("Extraction\n")
	b.WriteString(strings.Repeat("=", 60) + "\n\n")
	b.WriteString(fmt.Sprintf("Files: %d, Entities: %d, Relationships: %d\n\n",
		len(resp.Files), len(resp.Entities), len(resp.Relationships)))

	current := ""
	for _, e := range resp.Entities {
		if e.FilePath != current {
			current = e.FilePath
			b.WriteString(current + "\n")
		}
		b.WriteString(fmt.Sprintf("  %s (%s)\n", e.Name, e.Kind))
	}

	if len(resp.Failures) > 0 {
		b.WriteString("\nFailed files:\n")
		for _, f := range resp.Failures {
			b.WriteString(fmt.Sprintf("  %s: %s\n", f.Path, f.Error))
		}
	}
	return b.String()
}

// formatCacheListHuman prints one line per cached diagram
func formatCacheListHuman(entries []cache.Entry) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Cached diagrams: %d\n", len(entries)))
	b.WriteString(strings.Repeat("=", 60) + "\n\n")
	for _, e := range entries {
		state := "live"
		if e.IsExpired {
			state = "expired"
		}
		b.WriteString(fmt.Sprintf("%s  %-20s %-8s hits=%d  %s\n",
			shortKey(e.CacheKey), e.Kind, state, e.AccessCount, e.ScopeID))
	}
	return b.String()
}

// formatCacheStatsHuman summarizes the cache store
func formatCacheStatsHuman(s *cache.Stats) string {
	var b strings.Builder

	b.WriteString("Cache\n")
	b.WriteString(strings.Repeat("=", 60) + "\n\n")
	b.WriteString(fmt.Sprintf("Entries: %d (%d live, %d expired)\n", s.Total, s.Live, s.Expired))
	b.WriteString(fmt.Sprintf("Size: %s\n", formatBytes(s.TotalBytes)))
	b.WriteString(fmt.Sprintf("Hits: %d\n", s.AccessCount))
	if len(s.ByKind) > 0 {
		b.WriteString("By kind:\n")
		for _, k := range sortedKeys(s.ByKind) {
			b.WriteString(fmt.Sprintf("  %s: %d\n", k, s.ByKind[k]))
		}
	}
	return b.String()
}

// formatWatchHuman reports one regeneration pass
func formatWatchHuman(p *WatchPassCLI) string {
	var b strings.Builder

	if len(p.Changed) > 0 {
		b.WriteString(fmt.Sprintf("Changed: %s\n", strings.Join(p.Changed, ", ")))
		b.WriteString(fmt.Sprintf("Invalidated: %d\n", p.Invalidated))
	}
	for _, r := range p.Results {
		if r.Error != "" {
			b.WriteString(fmt.Sprintf("  ✗ %s: %s\n", r.Kind, r.Error))
			continue
		}
		b.WriteString(fmt.Sprintf("  ✓ %s (%s)\n", r.Kind, shortKey(r.CacheKey)))
	}
	return b.String()
}

func shortKey(key string) string {
	if len(key) > 12 {
		return key[:12]
	}
	return key
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// formatBytes formats byte size in human-readable format
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
