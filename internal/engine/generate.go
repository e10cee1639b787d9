package engine

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"codemap/internal/cache"
	"codemap/internal/diagram"
	cmerrors "codemap/internal/errors"
	"codemap/internal/render"
)

// Output formats
const (
	FormatJSON = "json"
	FormatSVG  = "svg"
)

// Request asks for one diagram of a scope
type Request struct {
	Kind    string
	ScopeID string
	// Format is json (default) or svg
	Format string
	// Refresh bypasses a live cache entry
	Refresh bool
}

// Response is the API document returned for a diagram request. Data holds
// the diagram JSON, or a JSON string of SVG markup for the svg format.
type Response struct {
	DiagramType diagram.Kind    `json:"diagram_type"`
	ScopeID     string          `json:"scope_id"`
	Data        json.RawMessage `json:"data"`
	Format      string          `json:"format"`
	Cached      bool            `json:"cached"`
	Stored      bool            `json:"stored"`
	Warning     string          `json:"warning,omitempty"`
	CacheKey    string          `json:"cache_key"`
	RunID       string          `json:"run_id"`
	GeneratedAt time.Time       `json:"generated_at"`
	// Truncated lists files left out by the per-run file limit
	Truncated []string `json:"truncated,omitempty"`

	// Metadata of the served document
	Metadata *diagram.Metadata `json:"-"`
}

// SVG returns the markup of an svg response
func (r *Response) SVG() string {
	var s string
	if r.Format != FormatSVG || json.Unmarshal(r.Data, &s) != nil {
		return ""
	}
	return s
}

// Generate returns the diagram for req, served from the cache when a live
// entry exists. A cache store failure is reported in Warning, never as an
// error.
func (e *Engine) Generate(ctx context.Context, req Request) (*Response, error) {
	kind, err := diagram.ParseKind(req.Kind)
	if err != nil {
		return nil, err
	}
	format := strings.ToLower(strings.TrimSpace(req.Format))
	switch format {
	case "":
		format = FormatJSON
	case FormatJSON, FormatSVG:
	default:
		return nil, cmerrors.Newf(cmerrors.UnsupportedKind, "unsupported output format %q", req.Format)
	}
	scope := strings.TrimSpace(req.ScopeID)
	if scope == "" {
		return nil, cmerrors.Newf(cmerrors.ScopeInvalid, "scope id is empty")
	}

	runID := uuid.New().String()
	logger := e.logger.With("runId", runID, "kind", string(kind), "scope", scope)
	logger.Info("Diagram requested", "format", format, "refresh", req.Refresh)

	var truncated []string
	out, err := e.cache.GetOrGenerate(ctx, cache.Request{
		Kind:       string(kind),
		ScopeID:    scope,
		Format:     FormatJSON,
		Parameters: map[string]string{"run_id": runID},
		Refresh:    req.Refresh,
	}, func(ctx context.Context) ([]byte, error) {
		doc, dropped, err := e.synthesize(ctx, kind, scope, logger)
		if err != nil {
			return nil, err
		}
		truncated = dropped
		return diagram.Marshal(doc)
	})
	if err != nil {
		logger.Error("Diagram generation failed", "error", err.Error())
		return nil, err
	}

	resp := &Response{
		DiagramType: kind,
		ScopeID:     scope,
		Data:        out.Artifact.Data,
		Format:      format,
		Cached:      out.Cached,
		Stored:      out.Stored,
		CacheKey:    out.Artifact.CacheKey,
		RunID:       runID,
		GeneratedAt: out.Artifact.GeneratedAt,
		Truncated:   truncated,
	}
	if out.StoreErr != nil {
		resp.Warning = "diagram generated but not cached: " + out.StoreErr.Error()
	}

	doc, err := diagram.Decode(kind, out.Artifact.Data)
	if err != nil {
		return nil, err
	}
	resp.Metadata = doc.Meta()

	if format == FormatSVG {
		svg, err := render.Render(doc)
		if err != nil {
			return nil, err
		}
		if resp.Data, err = json.Marshal(string(svg)); err != nil {
			return nil, cmerrors.New(cmerrors.InternalError, "failed to encode svg", err, nil)
		}
	}

	logger.Info("Diagram served",
		"cached", resp.Cached,
		"stored", resp.Stored,
		"bytes", len(out.Artifact.Data),
	)
	return resp, nil
}

// synthesize runs the pipeline behind a cache miss. It returns the files
// dropped by the file limit alongside the document.
func (e *Engine) synthesize(ctx context.Context, kind diagram.Kind, scope string, logger *slog.Logger) (diagram.Document, []string, error) {
	if !kind.NeedsSource() {
		if e.models == nil {
			return nil, nil, cmerrors.New(cmerrors.InputUnavailable,
				"no model descriptions configured", nil,
				[]cmerrors.FixAction{{Type: cmerrors.Configure, Description: "Pass --models with a YAML or TOML description file"}},
			)
		}
		models, err := e.models.Models(ctx)
		if err != nil {
			return nil, nil, err
		}
		doc, err := e.synth.Synthesize(ctx, kind, diagram.Input{Models: models})
		return doc, nil, err
	}

	a, err := e.analyze(ctx, scope, logger)
	if err != nil {
		return nil, nil, err
	}
	repo := a.Files.Repository
	doc, err := e.synth.Synthesize(ctx, kind, diagram.Input{
		Result:        a.Result,
		Graph:         a.Graph,
		Repository:    &repo,
		FilesAnalyzed: a.Files.Len(),
	})
	if err != nil {
		return nil, nil, err
	}
	return doc, a.Files.Dropped, nil
}
