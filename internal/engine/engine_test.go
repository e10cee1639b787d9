package engine

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codemap/internal/cache"
	"codemap/internal/config"
	"codemap/internal/diagram"
	cmerrors "codemap/internal/errors"
	"codemap/internal/extract"
	"codemap/internal/modeldesc"
	"codemap/internal/source"
)

const shopModels = `from django.db import models


class Customer(models.Model):
    name = models.CharField(max_length=80)


class Order(models.Model):
    customer = models.ForeignKey("Customer", on_delete=models.CASCADE)
`

const shopService = `from models.order import Order


class OrderService:
    def place(self, order: Order):
        return order
`

var testNow = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func shopFetcher() *source.StaticFetcher {
	return &source.StaticFetcher{
		Repository: source.Repository{Owner: "acme", Name: "shop"},
		Files: map[string]string{
			"models/order.py":           shopModels,
			"services/order_service.py": shopService,
			"README.md":                 "# shop",
		},
	}
}

func newEngine(t *testing.T, store cache.Store, models modeldesc.Source) *Engine {
	t.Helper()
	now := func() time.Time { return testNow }
	e, err := New(Options{
		Fetcher: shopFetcher(),
		Models:  models,
		Cache:   cache.NewManager(store, cache.Options{Now: now}),
		Synthesizer: diagram.New(diagram.Options{
			MaxClasses: 100,
			Now:        now,
		}),
		Extract: extract.Options{InternalPrefixes: []string{"models", "services"}},
	})
	require.NoError(t, err)
	return e
}

func TestNew_RequiresFetcher(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestGenerate_MissThenHit(t *testing.T) {
	e := newEngine(t, cache.NewMemoryStore(), nil)
	ctx := context.Background()

	first, err := e.Generate(ctx, Request{Kind: "uml", ScopeID: "repo-1"})
	require.NoError(t, err)
	assert.Equal(t, diagram.KindUML, first.DiagramType)
	assert.Equal(t, FormatJSON, first.Format)
	assert.False(t, first.Cached)
	assert.True(t, first.Stored)
	assert.Empty(t, first.Warning)
	assert.NotEmpty(t, first.RunID)
	assert.Equal(t, cache.Key("uml", "repo-1", testNow), first.CacheKey)
	require.NotNil(t, first.Metadata)
	assert.Equal(t, 2, first.Metadata.FilesAnalyzed)

	var doc diagram.UMLDocument
	require.NoError(t, json.Unmarshal(first.Data, &doc))
	var names []string
	for _, c := range doc.Classes {
		names = append(names, c.Name)
	}
	assert.ElementsMatch(t, []string{"Customer", "Order"}, names)
	assert.Equal(t, 2, doc.Metadata.FilesAnalyzed)
	require.NotNil(t, doc.Metadata.Repository)
	assert.Equal(t, "shop", doc.Metadata.Repository.Name)

	second, err := e.Generate(ctx, Request{Kind: "uml", ScopeID: "repo-1"})
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, string(first.Data), string(second.Data))
	assert.NotEqual(t, first.RunID, second.RunID)

	refreshed, err := e.Generate(ctx, Request{Kind: "uml", ScopeID: "repo-1", Refresh: true})
	require.NoError(t, err)
	assert.False(t, refreshed.Cached)
}

func TestGenerate_SVG(t *testing.T) {
	e := newEngine(t, cache.NewMemoryStore(), nil)
	ctx := context.Background()

	resp, err := e.Generate(ctx, Request{Kind: "dependency", ScopeID: "repo-1", Format: "SVG"})
	require.NoError(t, err)
	assert.Equal(t, FormatSVG, resp.Format)
	svg := resp.SVG()
	assert.True(t, strings.HasPrefix(svg, "<svg"))
	assert.Contains(t, svg, "OrderService")

	// the cached artifact stays JSON; a json request is a hit
	again, err := e.Generate(ctx, Request{Kind: "dependency", ScopeID: "repo-1"})
	require.NoError(t, err)
	assert.True(t, again.Cached)
	assert.Equal(t, "", again.SVG())
	assert.True(t, json.Valid(again.Data))
}

type brokenStore struct {
	*cache.MemoryStore
}

func (brokenStore) Upsert(ctx context.Context, a *cache.Artifact) error {
	return errors.New("database is locked")
}

func TestGenerate_StoreFailureIsWarning(t *testing.T) {
	e := newEngine(t, brokenStore{cache.NewMemoryStore()}, nil)

	resp, err := e.Generate(context.Background(), Request{Kind: "architecture", ScopeID: "repo-1"})
	require.NoError(t, err)
	assert.False(t, resp.Cached)
	assert.False(t, resp.Stored)
	assert.Contains(t, resp.Warning, "not cached")

	var doc diagram.ArchitectureDocument
	require.NoError(t, json.Unmarshal(resp.Data, &doc))
	assert.NotEmpty(t, doc.Layers)
}

func TestGenerate_BadRequests(t *testing.T) {
	e := newEngine(t, cache.NewMemoryStore(), nil)
	ctx := context.Background()

	tests := []struct {
		name string
		req  Request
		code cmerrors.ErrorCode
	}{
		{"unknown kind", Request{Kind: "flowchart", ScopeID: "repo-1"}, cmerrors.UnsupportedKind},
		{"unknown format", Request{Kind: "uml", ScopeID: "repo-1", Format: "png"}, cmerrors.UnsupportedKind},
		{"empty scope", Request{Kind: "uml", ScopeID: "  "}, cmerrors.ScopeInvalid},
		{"models without source", Request{Kind: "uml-models", ScopeID: "repo-1"}, cmerrors.InputUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Generate(ctx, tt.req)
			require.Error(t, err)
			assert.True(t, cmerrors.Is(err, tt.code), "got %v", err)
		})
	}
}

func TestGenerate_InputUnavailable(t *testing.T) {
	e, err := New(Options{Fetcher: &source.StaticFetcher{}})
	require.NoError(t, err)

	_, err = e.Generate(context.Background(), Request{Kind: "uml", ScopeID: "repo-1"})
	require.Error(t, err)
	assert.True(t, cmerrors.Is(err, cmerrors.InputUnavailable))

	// nothing is cached for a failed run
	entries, err := e.Cache().List(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestGenerate_UMLModels(t *testing.T) {
	models := modeldesc.StaticSource{
		{Name: "Order", Fields: []modeldesc.Field{
			{Name: "id", Type: "int", PrimaryKey: true},
			{Name: "customer", Relation: "Customer"},
		}},
		{Name: "Customer", Fields: []modeldesc.Field{{Name: "id", Type: "int", PrimaryKey: true}}},
	}
	e := newEngine(t, cache.NewMemoryStore(), models)

	resp, err := e.Generate(context.Background(), Request{Kind: "uml_models", ScopeID: "repo-1"})
	require.NoError(t, err)
	assert.Equal(t, diagram.KindUMLModels, resp.DiagramType)

	var doc diagram.UMLDocument
	require.NoError(t, json.Unmarshal(resp.Data, &doc))
	require.Len(t, doc.Classes, 2)
	assert.Equal(t, "model_descriptions", doc.Metadata.AnalysisType)
}

func TestAnalyze(t *testing.T) {
	e := newEngine(t, cache.NewMemoryStore(), nil)

	a, err := e.Analyze(context.Background(), "repo-1")
	require.NoError(t, err)
	assert.Equal(t, 2, a.Files.Len())
	var names []string
	for _, ent := range a.Result.Entities {
		names = append(names, ent.Name)
	}
	assert.ElementsMatch(t, []string{"Customer", "Order", "OrderService"}, names)
	assert.NotEmpty(t, a.Graph.Relationships)
}

func TestGenerate_FileLimit(t *testing.T) {
	fetcher := shopFetcher()
	fetcher.MaxFiles = 1
	e, err := New(Options{
		Fetcher: fetcher,
		Extract: extract.Options{InternalPrefixes: []string{"models", "services"}},
	})
	require.NoError(t, err)

	resp, err := e.Generate(context.Background(), Request{Kind: "dependency", ScopeID: "repo-1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"services/order_service.py"}, resp.Truncated)
}

func TestOpen_SQLite(t *testing.T) {
	repo := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(repo, "models"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(repo, "models", "order.py"), []byte(shopModels), 0o644))

	cfg := config.DefaultConfig()
	cfg.Analysis.InternalPrefixes = []string{"models"}
	now := func() time.Time { return testNow }

	e, err := Open(repo, cfg, Settings{Now: now}, nil)
	require.NoError(t, err)

	ctx := context.Background()
	first, err := e.Generate(ctx, Request{Kind: "uml", ScopeID: repo})
	require.NoError(t, err)
	assert.True(t, first.Stored)
	require.NoError(t, e.Close())

	_, err = os.Stat(filepath.Join(repo, ".codemap", "codemap.db"))
	require.NoError(t, err)

	// a second process sees the persisted artifact
	e, err = Open(repo, cfg, Settings{Now: now}, nil)
	require.NoError(t, err)
	defer e.Close()

	second, err := e.Generate(ctx, Request{Kind: "uml", ScopeID: repo})
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.JSONEq(t, string(first.Data), string(second.Data))

	stats, err := e.Cache().Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.AccessCount)
}

func TestOpen_MemoryBackend(t *testing.T) {
	repo := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(repo, "app.py"), []byte("class App:\n    pass\n"), 0o644))

	e, err := Open(repo, nil, Settings{MemoryCache: true}, nil)
	require.NoError(t, err)
	defer e.Close()

	resp, err := e.Generate(context.Background(), Request{Kind: "architecture", ScopeID: "local"})
	require.NoError(t, err)
	assert.True(t, resp.Stored)

	_, err = os.Stat(filepath.Join(repo, ".codemap"))
	assert.True(t, os.IsNotExist(err))
}
