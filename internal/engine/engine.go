// Package engine wires source fetching, extraction, synthesis and the
// diagram cache into one request/response operation.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"codemap/internal/architecture"
	"codemap/internal/cache"
	"codemap/internal/config"
	"codemap/internal/diagram"
	"codemap/internal/extract"
	"codemap/internal/graph"
	"codemap/internal/modeldesc"
	"codemap/internal/slogutil"
	"codemap/internal/source"
	"codemap/internal/storage"
)

// Options assembles an Engine from explicit collaborators
type Options struct {
	Fetcher     source.Fetcher
	Models      modeldesc.Source
	Cache       *cache.Manager
	Synthesizer *diagram.Synthesizer
	Extract     extract.Options
	Logger      *slog.Logger
}

// Engine serves diagram requests
type Engine struct {
	fetcher source.Fetcher
	models  modeldesc.Source
	cache   *cache.Manager
	synth   *diagram.Synthesizer
	extract extract.Options
	logger  *slog.Logger
}

// New creates an engine. A nil cache uses an in-memory store; a nil
// synthesizer uses the default layer rules.
func New(opts Options) (*Engine, error) {
	if opts.Fetcher == nil {
		return nil, fmt.Errorf("engine: a source fetcher is required")
	}
	e := &Engine{
		fetcher: opts.Fetcher,
		models:  opts.Models,
		cache:   opts.Cache,
		synth:   opts.Synthesizer,
		extract: opts.Extract,
		logger:  opts.Logger,
	}
	if e.logger == nil {
		e.logger = slogutil.NewDiscardLogger()
	}
	if e.cache == nil {
		e.cache = cache.NewManager(cache.NewMemoryStore(), cache.Options{Logger: e.logger})
	}
	if e.synth == nil {
		e.synth = diagram.New(diagram.Options{Logger: e.logger})
	}
	return e, nil
}

// Settings select the local collaborators built by Open
type Settings struct {
	// Root is the source tree to analyze; defaults to the repository root
	Root string
	// ModelsPath is an optional YAML or TOML model description file
	ModelsPath string
	// MemoryCache skips the sqlite store
	MemoryCache bool
	Now         func() time.Time
}

// Open builds an engine over a local checkout using cfg. The cache lives
// in <repoRoot>/.codemap/codemap.db unless the memory backend is chosen.
func Open(repoRoot string, cfg *config.Config, s Settings, logger *slog.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	root := s.Root
	if root == "" {
		root = repoRoot
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve source root: %w", err)
	}

	var store cache.Store
	if s.MemoryCache || cfg.Cache.Backend == "memory" {
		store = cache.NewMemoryStore()
	} else {
		db, err := storage.Open(repoRoot, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		store = storage.NewCacheStore(db, cfg.Cache.CompressThresholdBytes)
	}

	cacheOpts := cache.OptionsFromConfig(cfg.Cache)
	cacheOpts.Now = s.Now
	cacheOpts.Logger = logger

	opts := Options{
		Fetcher: &source.DirectoryFetcher{
			Root:        root,
			Repository:  source.Repository{Name: filepath.Base(root)},
			Ignore:      cfg.Analysis.Ignore,
			MaxFiles:    cfg.Analysis.MaxFiles,
			MaxFileSize: int64(cfg.Analysis.MaxFileSizeBytes),
			Concurrency: cfg.Analysis.FetchConcurrency,
			Logger:      logger,
		},
		Cache: cache.NewManager(store, cacheOpts),
		Synthesizer: diagram.New(diagram.Options{
			Rules:      architecture.RulesFromConfig(cfg.Layers),
			MaxClasses: cfg.UML.MaxClasses,
			Now:        s.Now,
			Logger:     logger,
		}),
		Extract: extract.Options{
			InternalPrefixes: cfg.Analysis.InternalPrefixes,
			AliasPrefixes:    cfg.Analysis.AliasPrefixes,
		},
		Logger: logger,
	}
	if s.ModelsPath != "" {
		opts.Models = &modeldesc.FileSource{Path: s.ModelsPath}
	}
	return New(opts)
}

// Cache exposes the artifact cache for listing and maintenance
func (e *Engine) Cache() *cache.Manager {
	return e.cache
}

// Close releases the cache store
func (e *Engine) Close() error {
	return e.cache.Close()
}

// Analysis is the intermediate product of one fetch and extraction pass
type Analysis struct {
	Files  *source.FileSet `json:"files"`
	Result *extract.Result `json:"result"`
	Graph  *graph.Graph    `json:"graph"`
}

// Analyze fetches the scope's files, extracts entities and relates them
func (e *Engine) Analyze(ctx context.Context, scope string) (*Analysis, error) {
	return e.analyze(ctx, scope, e.logger)
}

func (e *Engine) analyze(ctx context.Context, scope string, logger *slog.Logger) (*Analysis, error) {
	files, err := e.fetcher.Fetch(ctx, scope)
	if err != nil {
		return nil, err
	}
	if len(files.Dropped) > 0 {
		logger.Warn("Analysis truncated to the file limit",
			"analyzed", files.Len(),
			"dropped", len(files.Dropped),
		)
	}

	opts := e.extract
	opts.Manifest = files.Manifest
	result, err := extract.Run(ctx, files.Files, extract.DefaultExtractors(opts), logger)
	if err != nil {
		return nil, err
	}
	return &Analysis{Files: files, Result: result, Graph: graph.Build(result)}, nil
}
