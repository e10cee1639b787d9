package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"codemap/internal/diagram"
	"codemap/internal/engine"
	"codemap/internal/envelope"
	"codemap/internal/watcher"
)

var (
	watchPath  string
	watchScope string
	watchKinds []string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Regenerate diagrams when sources change",
	Long: `Watch a source tree. After each burst of changes to Python or TypeScript
files (or pyproject.toml / package.json) the scope's cached diagrams are
invalidated and the watched kinds are regenerated.

Kinds default to watch.kinds from the configuration.

Examples:
  codemap watch
  codemap watch --path backend --kind uml --kind dependency`,
	Args: cobra.NoArgs,
	Run:  runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchPath, "path", "", "Source directory to watch (default: repository root)")
	watchCmd.Flags().StringVar(&watchScope, "scope", "", "Cache scope id (default: absolute watched path)")
	watchCmd.Flags().StringArrayVar(&watchKinds, "kind", nil, "Diagram kind to regenerate (repeatable)")
	rootCmd.AddCommand(watchCmd)
}

// WatchResultCLI is the outcome of one kind in a regeneration pass
type WatchResultCLI struct {
	Kind     diagram.Kind `json:"kind"`
	CacheKey string       `json:"cacheKey,omitempty"`
	Stored   bool         `json:"stored"`
	Error    string       `json:"error,omitempty"`
}

// WatchPassCLI is printed after each regeneration pass
type WatchPassCLI struct {
	Changed     []string         `json:"changed,omitempty"`
	Invalidated int              `json:"invalidated"`
	Results     []WatchResultCLI `json:"results"`
}

func runWatch(cmd *cobra.Command, args []string) {
	s := newSession()
	defer s.Close()

	kinds, err := parseKinds(watchKinds, s.cfg.Watch.Kinds)
	if err != nil {
		s.fail(err)
	}

	path := resolvePath(watchPath, s.repoRoot)
	scope := resolveScope(watchScope, path)
	eng := s.mustOpenEngine(engine.Settings{Root: path})
	defer eng.Close()

	ctx, cancel := newContext()
	defer cancel()

	batches := make(chan []watcher.Event, 1)
	w, err := watcher.New(path, watcher.Config{
		DebounceMs: s.cfg.Watch.DebounceMs,
		Ignore:     s.cfg.Analysis.Ignore,
	}, s.logger, func(events []watcher.Event) {
		select {
		case batches <- events:
		case <-ctx.Done():
		}
	})
	if err != nil {
		_ = eng.Close()
		s.fail(err)
	}

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	printResponse(envelope.Operational(regenerate(ctx, eng, scope, kinds, nil, false, s.logger)))
	for {
		select {
		case <-ctx.Done():
			if err := <-done; err != nil {
				s.logger.Error("Watcher stopped", "error", err.Error())
			}
			return
		case err := <-done:
			if err != nil {
				_ = eng.Close()
				s.fail(err)
			}
			return
		case events := <-batches:
			printResponse(envelope.Operational(regenerate(ctx, eng, scope, kinds, events, true, s.logger)))
		}
	}
}

// parseKinds validates the requested kinds, falling back to defaults.
func parseKinds(requested, defaults []string) ([]diagram.Kind, error) {
	names := requested
	if len(names) == 0 {
		names = defaults
	}
	kinds := make([]diagram.Kind, 0, len(names))
	for _, name := range names {
		k, err := diagram.ParseKind(name)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

// regenerate invalidates the scope after a change and rebuilds every kind.
// The initial pass runs without invalidation and serves cached entries.
func regenerate(ctx context.Context, eng *engine.Engine, scope string, kinds []diagram.Kind, events []watcher.Event, changed bool, logger *slog.Logger) *WatchPassCLI {
	start := time.Now()
	pass := &WatchPassCLI{Results: make([]WatchResultCLI, 0, len(kinds))}
	for _, e := range events {
		pass.Changed = append(pass.Changed, e.Path)
	}

	if changed {
		n, err := eng.Cache().Invalidate(ctx, scope)
		if err != nil {
			logger.Warn("Cache invalidation failed", "scope", scope, "error", err.Error())
		}
		pass.Invalidated = n
	}

	for _, kind := range kinds {
		res := WatchResultCLI{Kind: kind}
		resp, err := eng.Generate(ctx, engine.Request{Kind: string(kind), ScopeID: scope, Refresh: changed})
		if err != nil {
			res.Error = err.Error()
		} else {
			res.CacheKey = resp.CacheKey
			res.Stored = resp.Stored
		}
		pass.Results = append(pass.Results, res)
	}

	logger.Info("Diagrams regenerated",
		"scope", scope,
		"changed", len(events),
		"kinds", len(kinds),
		"duration", time.Since(start).String(),
	)
	return pass
}
