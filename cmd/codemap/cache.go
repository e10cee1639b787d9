package main

import (
	"github.com/spf13/cobra"

	"codemap/internal/engine"
	"codemap/internal/envelope"
)

var (
	cacheScope string
	cacheLimit int
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the diagram cache",
	Long:  "List, summarize and prune cached diagrams stored in .codemap/codemap.db",
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached diagrams, newest first",
	Long: `List cached diagrams, newest first. Expired rows stay listed until
cleanup removes them.

Examples:
  codemap cache list
  codemap cache list --scope /src/shop --limit 5`,
	Args: cobra.NoArgs,
	Run:  runCacheList,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the cache",
	Args:  cobra.NoArgs,
	Run:   runCacheStats,
}

var cacheCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete expired diagrams",
	Args:  cobra.NoArgs,
	Run:   runCacheCleanup,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete cached diagrams of a scope, or all of them",
	Args:  cobra.NoArgs,
	Run:   runCacheClear,
}

func init() {
	cacheListCmd.Flags().StringVar(&cacheScope, "scope", "", "Only list this scope")
	cacheListCmd.Flags().IntVar(&cacheLimit, "limit", 0, "Maximum rows (default: cache.listLimit)")
	cacheClearCmd.Flags().StringVar(&cacheScope, "scope", "", "Only clear this scope")

	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheCleanupCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

// CacheCountResponseCLI reports rows removed by cleanup or clear
type CacheCountResponseCLI struct {
	Action  string `json:"action"`
	Scope   string `json:"scope,omitempty"`
	Removed int    `json:"removed"`
}

func runCacheList(cmd *cobra.Command, args []string) {
	s := newSession()
	defer s.Close()
	eng := s.mustOpenEngine(engine.Settings{})
	defer eng.Close()

	ctx, cancel := newContext()
	defer cancel()

	entries, err := eng.Cache().List(ctx, cacheScope, cacheLimit)
	if err != nil {
		_ = eng.Close()
		s.fail(err)
	}
	for i := range entries {
		// payloads are large; list shows rows only
		entries[i].Data = nil
	}

	b := envelope.New().Data(entries)
	if len(entries) == 0 {
		b.Suggest("codemap generate architecture", "Generate a first diagram")
	}
	printResponse(b.Build())
}

func runCacheStats(cmd *cobra.Command, args []string) {
	s := newSession()
	defer s.Close()
	eng := s.mustOpenEngine(engine.Settings{})
	defer eng.Close()

	ctx, cancel := newContext()
	defer cancel()

	stats, err := eng.Cache().Stats(ctx)
	if err != nil {
		_ = eng.Close()
		s.fail(err)
	}

	b := envelope.New().Data(stats)
	if stats.Expired > 0 {
		b.Suggest("codemap cache cleanup", "Remove expired rows")
	}
	printResponse(b.Build())
}

func runCacheCleanup(cmd *cobra.Command, args []string) {
	s := newSession()
	defer s.Close()
	eng := s.mustOpenEngine(engine.Settings{})
	defer eng.Close()

	ctx, cancel := newContext()
	defer cancel()

	n, err := eng.Cache().CleanupExpired(ctx)
	if err != nil {
		_ = eng.Close()
		s.fail(err)
	}
	printResponse(envelope.Operational(&CacheCountResponseCLI{Action: "cleanup", Removed: n}))
}

func runCacheClear(cmd *cobra.Command, args []string) {
	s := newSession()
	defer s.Close()
	eng := s.mustOpenEngine(engine.Settings{})
	defer eng.Close()

	ctx, cancel := newContext()
	defer cancel()

	n, err := eng.Cache().Invalidate(ctx, cacheScope)
	if err != nil {
		_ = eng.Close()
		s.fail(err)
	}
	printResponse(envelope.Operational(&CacheCountResponseCLI{Action: "clear", Scope: cacheScope, Removed: n}))
}
