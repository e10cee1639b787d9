package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"codemap/internal/diagram"
	"codemap/internal/engine"
	"codemap/internal/envelope"
)

var (
	genPath      string
	genScope     string
	genOutput    string
	genRefresh   bool
	genNoCacheDB bool
	genModels    string
)

var generateCmd = &cobra.Command{
	Use:   "generate <kind>",
	Short: "Generate a diagram",
	Long: `Generate one diagram for a source tree.

Kinds:
  uml                   Python data-model classes
  uml-models            classes from a model description file (--models)
  dependency            entity dependency graph
  architecture          layered architecture view
  component-hierarchy   Angular component nesting
  service-dependencies  Angular service injection
  module-graph          Angular NgModule relations
  routing-structure     Angular routes

A diagram generated today for the same kind and scope is served from the
cache unless --refresh is given.

Examples:
  codemap generate uml
  codemap generate architecture --path backend --output svg > arch.svg
  codemap generate uml-models --models models.yaml
  codemap generate dependency --refresh --no-cache-db`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: kindNames(),
	Run:       runGenerate,
}

func init() {
	generateCmd.Flags().StringVar(&genPath, "path", "", "Source directory to analyze (default: repository root)")
	generateCmd.Flags().StringVar(&genScope, "scope", "", "Cache scope id (default: absolute analyzed path)")
	generateCmd.Flags().StringVar(&genOutput, "output", "json", "Diagram output (json, svg)")
	generateCmd.Flags().BoolVar(&genRefresh, "refresh", false, "Bypass the cache and regenerate")
	generateCmd.Flags().BoolVar(&genNoCacheDB, "no-cache-db", false, "Use an in-memory cache instead of .codemap/codemap.db")
	generateCmd.Flags().StringVar(&genModels, "models", "", "YAML or TOML model description file for uml-models")
	rootCmd.AddCommand(generateCmd)
}

func kindNames() []string {
	kinds := diagram.Kinds()
	out := make([]string, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, string(k))
	}
	return out
}

func runGenerate(cmd *cobra.Command, args []string) {
	s := newSession()
	defer s.Close()

	path := resolvePath(genPath, s.repoRoot)
	settings := engine.Settings{Root: path, MemoryCache: genNoCacheDB}
	if genModels != "" {
		settings.ModelsPath = resolvePath(genModels, s.repoRoot)
	}
	eng := s.mustOpenEngine(settings)
	defer eng.Close()

	ctx, cancel := newContext()
	defer cancel()

	resp, err := eng.Generate(ctx, engine.Request{
		Kind:    args[0],
		ScopeID: resolveScope(genScope, path),
		Format:  genOutput,
		Refresh: genRefresh,
	})
	if err != nil {
		_ = eng.Close()
		s.fail(err)
	}

	if resp.Format == engine.FormatSVG {
		fmt.Println(resp.SVG())
		return
	}
	printResponse(buildGenerateEnvelope(resp, time.Now()))
}

// buildGenerateEnvelope wraps a diagram response with coverage, cache and
// provenance metadata.
func buildGenerateEnvelope(resp *engine.Response, now time.Time) *envelope.Response {
	b := envelope.New().Data(resp)

	var analysis string
	if m := resp.Metadata; m != nil {
		analysis = m.AnalysisType
		if resp.DiagramType.NeedsSource() {
			b.FromCoverage(envelope.Coverage{
				Analyzed: m.FilesAnalyzed,
				Failed:   len(m.FailedFiles),
				Dropped:  len(resp.Truncated),
			})
		} else {
			b.FromCoverage(envelope.Coverage{})
		}
		if len(m.FailedFiles) > 0 {
			b.WarningWithCode("UNPARSEABLE_FILES", fmt.Sprintf("%d files could not be parsed", len(m.FailedFiles)))
		}
		if m.Empty {
			b.Warning(m.Message)
		}
		b.WithTruncation(len(resp.Truncated) > 0, m.FilesAnalyzed, m.FilesAnalyzed+len(resp.Truncated), "max-files")
	}

	b.WithProvenance(resp.ScopeID, resp.RunID, analysis).
		WithCache(resp.Cached, resp.Stored, resp.CacheKey, resp.GeneratedAt, now).
		Warning(resp.Warning)

	kind := string(resp.DiagramType)
	if resp.Cached {
		b.Suggest("codemap generate "+kind+" --refresh", "Regenerate from the current sources")
	}
	if len(resp.Truncated) > 0 {
		b.Suggest("codemap config show", "Raise analysis.maxFiles to include the dropped files")
	}
	b.Suggest("codemap generate "+kind+" --output svg", "Render the diagram as SVG")
	return b.Build()
}
