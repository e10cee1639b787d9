package main

import (
	"github.com/spf13/cobra"

	"codemap/internal/engine"
	"codemap/internal/envelope"
	"codemap/internal/extract"
	"codemap/internal/graph"
	"codemap/internal/source"
)

var extractPath string

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Dump extracted entities and relationships",
	Long: `Run extraction and graph building without synthesizing a diagram.
Nothing is cached.

Examples:
  codemap extract
  codemap extract --path frontend/src --format human`,
	Args: cobra.NoArgs,
	Run:  runExtract,
}

func init() {
	extractCmd.Flags().StringVar(&extractPath, "path", "", "Source directory to analyze (default: repository root)")
	rootCmd.AddCommand(extractCmd)
}

// ExtractResponseCLI is the payload of `codemap extract`
type ExtractResponseCLI struct {
	Repository    source.Repository    `json:"repository"`
	Files         []source.File        `json:"files"`
	Entities      []extract.Entity     `json:"entities"`
	Relationships []graph.Relationship `json:"relationships"`
	Routes        []extract.Route      `json:"routes,omitempty"`
	Failures      []extract.Failure    `json:"failures,omitempty"`
	Dropped       []string             `json:"dropped,omitempty"`
}

func runExtract(cmd *cobra.Command, args []string) {
	s := newSession()
	defer s.Close()

	path := resolvePath(extractPath, s.repoRoot)
	eng := s.mustOpenEngine(engine.Settings{Root: path, MemoryCache: true})
	defer eng.Close()

	ctx, cancel := newContext()
	defer cancel()

	a, err := eng.Analyze(ctx, path)
	if err != nil {
		_ = eng.Close()
		s.fail(err)
	}
	printResponse(buildExtractEnvelope(a, path))
}

func buildExtractEnvelope(a *engine.Analysis, scope string) *envelope.Response {
	data := &ExtractResponseCLI{
		Repository:    a.Files.Repository,
		Files:         a.Files.Files,
		Entities:      a.Graph.Entities,
		Relationships: a.Graph.Relationships,
		Routes:        a.Result.Routes,
		Failures:      a.Result.Failures,
		Dropped:       a.Files.Dropped,
	}

	b := envelope.New().
		Data(data).
		FromCoverage(envelope.Coverage{
			Analyzed: a.Files.Len(),
			Failed:   len(a.Result.Failures),
			Dropped:  len(a.Files.Dropped),
		}).
		WithProvenance(scope, "", "extraction").
		WithTruncation(len(a.Files.Dropped) > 0, a.Files.Len(), a.Files.Len()+len(a.Files.Dropped), "max-files")
	for _, f := range a.Result.Failures {
		b.WarningWithCode("UNPARSEABLE_FILE", f.Path+": "+f.Error)
	}
	if len(data.Entities) > 0 {
		b.Suggest("codemap generate dependency", "Draw the extracted relationships")
	}
	return b.Build()
}
