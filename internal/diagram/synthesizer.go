package diagram

import (
	"context"
	"log/slog"
	"time"

	"codemap/internal/architecture"
	cmerrors "codemap/internal/errors"
	"codemap/internal/extract"
	"codemap/internal/graph"
	"codemap/internal/modeldesc"
	"codemap/internal/slogutil"
	"codemap/internal/source"
)

// Input is everything a synthesizer may draw from. Graph is derived from
// Result when nil; Models feeds uml-models.
type Input struct {
	Result        *extract.Result
	Graph         *graph.Graph
	Models        []modeldesc.Model
	Repository    *source.Repository
	FilesAnalyzed int
}

// Options configures a Synthesizer
type Options struct {
	Rules      []architecture.Rule
	MaxClasses int
	Now        func() time.Time
	Logger     *slog.Logger
}

// Synthesizer produces diagram documents
type Synthesizer struct {
	rules      []architecture.Rule
	maxClasses int
	now        func() time.Time
	logger     *slog.Logger
	arch       *architecture.Generator
}

// New creates a synthesizer. Zero options use the default layer rules
// and no class limit.
func New(opts Options) *Synthesizer {
	s := &Synthesizer{
		rules:      opts.Rules,
		maxClasses: opts.MaxClasses,
		now:        opts.Now,
		logger:     opts.Logger,
	}
	if len(s.rules) == 0 {
		s.rules = architecture.DefaultRules()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = slogutil.NewDiscardLogger()
	}
	s.arch = architecture.NewGenerator(s.rules, s.logger)
	return s
}

// Synthesize builds the document of the given kind
func (s *Synthesizer) Synthesize(ctx context.Context, kind Kind, in Input) (Document, error) {
	if _, err := ParseKind(string(kind)); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := in.Result
	if result == nil {
		result = &extract.Result{}
	}
	g := in.Graph
	if g == nil && kind.NeedsSource() {
		g = graph.Build(result)
	}

	var (
		doc Document
		err error
	)
	switch kind {
	case KindUML:
		uml := buildUML(g)
		if err := ValidateUML(uml, s.maxClasses, true); err != nil {
			return nil, err
		}
		doc = uml
	case KindUMLModels:
		models, nerr := modeldesc.Normalize(in.Models)
		if nerr != nil {
			return nil, cmerrors.New(cmerrors.ValidationFailed, "invalid model descriptions", nerr, nil)
		}
		uml := buildUMLFromModels(models)
		if err := ValidateUML(uml, s.maxClasses, false); err != nil {
			return nil, err
		}
		doc = uml
	case KindDependency:
		doc, err = buildDependency(ctx, g, s.rules)
	case KindArchitecture:
		doc, err = buildArchitecture(ctx, g, s.arch)
	case KindComponentHierarchy:
		doc = buildComponentHierarchy(g)
	case KindServiceDependencies:
		doc = buildServiceDependencies(g)
	case KindModuleGraph:
		doc = buildModuleGraph(g)
	case KindRoutingStructure:
		doc = buildRouting(result.Routes)
	}
	if err != nil {
		return nil, err
	}

	meta := doc.Meta()
	meta.GeneratedAt = s.now().UTC()
	meta.AnalysisType = kind.AnalysisType()
	meta.SchemaVersion = SchemaVersion
	meta.Repository = in.Repository
	meta.FilesAnalyzed = in.FilesAnalyzed
	if failed := result.FailedPaths(); len(failed) > 0 {
		meta.FailedFiles = failed
	}
	if meta.Totals == nil {
		meta.Totals = map[string]int{}
	}

	s.logger.Debug("Diagram synthesized",
		"kind", string(kind),
		"empty", meta.Empty,
		"totals", meta.Totals,
	)
	return doc, nil
}
