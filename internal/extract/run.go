package extract

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"codemap/internal/source"
)

// Extractors maps a language to its extractor
type Extractors map[source.Language]Extractor

// DefaultExtractors returns the Python and Angular extractors
func DefaultExtractors(opts Options) Extractors {
	return Extractors{
		source.LanguagePython:     NewPythonExtractor(opts),
		source.LanguageTypeScript: NewAngularExtractor(opts),
	}
}

// Run extracts every file and merges the results in path order. A file
// whose extractor fails or panics contributes nothing and is listed in
// Failures. Only context cancellation is returned as an error.
func Run(ctx context.Context, files []source.File, extractors Extractors, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	ordered := make([]source.File, len(files))
	copy(ordered, files)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Path < ordered[j].Path
	})

	result := &Result{
		Files:    []FileResult{},
		Entities: []Entity{},
	}
	for _, f := range ordered {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		ex, ok := extractors[f.Language]
		if !ok {
			continue
		}
		fr, err := safeExtract(ex, f)
		if err != nil {
			logger.Warn("Skipping file that failed extraction",
				"path", f.Path,
				"error", err.Error(),
			)
			result.Failures = append(result.Failures, Failure{Path: f.Path, Error: err.Error()})
			continue
		}

		result.Files = append(result.Files, *fr)
		result.Entities = append(result.Entities, fr.Entities...)
		result.Routes = append(result.Routes, fr.Routes...)
	}

	logger.Debug("Extraction complete",
		"files", len(result.Files),
		"entities", len(result.Entities),
		"routes", len(result.Routes),
		"failed", len(result.Failures),
	)
	return result, nil
}

func safeExtract(ex Extractor, f source.File) (fr *FileResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			fr = nil
			err = fmt.Errorf("extractor panic: %v", r)
		}
	}()
	fr, err = ex.Extract(f.Path, f.Content)
	if err == nil && fr == nil {
		err = fmt.Errorf("extractor returned no result")
	}
	return fr, err
}
