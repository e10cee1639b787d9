// Package source supplies the file maps an analysis run works on.
//
// The analysis core never talks to a repository host. It receives a
// FileSet: repository-relative paths with UTF-8 contents plus the
// repository coordinates used in diagram metadata.
package source

import (
	"context"
	"sort"
	"strings"

	"codemap/internal/paths"
)

// Language identifies the extractor family for a file
type Language string

const (
	LanguagePython     Language = "python"
	LanguageTypeScript Language = "typescript"
)

// DetectLanguage returns the language of a path, or false when no
// extractor handles it. Declaration files (.d.ts) are skipped.
func DetectLanguage(path string) (Language, bool) {
	p := strings.ToLower(path)
	switch {
	case strings.HasSuffix(p, ".py"):
		return LanguagePython, true
	case strings.HasSuffix(p, ".d.ts"):
		return "", false
	case strings.HasSuffix(p, ".ts"):
		return LanguageTypeScript, true
	}
	return "", false
}

// File is one source file of a run. It is never persisted.
type File struct {
	Path     string   `json:"path"`
	Content  string   `json:"-"`
	Language Language `json:"language"`
}

// Repository holds the coordinates of the analyzed codebase
type Repository struct {
	Owner string `json:"owner,omitempty"`
	Name  string `json:"name,omitempty"`
	URL   string `json:"url,omitempty"`
}

// FileSet is the input of one analysis run.
type FileSet struct {
	Repository Repository `json:"repository"`
	// Files sorted by path
	Files []File `json:"files"`
	// Dropped lists supported files beyond the per-run limit
	Dropped []string `json:"dropped,omitempty"`
	// Skipped lists files that could not be read
	Skipped  []string  `json:"skipped,omitempty"`
	Manifest *Manifest `json:"manifest,omitempty"`
}

// NewFileSet builds a FileSet from a path to content map. Unsupported
// files are ignored, the rest are sorted by path and capped at maxFiles
// (0 means unlimited). A root-level pyproject.toml or package.json in the
// map feeds the manifest.
func NewFileSet(repo Repository, contents map[string]string, maxFiles int) *FileSet {
	fs := &FileSet{Repository: repo}

	var manifestFiles = map[string]string{}
	for rawPath, content := range contents {
		p := paths.NormalizePath(rawPath)
		switch p {
		case pyprojectFile, packageJSONFile:
			manifestFiles[p] = content
			continue
		}
		lang, ok := DetectLanguage(p)
		if !ok {
			continue
		}
		fs.Files = append(fs.Files, File{Path: p, Content: content, Language: lang})
	}

	sort.Slice(fs.Files, func(i, j int) bool {
		return fs.Files[i].Path < fs.Files[j].Path
	})

	if maxFiles > 0 && len(fs.Files) > maxFiles {
		for _, f := range fs.Files[maxFiles:] {
			fs.Dropped = append(fs.Dropped, f.Path)
		}
		fs.Files = fs.Files[:maxFiles]
	}

	fs.Manifest = parseManifest(manifestFiles[pyprojectFile], manifestFiles[packageJSONFile])
	return fs
}

// Len returns the number of files in the set
func (fs *FileSet) Len() int {
	if fs == nil {
		return 0
	}
	return len(fs.Files)
}

// Languages returns the distinct languages present, sorted.
func (fs *FileSet) Languages() []Language {
	seen := map[Language]bool{}
	var out []Language
	for _, f := range fs.Files {
		if !seen[f.Language] {
			seen[f.Language] = true
			out = append(out, f.Language)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Fetcher obtains the file set for an analysis scope.
type Fetcher interface {
	Fetch(ctx context.Context, scope string) (*FileSet, error)
}

// StaticFetcher serves an in-memory file map, typically one already
// pulled by a remote transport.
type StaticFetcher struct {
	Repository Repository
	Files      map[string]string
	MaxFiles   int
}

// Fetch implements Fetcher
func (s *StaticFetcher) Fetch(ctx context.Context, scope string) (*FileSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(s.Files) == 0 {
		return nil, errInputUnavailable(scope, nil)
	}
	fs := NewFileSet(s.Repository, s.Files, s.MaxFiles)
	if fs.Len() == 0 {
		return nil, errNoMatchingFiles(scope)
	}
	return fs, nil
}
