package source

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	cmerrors "codemap/internal/errors"
	"codemap/internal/paths"
	"codemap/internal/slogutil"
)

// DirectoryFetcher reads a local source tree.
type DirectoryFetcher struct {
	Root        string
	Repository  Repository
	Ignore      []string
	MaxFiles    int
	MaxFileSize int64
	Concurrency int
	Logger      *slog.Logger
}

// Fetch walks Root, selects supported files in path order up to MaxFiles
// and reads them concurrently. Unreadable files are skipped and logged;
// a nil Logger discards.
func (d *DirectoryFetcher) Fetch(ctx context.Context, scope string) (*FileSet, error) {
	logger := d.Logger
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}

	info, err := os.Stat(d.Root)
	if err != nil {
		return nil, errInputUnavailable(scope, err)
	}
	if !info.IsDir() {
		return nil, errInputUnavailable(scope, fmt.Errorf("%s is not a directory", d.Root))
	}

	candidates, err := d.walk(ctx)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, errNoMatchingFiles(scope)
	}

	set := &FileSet{Repository: d.Repository}
	if d.MaxFiles > 0 && len(candidates) > d.MaxFiles {
		set.Dropped = append(set.Dropped, candidates[d.MaxFiles:]...)
		candidates = candidates[:d.MaxFiles]
		logger.Warn("File limit reached, dropping remaining files",
			"limit", d.MaxFiles,
			"dropped", len(set.Dropped),
		)
	}

	files, skipped, err := d.readAll(ctx, candidates, logger)
	if err != nil {
		return nil, err
	}
	set.Files = files
	set.Skipped = skipped
	if len(set.Files) == 0 {
		return nil, errNoMatchingFiles(scope)
	}

	set.Manifest = parseManifest(
		readOptional(filepath.Join(d.Root, pyprojectFile)),
		readOptional(filepath.Join(d.Root, packageJSONFile)),
	)

	logger.Debug("Fetched source files",
		"root", d.Root,
		"files", len(set.Files),
		"skipped", len(set.Skipped),
	)
	return set, nil
}

// walk returns repo-relative paths of supported files, sorted.
func (d *DirectoryFetcher) walk(ctx context.Context) ([]string, error) {
	ignore := make(map[string]bool, len(d.Ignore))
	for _, name := range d.Ignore {
		ignore[name] = true
	}

	var out []string
	err := filepath.WalkDir(d.Root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if entry.IsDir() {
			if path != d.Root && (ignore[entry.Name()] || strings.HasPrefix(entry.Name(), ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if _, ok := DetectLanguage(entry.Name()); !ok {
			return nil
		}
		rel, err := paths.CanonicalizePath(path, d.Root)
		if err != nil {
			return nil
		}
		out = append(out, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", d.Root, err)
	}

	sort.Strings(out)
	return out, nil
}

// readAll reads files with bounded concurrency. Result order is by path
// regardless of completion order.
func (d *DirectoryFetcher) readAll(ctx context.Context, rels []string, logger *slog.Logger) ([]File, []string, error) {
	limit := d.Concurrency
	if limit <= 0 {
		limit = 4
	}

	results := make([]*File, len(rels))
	var (
		mu      sync.Mutex
		skipped []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, rel := range rels {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			content, err := d.readFile(rel)
			if err != nil {
				logger.Warn("Skipping unreadable file", "path", rel, "error", err.Error())
				mu.Lock()
				skipped = append(skipped, rel)
				mu.Unlock()
				return nil
			}
			lang, _ := DetectLanguage(rel)
			results[i] = &File{Path: rel, Content: content, Language: lang}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	files := make([]File, 0, len(results))
	for _, f := range results {
		if f != nil {
			files = append(files, *f)
		}
	}
	sort.Strings(skipped)
	return files, skipped, nil
}

func (d *DirectoryFetcher) readFile(rel string) (string, error) {
	abs := paths.JoinRepoPath(d.Root, rel)
	if d.MaxFileSize > 0 {
		info, err := os.Stat(abs)
		if err != nil {
			return "", err
		}
		if info.Size() > d.MaxFileSize {
			return "", fmt.Errorf("file size %d exceeds limit %d", info.Size(), d.MaxFileSize)
		}
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func readOptional(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return string(data)
}

func errInputUnavailable(scope string, cause error) error {
	return cmerrors.New(cmerrors.InputUnavailable,
		fmt.Sprintf("no source available for scope %q; connect a repository first", scope),
		cause, nil)
}

func errNoMatchingFiles(scope string) error {
	return cmerrors.New(cmerrors.NoMatchingFiles,
		fmt.Sprintf("no Python or TypeScript files found for scope %q", scope),
		nil, nil)
}
