// Package paths resolves repo-relative paths and the per-repository
// .codemap state directory.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// StateDirName is the per-repository state directory
	StateDirName = ".codemap"
	// DatabaseFile is the sqlite diagram cache inside the state directory
	DatabaseFile = "codemap.db"
	// ConfigFile is the configuration file inside the state directory
	ConfigFile = "config.json"
	// LogFile is the analysis log inside the logs directory
	LogFile = "codemap.log"
)

// StateDir returns <repoRoot>/.codemap
func StateDir(repoRoot string) string {
	return filepath.Join(repoRoot, StateDirName)
}

// EnsureStateDir creates <repoRoot>/.codemap if needed and returns it.
func EnsureStateDir(repoRoot string) (string, error) {
	dir := StateDir(repoRoot)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create %s directory: %w", StateDirName, err)
	}
	return dir, nil
}

// DatabasePath returns the sqlite cache path for a repository.
func DatabasePath(repoRoot string) string {
	return filepath.Join(StateDir(repoRoot), DatabaseFile)
}

// ConfigPath returns the config file path for a repository.
func ConfigPath(repoRoot string) string {
	return filepath.Join(StateDir(repoRoot), ConfigFile)
}

// LogsDir returns <repoRoot>/.codemap/logs
func LogsDir(repoRoot string) string {
	return filepath.Join(StateDir(repoRoot), "logs")
}

// EnsureLogsDir creates the logs directory if needed and returns it.
func EnsureLogsDir(repoRoot string) (string, error) {
	dir := LogsDir(repoRoot)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create logs directory: %w", err)
	}
	return dir, nil
}

// LogPath returns the analysis log path for a repository.
func LogPath(repoRoot string) string {
	return filepath.Join(LogsDir(repoRoot), LogFile)
}

// CanonicalizePath converts an absolute path to a repo-relative canonical path
// - Resolves symlinks to real paths
// - Makes path relative to repo root
// - Returns repo-relative path with forward slashes
func CanonicalizePath(absolutePath string, repoRoot string) (string, error) {
	resolved, err := filepath.EvalSymlinks(absolutePath)
	if err != nil {
		if !os.IsNotExist(err) {
			return "", err
		}
		resolved = absolutePath
	}

	repoRootResolved, err := filepath.EvalSymlinks(repoRoot)
	if err != nil {
		if !os.IsNotExist(err) {
			return "", err
		}
		repoRootResolved = repoRoot
	}

	relativePath, err := filepath.Rel(repoRootResolved, resolved)
	if err != nil {
		return "", err
	}

	return filepath.ToSlash(relativePath), nil
}

// IsWithinRepo checks if a path is within the repository root
func IsWithinRepo(path string, repoRoot string) bool {
	canonical, err := CanonicalizePath(path, repoRoot)
	if err != nil {
		return false
	}
	return canonical != ".." && !strings.HasPrefix(canonical, "../")
}

// NormalizePath converts backslashes to forward slashes and strips a leading "./"
func NormalizePath(path string) string {
	p := strings.ReplaceAll(path, "\\", "/")
	return strings.TrimPrefix(p, "./")
}

// Segments splits a normalized repo-relative path into its directory
// segments, excluding the file name.
func Segments(path string) []string {
	p := NormalizePath(path)
	idx := strings.LastIndex(p, "/")
	if idx < 0 {
		return nil
	}
	return strings.Split(p[:idx], "/")
}

// JoinRepoPath joins a repo root with a canonical path
func JoinRepoPath(repoRoot string, canonicalPath string) string {
	parts := strings.Split(NormalizePath(canonicalPath), "/")
	return filepath.Join(append([]string{repoRoot}, parts...)...)
}
