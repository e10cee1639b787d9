package slogutil

import (
	"io"
	"log/slog"
	"os"

	"codemap/internal/config"
	"codemap/internal/paths"
)

// LoggerFactory builds the loggers used by one CLI invocation.
// Precedence for the file level: CLI flag > config > info.
type LoggerFactory struct {
	repoRoot string
	config   *config.Config
	cliLevel *slog.Level
	closers  []io.Closer
}

// NewLoggerFactory creates a new logger factory. cliLevel is nil when no
// verbosity flag was given.
func NewLoggerFactory(repoRoot string, cfg *config.Config, cliLevel *slog.Level) *LoggerFactory {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &LoggerFactory{
		repoRoot: repoRoot,
		config:   cfg,
		cliLevel: cliLevel,
	}
}

// AnalysisLogger writes to <repoRoot>/.codemap/logs/codemap.log.
// Falls back to a discard logger when the file cannot be opened.
func (f *LoggerFactory) AnalysisLogger() *slog.Logger {
	if f.repoRoot == "" {
		return NewDiscardLogger()
	}
	if _, err := paths.EnsureLogsDir(f.repoRoot); err != nil {
		return NewDiscardLogger()
	}

	logger, closer, err := f.createFileLogger(paths.LogPath(f.repoRoot), f.fileLevel())
	if err != nil {
		return NewDiscardLogger()
	}
	f.closers = append(f.closers, closer)
	return logger
}

// CLILogger tees stderr (at the verbosity level) and the analysis log file.
func (f *LoggerFactory) CLILogger(stderrLevel slog.Level) *slog.Logger {
	stderr := NewHandler(os.Stderr, stderrLevel, f.config.Logging.Format)
	file := f.AnalysisLogger().Handler()
	return NewTeeLogger(stderr, file)
}

func (f *LoggerFactory) createFileLogger(path string, level slog.Level) (*slog.Logger, io.Closer, error) {
	if f.config.Logging.MaxSize != "" {
		return NewFileLoggerWithRotation(path, level, f.config.Logging.MaxSize, f.config.Logging.MaxBackups)
	}
	return NewFileLogger(path, level)
}

func (f *LoggerFactory) fileLevel() slog.Level {
	if f.cliLevel != nil && *f.cliLevel < LevelSilent {
		return *f.cliLevel
	}
	if f.config.Logging.Level != "" {
		return LevelFromString(f.config.Logging.Level)
	}
	return slog.LevelInfo
}

// Close closes all open log files.
func (f *LoggerFactory) Close() error {
	var firstErr error
	for _, c := range f.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	f.closers = nil
	return firstErr
}
