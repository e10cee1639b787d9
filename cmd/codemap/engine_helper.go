package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"codemap/internal/config"
	"codemap/internal/engine"
	"codemap/internal/envelope"
	"codemap/internal/slogutil"
)

// session holds what one command invocation shares: the repository,
// its configuration and the loggers.
type session struct {
	repoRoot string
	cfg      *config.Config
	logger   *slog.Logger
	factory  *slogutil.LoggerFactory
}

// newSession resolves the repository and builds the CLI logger.
func newSession() *session {
	repoRoot := mustGetRepoRoot()
	cfg := loadConfig(repoRoot)

	level := slogutil.LevelFromVerbosity(verbosity, quietFlag)
	var cliLevel *slog.Level
	if verbosity > 0 || quietFlag {
		cliLevel = &level
	}
	factory := slogutil.NewLoggerFactory(repoRoot, cfg, cliLevel)

	return &session{
		repoRoot: repoRoot,
		cfg:      cfg,
		logger:   factory.CLILogger(level),
		factory:  factory,
	}
}

// Close flushes and closes log files.
func (s *session) Close() {
	_ = s.factory.Close()
}

// mustOpenEngine opens the engine or exits with an error envelope.
func (s *session) mustOpenEngine(settings engine.Settings) *engine.Engine {
	eng, err := engine.Open(s.repoRoot, s.cfg, settings, s.logger)
	if err != nil {
		s.fail(fmt.Errorf("failed to initialize engine: %w", err))
	}
	return eng
}

// fail prints err as an envelope and exits.
func (s *session) fail(err error) {
	s.logger.Error("Command failed", "error", err.Error())
	printResponse(envelope.New().Error(err).Build())
	s.Close()
	os.Exit(1)
}

// loadConfig reads .codemap/config.json, falling back to defaults.
func loadConfig(repoRoot string) *config.Config {
	cfg, err := config.LoadConfig(repoRoot)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config, using defaults: %v\n", err)
		return config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: invalid config, using defaults: %v\n", err)
		return config.DefaultConfig()
	}
	return cfg
}

// getRepoRoot returns --repo or the working directory as an absolute path.
func getRepoRoot() (string, error) {
	root := repoFlag
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		root = wd
	}
	return filepath.Abs(root)
}

// mustGetRepoRoot returns the repository root or exits on error.
func mustGetRepoRoot() string {
	repoRoot, err := getRepoRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return repoRoot
}

// resolvePath makes path absolute against the repository root.
func resolvePath(path, repoRoot string) string {
	if path == "" {
		return repoRoot
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(repoRoot, path)
	}
	return filepath.Clean(path)
}

// resolveScope defaults the scope id to the analyzed path.
func resolveScope(scope, path string) string {
	if scope != "" {
		return scope
	}
	return path
}

// newContext returns a context cancelled on interrupt.
func newContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// printResponse writes resp to stdout in the selected format.
func printResponse(resp interface{}) {
	out, err := FormatResponse(resp, OutputFormat(formatFlag))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(out)
}
