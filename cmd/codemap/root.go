package main

import (
	"github.com/spf13/cobra"

	"codemap/internal/version"
)

var (
	// formatFlag selects envelope output: json or human
	formatFlag string
	verbosity  int
	quietFlag  bool
	repoFlag   string
)

var rootCmd = &cobra.Command{
	Use:   "codemap",
	Short: "codemap - diagrams from source code",
	Long: `codemap extracts classes, components, services and imports from Python and
Angular/TypeScript sources, relates them in a dependency graph and synthesizes
UML, dependency, architecture and Angular diagrams. Generated diagrams are
cached per scope and day in .codemap/codemap.db.`,
	Version:       version.Info(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("codemap version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&formatFlag, "format", "json", "Output format (json, human)")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Suppress log output on stderr")
	rootCmd.PersistentFlags().StringVar(&repoFlag, "repo", "", "Repository root (default: current directory)")
}
