package main

import (
	"runtime"

	"github.com/spf13/cobra"

	"codemap/internal/envelope"
	"codemap/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Args:  cobra.NoArgs,
	Run:   runVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// VersionResponseCLI is the payload of `codemap version`
type VersionResponseCLI struct {
	Version        string `json:"version"`
	Commit         string `json:"commit"`
	BuildDate      string `json:"buildDate"`
	DocumentSchema int    `json:"documentSchema"`
	GoVersion      string `json:"goVersion"`
}

func runVersion(cmd *cobra.Command, args []string) {
	printResponse(envelope.Operational(&VersionResponseCLI{
		Version:        version.Version,
		Commit:         version.Commit,
		BuildDate:      version.BuildDate,
		DocumentSchema: version.DocumentSchema,
		GoVersion:      runtime.Version(),
	}))
}
