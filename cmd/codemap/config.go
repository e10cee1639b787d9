package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"codemap/internal/config"
	"codemap/internal/envelope"
	cmerrors "codemap/internal/errors"
	"codemap/internal/paths"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage codemap configuration",
	Long:  "View and manage codemap configuration stored in .codemap/config.json",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Display the configuration after defaults, the config file and
CODEMAP_* environment overrides are merged.

Examples:
  codemap config show
  codemap config show --format human`,
	Args: cobra.NoArgs,
	Run:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default .codemap/config.json",
	Args:  cobra.NoArgs,
	Run:   runConfigInit,
}

var configEnvCmd = &cobra.Command{
	Use:   "env",
	Short: "List supported environment variables",
	Args:  cobra.NoArgs,
	Run:   runConfigEnv,
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing config file")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configEnvCmd)
	rootCmd.AddCommand(configCmd)
}

// ConfigShowResponseCLI is the payload of `codemap config show`
type ConfigShowResponseCLI struct {
	ConfigPath   string               `json:"configPath"`
	FileExists   bool                 `json:"fileExists"`
	EnvOverrides []config.EnvOverride `json:"envOverrides,omitempty"`
	Config       *config.Config       `json:"config"`
}

// ConfigInitResponseCLI is the payload of `codemap config init`
type ConfigInitResponseCLI struct {
	ConfigPath string `json:"configPath"`
	Written    bool   `json:"written"`
}

func runConfigShow(cmd *cobra.Command, args []string) {
	repoRoot := mustGetRepoRoot()

	cfg, overrides, err := config.LoadConfigWithOverrides(repoRoot)
	if err != nil {
		printResponse(envelope.New().Error(cmerrors.New(cmerrors.ConfigInvalid, "failed to load config", err, nil)).Build())
		os.Exit(1)
	}

	path := paths.ConfigPath(repoRoot)
	_, statErr := os.Stat(path)
	resp := &ConfigShowResponseCLI{
		ConfigPath:   path,
		FileExists:   statErr == nil,
		EnvOverrides: overrides,
		Config:       cfg,
	}

	b := envelope.New().Data(resp)
	if err := cfg.Validate(); err != nil {
		b.WarningWithCode(string(cmerrors.ConfigInvalid), err.Error())
	}
	if !resp.FileExists {
		b.Suggest("codemap config init", "Write the defaults to a config file")
	}
	printResponse(b.Build())
}

func runConfigInit(cmd *cobra.Command, args []string) {
	repoRoot := mustGetRepoRoot()
	path := paths.ConfigPath(repoRoot)

	resp := &ConfigInitResponseCLI{ConfigPath: path}
	if _, err := os.Stat(path); err == nil && !configForce {
		b := envelope.New().Data(resp).Warning(fmt.Sprintf("%s already exists; use --force to overwrite", path))
		printResponse(b.Build())
		return
	}

	if err := config.DefaultConfig().Save(repoRoot); err != nil {
		printResponse(envelope.New().Error(fmt.Errorf("failed to write config: %w", err)).Build())
		os.Exit(1)
	}
	resp.Written = true
	printResponse(envelope.Operational(resp))
}

func runConfigEnv(cmd *cobra.Command, args []string) {
	printResponse(envelope.Operational(config.SupportedEnvVars()))
}
