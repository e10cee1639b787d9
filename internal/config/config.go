package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"codemap/internal/paths"
)

// CurrentVersion is the config schema version written by Save
const CurrentVersion = 1

// SupportedConfigVersions lists schema versions LoadConfig accepts
var SupportedConfigVersions = []int{1}

// Config represents the complete codemap configuration
type Config struct {
	Version int `json:"version" mapstructure:"version"`

	Analysis AnalysisConfig `json:"analysis" mapstructure:"analysis"`
	Cache    CacheConfig    `json:"cache" mapstructure:"cache"`
	UML      UMLConfig      `json:"uml" mapstructure:"uml"`
	Layers   LayersConfig   `json:"layers" mapstructure:"layers"`
	Watch    WatchConfig    `json:"watch" mapstructure:"watch"`
	Logging  LoggingConfig  `json:"logging" mapstructure:"logging"`
}

// AnalysisConfig bounds a single analysis run
type AnalysisConfig struct {
	MaxFiles         int      `json:"maxFiles" mapstructure:"maxFiles"`
	MaxFileSizeBytes int      `json:"maxFileSizeBytes" mapstructure:"maxFileSizeBytes"`
	FetchConcurrency int      `json:"fetchConcurrency" mapstructure:"fetchConcurrency"`
	Ignore           []string `json:"ignore" mapstructure:"ignore"`
	// InternalPrefixes mark Python imports as project-internal
	InternalPrefixes []string `json:"internalPrefixes" mapstructure:"internalPrefixes"`
	// AliasPrefixes mark TypeScript imports as project-internal
	AliasPrefixes []string `json:"aliasPrefixes" mapstructure:"aliasPrefixes"`
}

// CacheConfig contains diagram cache configuration
type CacheConfig struct {
	Backend                string         `json:"backend" mapstructure:"backend"` // sqlite, memory
	TtlSeconds             int            `json:"ttlSeconds" mapstructure:"ttlSeconds"`
	KindTtlSeconds         map[string]int `json:"kindTtlSeconds" mapstructure:"kindTtlSeconds"`
	CompressThresholdBytes int            `json:"compressThresholdBytes" mapstructure:"compressThresholdBytes"`
	ListLimit              int            `json:"listLimit" mapstructure:"listLimit"`
}

// UMLConfig contains UML synthesis sanity limits
type UMLConfig struct {
	MaxClasses int `json:"maxClasses" mapstructure:"maxClasses"`
}

// LayersConfig extends the built-in layer keyword table
type LayersConfig struct {
	// ExtraKeywords maps a layer name to additional path keywords
	ExtraKeywords map[string][]string `json:"extraKeywords" mapstructure:"extraKeywords"`
}

// WatchConfig contains configuration for `codemap watch`
type WatchConfig struct {
	DebounceMs int      `json:"debounceMs" mapstructure:"debounceMs"`
	Kinds      []string `json:"kinds" mapstructure:"kinds"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format     string `json:"format" mapstructure:"format"`
	Level      string `json:"level" mapstructure:"level"`
	MaxSize    string `json:"maxSize,omitempty" mapstructure:"maxSize"`       // e.g. "10MB"; empty disables rotation
	MaxBackups int    `json:"maxBackups,omitempty" mapstructure:"maxBackups"` // rotated files to keep
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentVersion,
		Analysis: AnalysisConfig{
			MaxFiles:         100,
			MaxFileSizeBytes: 1000000,
			FetchConcurrency: 8,
			Ignore: []string{
				".git", ".codemap", "node_modules", "dist", "build",
				"__pycache__", ".venv", "venv", ".tox", ".angular",
			},
			InternalPrefixes: []string{"apps", "src", "lib", "core", "services"},
			AliasPrefixes:    []string{"@app/", "@core/", "@shared/", "src/"},
		},
		Cache: CacheConfig{
			Backend:                "sqlite",
			TtlSeconds:             3600,
			KindTtlSeconds:         map[string]int{},
			CompressThresholdBytes: 64 * 1024,
			ListLimit:              20,
		},
		UML: UMLConfig{
			MaxClasses: 500,
		},
		Layers: LayersConfig{
			ExtraKeywords: map[string][]string{},
		},
		Watch: WatchConfig{
			DebounceMs: 500,
			Kinds:      []string{"architecture", "uml"},
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
	}
}

// LoadConfig loads configuration from .codemap/config.json. Values missing
// from the file keep their defaults; CODEMAP_* environment variables are
// applied last.
func LoadConfig(repoRoot string) (*Config, error) {
	cfg, _, err := LoadConfigWithOverrides(repoRoot)
	return cfg, err
}

// LoadConfigWithOverrides is LoadConfig that also reports which
// environment overrides were applied.
func LoadConfigWithOverrides(repoRoot string) (*Config, []EnvOverride, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(paths.StateDir(repoRoot))

	cfg := DefaultConfig()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := v.Unmarshal(cfg); err != nil {
		return nil, nil, fmt.Errorf("failed to decode config: %w", err)
	}

	overrides := ApplyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, overrides, err
	}
	return cfg, overrides, nil
}

// Save writes the configuration to .codemap/config.json
func (c *Config) Save(repoRoot string) error {
	if _, err := paths.EnsureStateDir(repoRoot); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Clean(paths.ConfigPath(repoRoot)), data, 0644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	supported := false
	for _, v := range SupportedConfigVersions {
		if c.Version == v {
			supported = true
			break
		}
	}
	if !supported {
		return &ConfigError{Field: "version", Message: fmt.Sprintf("unsupported config version %d", c.Version)}
	}
	if c.Analysis.MaxFiles <= 0 {
		return &ConfigError{Field: "analysis.maxFiles", Message: "must be positive"}
	}
	if c.Cache.TtlSeconds <= 0 {
		return &ConfigError{Field: "cache.ttlSeconds", Message: "must be positive"}
	}
	switch c.Cache.Backend {
	case "sqlite", "memory":
	default:
		return &ConfigError{Field: "cache.backend", Message: "must be sqlite or memory"}
	}
	return nil
}

// TTLFor returns the cache TTL in seconds for a diagram kind.
func (c *Config) TTLFor(kind string) int {
	if ttl, ok := c.Cache.KindTtlSeconds[kind]; ok && ttl > 0 {
		return ttl
	}
	return c.Cache.TtlSeconds
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}

// EnvOverride records one environment variable applied to the config
type EnvOverride struct {
	EnvVar string `json:"envVar"`
	Path   string `json:"path"`
	Value  string `json:"value"`
}

type envBinding struct {
	envVar string
	path   string
	apply  func(cfg *Config, value string) bool
}

var envBindings = []envBinding{
	{"CODEMAP_LOG_LEVEL", "logging.level", func(c *Config, v string) bool { c.Logging.Level = v; return true }},
	{"CODEMAP_LOG_FORMAT", "logging.format", func(c *Config, v string) bool { c.Logging.Format = v; return true }},
	{"CODEMAP_CACHE_BACKEND", "cache.backend", func(c *Config, v string) bool { c.Cache.Backend = v; return true }},
	{"CODEMAP_CACHE_TTL_SECONDS", "cache.ttlSeconds", intSetter(func(c *Config) *int { return &c.Cache.TtlSeconds })},
	{"CODEMAP_ANALYSIS_MAX_FILES", "analysis.maxFiles", intSetter(func(c *Config) *int { return &c.Analysis.MaxFiles })},
	{"CODEMAP_ANALYSIS_FETCH_CONCURRENCY", "analysis.fetchConcurrency", intSetter(func(c *Config) *int { return &c.Analysis.FetchConcurrency })},
	{"CODEMAP_UML_MAX_CLASSES", "uml.maxClasses", intSetter(func(c *Config) *int { return &c.UML.MaxClasses })},
	{"CODEMAP_ANALYSIS_INTERNAL_PREFIXES", "analysis.internalPrefixes", func(c *Config, v string) bool {
		c.Analysis.InternalPrefixes = splitList(v)
		return true
	}},
}

func intSetter(field func(*Config) *int) func(*Config, string) bool {
	return func(c *Config, v string) bool {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return false
		}
		*field(c) = n
		return true
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ApplyEnvOverrides applies CODEMAP_* environment variables to cfg.
// Unparseable values are ignored.
func ApplyEnvOverrides(cfg *Config) []EnvOverride {
	var applied []EnvOverride
	for _, b := range envBindings {
		value, ok := os.LookupEnv(b.envVar)
		if !ok || value == "" {
			continue
		}
		if b.apply(cfg, value) {
			applied = append(applied, EnvOverride{EnvVar: b.envVar, Path: b.path, Value: value})
		}
	}
	return applied
}

// SupportedEnvVars returns the environment variables ApplyEnvOverrides reads.
func SupportedEnvVars() []string {
	out := make([]string, 0, len(envBindings))
	for _, b := range envBindings {
		out = append(out, b.envVar)
	}
	return out
}
