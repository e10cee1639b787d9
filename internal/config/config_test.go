package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Version != CurrentVersion {
		t.Errorf("Version = %d, want %d", cfg.Version, CurrentVersion)
	}
	if cfg.Analysis.MaxFiles != 100 {
		t.Errorf("Analysis.MaxFiles = %d, want 100", cfg.Analysis.MaxFiles)
	}
	if cfg.Cache.TtlSeconds != 3600 {
		t.Errorf("Cache.TtlSeconds = %d, want 3600", cfg.Cache.TtlSeconds)
	}
	if cfg.Cache.Backend != "sqlite" {
		t.Errorf("Cache.Backend = %q, want sqlite", cfg.Cache.Backend)
	}
	if cfg.Cache.ListLimit != 20 {
		t.Errorf("Cache.ListLimit = %d, want 20", cfg.Cache.ListLimit)
	}
	if len(cfg.Analysis.InternalPrefixes) == 0 {
		t.Error("InternalPrefixes should not be empty")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
		field   string
	}{
		{"defaults", func(*Config) {}, false, ""},
		{"bad version", func(c *Config) { c.Version = 99 }, true, "version"},
		{"zero max files", func(c *Config) { c.Analysis.MaxFiles = 0 }, true, "analysis.maxFiles"},
		{"negative ttl", func(c *Config) { c.Cache.TtlSeconds = -1 }, true, "cache.ttlSeconds"},
		{"unknown backend", func(c *Config) { c.Cache.Backend = "redis" }, true, "cache.backend"},
		{"memory backend", func(c *Config) { c.Cache.Backend = "memory" }, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				cfgErr, ok := err.(*ConfigError)
				if !ok {
					t.Fatalf("expected *ConfigError, got %T", err)
				}
				if cfgErr.Field != tt.field {
					t.Errorf("Field = %q, want %q", cfgErr.Field, tt.field)
				}
			}
		})
	}
}

func TestConfigError_Error(t *testing.T) {
	err := &ConfigError{Field: "cache.backend", Message: "must be sqlite or memory"}
	want := "config error in field 'cache.backend': must be sqlite or memory"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestTTLFor(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Cache.KindTtlSeconds = map[string]int{"architecture": 600, "uml": 0}

	if got := cfg.TTLFor("architecture"); got != 600 {
		t.Errorf("TTLFor(architecture) = %d, want 600", got)
	}
	if got := cfg.TTLFor("uml"); got != 3600 {
		t.Errorf("TTLFor(uml) = %d, want 3600 (zero override ignored)", got)
	}
	if got := cfg.TTLFor("dependency"); got != 3600 {
		t.Errorf("TTLFor(dependency) = %d, want 3600", got)
	}
}

func TestLoadConfig_Default(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := LoadConfig(tmpDir)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Version != CurrentVersion {
		t.Errorf("Version = %d, want %d (default)", cfg.Version, CurrentVersion)
	}
}

func TestLoadConfig_FromFile(t *testing.T) {
	tmpDir := t.TempDir()
	stateDir := filepath.Join(tmpDir, ".codemap")
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		t.Fatalf("Failed to create .codemap dir: %v", err)
	}

	configContent := `{
		"version": 1,
		"analysis": {"maxFiles": 40},
		"cache": {"ttlSeconds": 120, "kindTtlSeconds": {"uml": 30}}
	}`
	if err := os.WriteFile(filepath.Join(stateDir, "config.json"), []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := LoadConfig(tmpDir)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Analysis.MaxFiles != 40 {
		t.Errorf("Analysis.MaxFiles = %d, want 40", cfg.Analysis.MaxFiles)
	}
	if cfg.Cache.TtlSeconds != 120 {
		t.Errorf("Cache.TtlSeconds = %d, want 120", cfg.Cache.TtlSeconds)
	}
	if cfg.TTLFor("uml") != 30 {
		t.Errorf("TTLFor(uml) = %d, want 30", cfg.TTLFor("uml"))
	}
	// Fields absent from the file keep defaults
	if cfg.Cache.Backend != "sqlite" {
		t.Errorf("Cache.Backend = %q, want default sqlite", cfg.Cache.Backend)
	}
	if cfg.UML.MaxClasses != 500 {
		t.Errorf("UML.MaxClasses = %d, want default 500", cfg.UML.MaxClasses)
	}
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	stateDir := filepath.Join(tmpDir, ".codemap")
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(stateDir, "config.json"), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadConfig(tmpDir); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestConfig_Save(t *testing.T) {
	tmpDir := t.TempDir()

	cfg := DefaultConfig()
	cfg.UML.MaxClasses = 42

	if err := cfg.Save(tmpDir); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(tmpDir, ".codemap", "config.json")); os.IsNotExist(err) {
		t.Error("Config file was not created")
	}

	loaded, err := LoadConfig(tmpDir)
	if err != nil {
		t.Fatalf("LoadConfig() after save error = %v", err)
	}
	if loaded.UML.MaxClasses != 42 {
		t.Errorf("Loaded UML.MaxClasses = %d, want 42", loaded.UML.MaxClasses)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		validate func(t *testing.T, cfg *Config, overrides []EnvOverride)
	}{
		{
			name:    "logging level override",
			envVars: map[string]string{"CODEMAP_LOG_LEVEL": "debug"},
			validate: func(t *testing.T, cfg *Config, overrides []EnvOverride) {
				if cfg.Logging.Level != "debug" {
					t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
				}
				if len(overrides) != 1 {
					t.Errorf("len(overrides) = %d, want 1", len(overrides))
				}
			},
		},
		{
			name:    "int override",
			envVars: map[string]string{"CODEMAP_CACHE_TTL_SECONDS": "90"},
			validate: func(t *testing.T, cfg *Config, overrides []EnvOverride) {
				if cfg.Cache.TtlSeconds != 90 {
					t.Errorf("Cache.TtlSeconds = %d, want 90", cfg.Cache.TtlSeconds)
				}
			},
		},
		{
			name:    "list override",
			envVars: map[string]string{"CODEMAP_ANALYSIS_INTERNAL_PREFIXES": "billing, shop ,"},
			validate: func(t *testing.T, cfg *Config, overrides []EnvOverride) {
				got := cfg.Analysis.InternalPrefixes
				if len(got) != 2 || got[0] != "billing" || got[1] != "shop" {
					t.Errorf("InternalPrefixes = %v", got)
				}
			},
		},
		{
			name:    "invalid int ignored",
			envVars: map[string]string{"CODEMAP_ANALYSIS_MAX_FILES": "lots"},
			validate: func(t *testing.T, cfg *Config, overrides []EnvOverride) {
				if cfg.Analysis.MaxFiles != 100 {
					t.Errorf("Analysis.MaxFiles = %d, want 100 (default)", cfg.Analysis.MaxFiles)
				}
				if len(overrides) != 0 {
					t.Errorf("len(overrides) = %d, want 0", len(overrides))
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}
			cfg := DefaultConfig()
			overrides := ApplyEnvOverrides(cfg)
			tt.validate(t, cfg, overrides)
		})
	}
}

func TestLoadConfigWithOverrides_Env(t *testing.T) {
	t.Setenv("CODEMAP_CACHE_BACKEND", "memory")

	cfg, overrides, err := LoadConfigWithOverrides(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfigWithOverrides() error = %v", err)
	}
	if cfg.Cache.Backend != "memory" {
		t.Errorf("Cache.Backend = %q, want memory", cfg.Cache.Backend)
	}
	if len(overrides) != 1 || overrides[0].Path != "cache.backend" {
		t.Errorf("unexpected overrides: %+v", overrides)
	}
}

func TestSupportedEnvVars(t *testing.T) {
	vars := SupportedEnvVars()
	if len(vars) == 0 {
		t.Fatal("expected supported env vars")
	}
	seen := map[string]bool{}
	for _, v := range vars {
		if seen[v] {
			t.Errorf("duplicate env var %s", v)
		}
		seen[v] = true
	}
}
