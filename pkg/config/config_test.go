package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sentinel.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestNewDefaultConfigIsValid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := Validate(cfg); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("logging defaults = %s/%s", cfg.Logging.Level, cfg.Logging.Format)
	}
	if cfg.PolicyStore.CacheSize != 1000 {
		t.Errorf("cache size default = %d", cfg.PolicyStore.CacheSize)
	}
	if cfg.Scoring.Weights.YARA != 0.40 || cfg.Scoring.Weights.ML != 0.35 || cfg.Scoring.Weights.Behavioral != 0.25 {
		t.Errorf("weight defaults = %+v", cfg.Scoring.Weights)
	}
	if cfg.Scoring.Thresholds.Clean != 0.3 || cfg.Scoring.Thresholds.Suspicious != 0.6 || cfg.Scoring.Thresholds.Malicious != 0.8 {
		t.Errorf("threshold defaults = %+v", cfg.Scoring.Thresholds)
	}
	if cfg.Retention.Schedule != "0 3 * * *" {
		t.Errorf("retention schedule default = %q", cfg.Retention.Schedule)
	}
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := &Config{}
	cfg.Logging.Level = "debug"
	cfg.PolicyStore.CacheSize = 50
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "debug" {
		t.Errorf("explicit level overwritten: %s", cfg.Logging.Level)
	}
	if cfg.PolicyStore.CacheSize != 50 {
		t.Errorf("explicit cache size overwritten: %d", cfg.PolicyStore.CacheSize)
	}
	// Untouched fields still get defaults.
	if cfg.Logging.Format != "json" {
		t.Errorf("format default missing: %s", cfg.Logging.Format)
	}
}

func TestLoadConfig(t *testing.T) {
	path := writeConfigFile(t, `
logging:
  level: debug
  format: text
policy_store:
  path: /tmp/test-policies.db
  cache_size: 200
scoring:
  weights:
    yara: 0.5
    ml: 0.3
    behavioral: 0.2
  thresholds:
    clean: 0.2
    suspicious: 0.5
    malicious: 0.7
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "text" {
		t.Errorf("logging = %+v", cfg.Logging)
	}
	if cfg.PolicyStore.Path != "/tmp/test-policies.db" || cfg.PolicyStore.CacheSize != 200 {
		t.Errorf("policy store = %+v", cfg.PolicyStore)
	}
	if cfg.Scoring.Weights.YARA != 0.5 {
		t.Errorf("weights = %+v", cfg.Scoring.Weights)
	}
	// Unspecified sections still get defaults.
	if cfg.VerdictStore.Path != DefaultVerdictStorePath {
		t.Errorf("verdict store path = %q", cfg.VerdictStore.Path)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("LoadConfig accepted a missing file")
	}
}

func TestLoadConfigMalformedYAML(t *testing.T) {
	path := writeConfigFile(t, "logging: [not: a: mapping")
	if _, err := LoadConfig(path); err == nil {
		t.Error("LoadConfig accepted malformed YAML")
	}
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"unknown log format", func(c *Config) { c.Logging.Format = "xml" }},
		{"negative cache size", func(c *Config) { c.PolicyStore.CacheSize = -1 }},
		{"weights not summing to 1", func(c *Config) { c.Scoring.Weights = WeightsConfig{YARA: 0.5, ML: 0.5, Behavioral: 0.5} }},
		{"weight out of range", func(c *Config) { c.Scoring.Weights = WeightsConfig{YARA: 1.5, ML: -0.3, Behavioral: -0.2} }},
		{"unordered thresholds", func(c *Config) { c.Scoring.Thresholds = ThresholdsConfig{Clean: 0.6, Suspicious: 0.3, Malicious: 0.8} }},
		{"threshold out of range", func(c *Config) { c.Scoring.Thresholds = ThresholdsConfig{Clean: 0.3, Suspicious: 0.6, Malicious: 1.8} }},
		{"bad cron expression", func(c *Config) { c.Retention.Schedule = "every day at dawn" }},
		{"negative retention days", func(c *Config) { c.Retention.ThreatHistoryDays = -7 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			if err := Validate(cfg); err == nil {
				t.Errorf("Validate accepted config with %s", tt.name)
			}
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	path := writeConfigFile(t, "logging:\n  level: info\n")

	t.Setenv("SENTINEL_LOGGING_LEVEL", "error")
	t.Setenv("SENTINEL_POLICY_STORE_PATH", "/var/lib/sentinel/p.db")
	t.Setenv("SENTINEL_POLICY_STORE_CACHE_SIZE", "42")
	t.Setenv("SENTINEL_METRICS_ENABLED", "true")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides failed: %v", err)
	}
	if cfg.Logging.Level != "error" {
		t.Errorf("level = %s, want error", cfg.Logging.Level)
	}
	if cfg.PolicyStore.Path != "/var/lib/sentinel/p.db" {
		t.Errorf("path = %s", cfg.PolicyStore.Path)
	}
	if cfg.PolicyStore.CacheSize != 42 {
		t.Errorf("cache size = %d, want 42", cfg.PolicyStore.CacheSize)
	}
	if !cfg.Metrics.Enabled {
		t.Error("metrics not enabled by env override")
	}
}

func TestEnvOverridesAreValidated(t *testing.T) {
	path := writeConfigFile(t, "logging:\n  level: info\n")
	t.Setenv("SENTINEL_LOGGING_LEVEL", "shouting")

	if _, err := LoadConfigWithEnvOverrides(path); err == nil {
		t.Error("invalid env override accepted")
	}
}
