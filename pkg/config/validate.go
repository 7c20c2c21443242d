package config

import (
	"fmt"
	"math"

	"github.com/robfig/cron/v3"
)

// Validate checks the configuration for internal consistency. It is called
// by LoadConfig after defaults are applied and again after environment
// overrides.
func Validate(cfg *Config) error {
	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unknown level %q", cfg.Logging.Level)
	}
	switch cfg.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("logging.format: unknown format %q", cfg.Logging.Format)
	}

	if cfg.PolicyStore.CacheSize <= 0 {
		return fmt.Errorf("policy_store.cache_size: must be positive, got %d", cfg.PolicyStore.CacheSize)
	}
	if cfg.PolicyStore.BusyTimeoutMillis < 0 {
		return fmt.Errorf("policy_store.busy_timeout_millis: must not be negative")
	}

	if err := validateWeights(cfg.Scoring.Weights); err != nil {
		return err
	}
	if err := validateThresholds(cfg.Scoring.Thresholds); err != nil {
		return err
	}

	if cfg.Retention.Schedule != "" {
		if _, err := cron.ParseStandard(cfg.Retention.Schedule); err != nil {
			return fmt.Errorf("retention.schedule: invalid cron expression %q: %w", cfg.Retention.Schedule, err)
		}
	}
	if cfg.Retention.ThreatHistoryDays < 0 {
		return fmt.Errorf("retention.threat_history_days: must not be negative")
	}

	if cfg.Audit.MaxSizeBytes < 0 {
		return fmt.Errorf("audit.max_size_bytes: must not be negative")
	}

	return nil
}

func validateWeights(w WeightsConfig) error {
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"scoring.weights.yara", w.YARA},
		{"scoring.weights.ml", w.ML},
		{"scoring.weights.behavioral", w.Behavioral},
	} {
		if f.value < 0 || f.value > 1 {
			return fmt.Errorf("%s: must be in [0,1], got %g", f.name, f.value)
		}
	}
	if sum := w.YARA + w.ML + w.Behavioral; math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("scoring.weights: must sum to 1.0, got %g", sum)
	}
	return nil
}

func validateThresholds(t ThresholdsConfig) error {
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"scoring.thresholds.clean", t.Clean},
		{"scoring.thresholds.suspicious", t.Suspicious},
		{"scoring.thresholds.malicious", t.Malicious},
	} {
		if f.value < 0 || f.value > 1 {
			return fmt.Errorf("%s: must be in [0,1], got %g", f.name, f.value)
		}
	}
	if !(t.Clean < t.Suspicious && t.Suspicious < t.Malicious) {
		return fmt.Errorf("scoring.thresholds: must be strictly ordered clean < suspicious < malicious, got %g/%g/%g",
			t.Clean, t.Suspicious, t.Malicious)
	}
	return nil
}
