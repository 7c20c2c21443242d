package config

// Config is the root configuration for the Sentinel decision service.
type Config struct {
	// Logging configures structured logging output.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics configures the Prometheus metrics endpoint.
	Metrics MetricsConfig `yaml:"metrics"`

	// Server configures the HTTP listener for metrics and health.
	Server ServerConfig `yaml:"server"`

	// PolicyStore configures policy persistence and match caching.
	PolicyStore PolicyStoreConfig `yaml:"policy_store"`

	// VerdictStore configures verdict cache persistence.
	VerdictStore VerdictStoreConfig `yaml:"verdict_store"`

	// Scoring configures the verdict scoring engine.
	Scoring ScoringConfig `yaml:"scoring"`

	// Retention configures the maintenance sweeps.
	Retention RetentionConfig `yaml:"retention"`

	// Audit configures the append-only audit log.
	Audit AuditConfig `yaml:"audit"`
}

// LoggingConfig controls structured log output.
type LoggingConfig struct {
	// Level is the minimum log level ("debug", "info", "warn", "error").
	Level string `yaml:"level"`

	// Format is the output format ("json" or "text").
	Format string `yaml:"format"`

	// AddSource includes file:line in log records.
	AddSource bool `yaml:"add_source"`

	// RedactSensitive masks URLs and file hashes in log attributes.
	RedactSensitive bool `yaml:"redact_sensitive"`
}

// MetricsConfig controls Prometheus metric naming and exposure.
type MetricsConfig struct {
	// Enabled toggles metric collection.
	Enabled bool `yaml:"enabled"`

	// Namespace is the metric name prefix (default "sentinel").
	Namespace string `yaml:"namespace"`

	// Subsystem is an optional second-level prefix.
	Subsystem string `yaml:"subsystem"`

	// Path is the HTTP path the metrics handler is mounted on.
	Path string `yaml:"path"`
}

// ServerConfig controls the HTTP listener for metrics and health probes.
type ServerConfig struct {
	// ListenAddress is the host:port to bind (default "127.0.0.1:9309").
	ListenAddress string `yaml:"listen_address"`
}

// PolicyStoreConfig controls policy persistence and match-result caching.
type PolicyStoreConfig struct {
	// Path is the SQLite database file for policies and threat history.
	Path string `yaml:"path"`

	// CacheSize is the match-result LRU capacity.
	CacheSize int `yaml:"cache_size"`

	// BusyTimeoutMillis is how long SQLite waits on locks before failing.
	BusyTimeoutMillis int `yaml:"busy_timeout_millis"`
}

// VerdictStoreConfig controls verdict cache persistence.
type VerdictStoreConfig struct {
	// Path is the SQLite database file for cached verdicts.
	Path string `yaml:"path"`
}

// ScoringConfig controls the verdict scoring engine.
type ScoringConfig struct {
	// Weights are the detector weights for the composite score.
	Weights WeightsConfig `yaml:"weights"`

	// Thresholds map composite scores to threat levels.
	Thresholds ThresholdsConfig `yaml:"thresholds"`
}

// WeightsConfig holds the per-detector composite weights. They should sum
// to 1.0; Validate enforces this within a small tolerance.
type WeightsConfig struct {
	YARA       float64 `yaml:"yara"`
	ML         float64 `yaml:"ml"`
	Behavioral float64 `yaml:"behavioral"`
}

// ThresholdsConfig holds the ordered threat-level boundaries. A composite
// score below Clean is clean, below Suspicious is suspicious, below
// Malicious is malicious, and anything else is critical.
type ThresholdsConfig struct {
	Clean      float64 `yaml:"clean"`
	Suspicious float64 `yaml:"suspicious"`
	Malicious  float64 `yaml:"malicious"`
}

// RetentionConfig controls the scheduled maintenance sweeps.
type RetentionConfig struct {
	// Schedule is a cron expression for the sweep (default daily at 3 AM).
	// Empty disables scheduled sweeps.
	Schedule string `yaml:"schedule"`

	// ThreatHistoryDays is how long threat history rows are kept.
	ThreatHistoryDays int `yaml:"threat_history_days"`
}

// AuditConfig controls the append-only audit log.
type AuditConfig struct {
	// Enabled toggles audit logging.
	Enabled bool `yaml:"enabled"`

	// Path is the JSONL audit log file.
	Path string `yaml:"path"`

	// MaxSizeBytes rotates the log when the file grows past this size.
	MaxSizeBytes int64 `yaml:"max_size_bytes"`
}
