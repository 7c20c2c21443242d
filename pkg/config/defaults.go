package config

// Default values applied by ApplyDefaults.
const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultMetricsNamespace = "sentinel"
	DefaultMetricsPath      = "/metrics"

	DefaultListenAddress = "127.0.0.1:9309"

	DefaultPolicyStorePath   = "sentinel-policies.db"
	DefaultPolicyCacheSize   = 1000
	DefaultBusyTimeoutMillis = 5000

	DefaultVerdictStorePath = "sentinel-verdicts.db"

	DefaultRetentionSchedule = "0 3 * * *"
	DefaultThreatHistoryDays = 30

	DefaultAuditPath         = "sentinel-audit.jsonl"
	DefaultAuditMaxSizeBytes = 64 << 20
)

// Default scoring weights: signature matching carries the most weight as
// the lowest-false-positive signal, then ML, then behavioral.
const (
	DefaultWeightYARA       = 0.40
	DefaultWeightML         = 0.35
	DefaultWeightBehavioral = 0.25
)

// Default threat-level thresholds over the composite score.
const (
	DefaultThresholdClean      = 0.3
	DefaultThresholdSuspicious = 0.6
	DefaultThresholdMalicious  = 0.8
)

// NewDefaultConfig returns a fully defaulted configuration.
func NewDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills in zero-valued fields with defaults. Explicitly set
// values are never overwritten.
func ApplyDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLogFormat
	}

	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}

	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}

	if cfg.PolicyStore.Path == "" {
		cfg.PolicyStore.Path = DefaultPolicyStorePath
	}
	if cfg.PolicyStore.CacheSize == 0 {
		cfg.PolicyStore.CacheSize = DefaultPolicyCacheSize
	}
	if cfg.PolicyStore.BusyTimeoutMillis == 0 {
		cfg.PolicyStore.BusyTimeoutMillis = DefaultBusyTimeoutMillis
	}

	if cfg.VerdictStore.Path == "" {
		cfg.VerdictStore.Path = DefaultVerdictStorePath
	}

	if cfg.Scoring.Weights == (WeightsConfig{}) {
		cfg.Scoring.Weights = WeightsConfig{
			YARA:       DefaultWeightYARA,
			ML:         DefaultWeightML,
			Behavioral: DefaultWeightBehavioral,
		}
	}
	if cfg.Scoring.Thresholds == (ThresholdsConfig{}) {
		cfg.Scoring.Thresholds = ThresholdsConfig{
			Clean:      DefaultThresholdClean,
			Suspicious: DefaultThresholdSuspicious,
			Malicious:  DefaultThresholdMalicious,
		}
	}

	if cfg.Retention.Schedule == "" {
		cfg.Retention.Schedule = DefaultRetentionSchedule
	}
	if cfg.Retention.ThreatHistoryDays == 0 {
		cfg.Retention.ThreatHistoryDays = DefaultThreatHistoryDays
	}

	if cfg.Audit.Path == "" {
		cfg.Audit.Path = DefaultAuditPath
	}
	if cfg.Audit.MaxSizeBytes == 0 {
		cfg.Audit.MaxSizeBytes = DefaultAuditMaxSizeBytes
	}
}
