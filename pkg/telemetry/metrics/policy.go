package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"sentinel-hq/sentinel/pkg/config"
)

// PolicyMetrics tracks policy resolution outcomes.
//
// Metrics:
//   - sentinel_policy_matches_total: Match results by tier
//     ("cache", "file_hash", "url_pattern", "rule_name", "none")
//   - sentinel_policy_match_duration_seconds: End-to-end resolution latency
//   - sentinel_policy_mutations_total: Policy writes by operation
type PolicyMetrics struct {
	matchesTotal   *prometheus.CounterVec
	matchDuration  prometheus.Histogram
	mutationsTotal *prometheus.CounterVec
}

// NewPolicyMetrics creates and registers policy metrics with the registry.
func NewPolicyMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *PolicyMetrics {
	pm := &PolicyMetrics{
		matchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "policy_matches_total",
				Help:      "Total policy match attempts by resolution tier",
			},
			[]string{"tier"},
		),

		matchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "policy_match_duration_seconds",
				Help:      "Policy resolution latency in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
			},
		),

		mutationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "policy_mutations_total",
				Help:      "Total policy writes by operation (create, update, delete)",
			},
			[]string{"op"},
		),
	}

	registry.MustRegister(pm.matchesTotal, pm.matchDuration, pm.mutationsTotal)

	return pm
}

// RecordMatch records a match resolution, labeled by the tier that decided
// it: "cache", "file_hash", "url_pattern", "rule_name", or "none".
func (pm *PolicyMetrics) RecordMatch(tier string) {
	pm.matchesTotal.WithLabelValues(tier).Inc()
}

// ObserveMatchDuration records the latency of one MatchPolicy call.
func (pm *PolicyMetrics) ObserveMatchDuration(d time.Duration) {
	pm.matchDuration.Observe(d.Seconds())
}

// RecordMutation records a policy write operation.
func (pm *PolicyMetrics) RecordMutation(op string) {
	pm.mutationsTotal.WithLabelValues(op).Inc()
}
