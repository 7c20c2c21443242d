package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"sentinel-hq/sentinel/pkg/config"
)

// VerdictMetrics tracks verdict scoring engine outputs.
//
// Metrics:
//   - sentinel_verdicts_total: Verdicts by threat level
//   - sentinel_verdict_composite_score: Composite score distribution
//   - sentinel_verdict_confidence: Confidence distribution
type VerdictMetrics struct {
	verdictsTotal  *prometheus.CounterVec
	compositeScore prometheus.Histogram
	confidence     prometheus.Histogram
}

// NewVerdictMetrics creates and registers verdict metrics with the registry.
func NewVerdictMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *VerdictMetrics {
	vm := &VerdictMetrics{
		verdictsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "verdicts_total",
				Help:      "Total verdicts produced by threat level",
			},
			[]string{"level"},
		),

		compositeScore: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "verdict_composite_score",
				Help:      "Distribution of weighted composite scores",
				Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
			},
		),

		confidence: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "verdict_confidence",
				Help:      "Distribution of inter-detector agreement confidence",
				Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
			},
		),
	}

	registry.MustRegister(vm.verdictsTotal, vm.compositeScore, vm.confidence)

	return vm
}

// RecordVerdict records one scored verdict.
func (vm *VerdictMetrics) RecordVerdict(level string, composite, confidence float64) {
	vm.verdictsTotal.WithLabelValues(level).Inc()
	vm.compositeScore.Observe(composite)
	vm.confidence.Observe(confidence)
}
