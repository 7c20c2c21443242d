package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"sentinel-hq/sentinel/pkg/cache"
	"sentinel-hq/sentinel/pkg/config"
)

// CacheMetrics tracks LRU cache performance.
//
// Metrics:
//   - sentinel_cache_hits_total: Total cache hits by cache name
//   - sentinel_cache_misses_total: Total cache misses by cache name
//   - sentinel_cache_evictions_total: Total LRU evictions by cache name
//   - sentinel_cache_invalidations_total: Total full invalidations
//   - sentinel_cache_entries: Current number of entries in the cache
type CacheMetrics struct {
	hitsTotal          *prometheus.CounterVec
	missesTotal        *prometheus.CounterVec
	evictionsTotal     *prometheus.CounterVec
	invalidationsTotal *prometheus.CounterVec
	entries            *prometheus.GaugeVec
}

// NewCacheMetrics creates and registers cache metrics with the registry.
func NewCacheMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *CacheMetrics {
	cm := &CacheMetrics{
		hitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "cache_hits_total",
				Help:      "Total number of cache hits",
			},
			[]string{"cache"},
		),

		missesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "cache_misses_total",
				Help:      "Total number of cache misses",
			},
			[]string{"cache"},
		),

		evictionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "cache_evictions_total",
				Help:      "Total number of LRU evictions",
			},
			[]string{"cache"},
		),

		invalidationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "cache_invalidations_total",
				Help:      "Total number of full cache invalidations",
			},
			[]string{"cache"},
		),

		entries: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "cache_entries",
				Help:      "Current number of entries in cache",
			},
			[]string{"cache"},
		),
	}

	registry.MustRegister(
		cm.hitsTotal,
		cm.missesTotal,
		cm.evictionsTotal,
		cm.invalidationsTotal,
		cm.entries,
	)

	return cm
}

// RecordHit records a cache hit for the named cache.
func (cm *CacheMetrics) RecordHit(cacheName string) {
	cm.hitsTotal.WithLabelValues(cacheName).Inc()
}

// RecordMiss records a cache miss for the named cache.
func (cm *CacheMetrics) RecordMiss(cacheName string) {
	cm.missesTotal.WithLabelValues(cacheName).Inc()
}

// RecordEviction records an LRU eviction for the named cache.
func (cm *CacheMetrics) RecordEviction(cacheName string) {
	cm.evictionsTotal.WithLabelValues(cacheName).Inc()
}

// RecordInvalidation records a full invalidation for the named cache.
func (cm *CacheMetrics) RecordInvalidation(cacheName string) {
	cm.invalidationsTotal.WithLabelValues(cacheName).Inc()
}

// UpdateSize updates the current entry count of the named cache.
func (cm *CacheMetrics) UpdateSize(cacheName string, size int) {
	cm.entries.WithLabelValues(cacheName).Set(float64(size))
}

// ApplyDelta folds the difference between two counter snapshots into the
// Prometheus counters and refreshes the entry gauge. prev must be an
// earlier snapshot of the same cache; counters never move backwards.
func (cm *CacheMetrics) ApplyDelta(cacheName string, prev, curr cache.Metrics) {
	cm.hitsTotal.WithLabelValues(cacheName).Add(float64(curr.Hits - prev.Hits))
	cm.missesTotal.WithLabelValues(cacheName).Add(float64(curr.Misses - prev.Misses))
	cm.evictionsTotal.WithLabelValues(cacheName).Add(float64(curr.Evictions - prev.Evictions))
	cm.invalidationsTotal.WithLabelValues(cacheName).Add(float64(curr.Invalidations - prev.Invalidations))
	cm.entries.WithLabelValues(cacheName).Set(float64(curr.CurrentSize))
}
