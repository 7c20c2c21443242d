package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sentinel-hq/sentinel/pkg/config"
)

// Collector owns the Prometheus registry and all Sentinel metric families.
type Collector struct {
	registry *prometheus.Registry

	// Cache tracks LRU cache performance.
	Cache *CacheMetrics

	// Policy tracks policy resolution outcomes.
	Policy *PolicyMetrics

	// Verdict tracks verdict scoring outputs.
	Verdict *VerdictMetrics
}

// NewCollector creates a registry, registers the Go runtime and process
// collectors, and builds all Sentinel metric families.
func NewCollector(cfg *config.MetricsConfig) *Collector {
	registry := prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Collector{
		registry: registry,
		Cache:    NewCacheMetrics(cfg, registry),
		Policy:   NewPolicyMetrics(cfg, registry),
		Verdict:  NewVerdictMetrics(cfg, registry),
	}
}

// Registry returns the underlying Prometheus registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler returns an HTTP handler serving the registry in the Prometheus
// exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}
