// Package metrics provides Prometheus instrumentation for the Sentinel
// decision core.
//
// # Overview
//
// A Collector owns a Prometheus registry and the metric families for the
// three instrumented areas:
//
//   - Cache: hits, misses, evictions, invalidations, entries per cache name
//   - Policy: match outcomes by tier and resolution latency
//   - Verdict: verdicts by threat level, composite score and confidence
//     distributions
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Metrics)
//	collector.Cache.RecordHit("policy_match")
//	collector.Policy.RecordMatch("file_hash")
//	collector.Verdict.RecordVerdict("malicious", 0.71, 0.9)
//
//	http.Handle(cfg.Metrics.Path, collector.Handler())
package metrics
