// Package verdict implements multi-detector threat scoring.
//
// # Overview
//
// The Engine fuses three independently calibrated detector scores
// (signature matching, ML classification, behavioral sandboxing), each in
// [0,1], into a single Verdict: a weighted composite score, an
// agreement-based confidence, a discrete threat level, and a
// human-readable explanation.
//
// Signature detection carries the most weight (lowest false-positive
// signal), ML second, behavioral third (noisiest, but catches novel
// threats). Confidence measures inter-detector agreement, not absolute
// correctness: identical inputs yield confidence 1.0 exactly, widely
// divergent inputs yield low confidence.
//
// # Usage
//
//	engine, err := verdict.NewEngine(verdict.EngineConfig{})
//	if err != nil {
//	    return err
//	}
//
//	v := engine.CalculateVerdict(0.8, 0.7, 0.6)
//	// v.CompositeScore == 0.715, v.Level == verdict.LevelMalicious
//
// # Thread Safety
//
// CalculateVerdict is pure apart from the shared statistics accumulator,
// which is updated under a lock; concurrent calls never lose updates.
package verdict
