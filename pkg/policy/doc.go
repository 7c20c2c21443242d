// Package policy implements the enforcement policy model and the policy
// resolution engine.
//
// # Overview
//
// A Policy is a persisted enforcement rule matched against observed threat
// metadata (URL, filename, content hash, MIME type, rule name). The Graph
// engine resolves a ThreatMetadata observation to at most one Policy using
// three priority tiers:
//
//  1. Exact file-hash match (most specific)
//  2. URL wildcard-pattern match
//  3. Bare rule-name match (no hash or pattern on the policy)
//
// Match results, including "no policy matches" (negative entries), are
// memoized in a bounded LRU cache keyed by a fingerprint of the threat
// tuple. Any policy create, update, or delete invalidates the entire match
// cache: matches key off partial combinations of policy attributes, so
// precise per-entry invalidation would need dependency tracking; the write
// path is rare enough that full invalidation is the simpler correct choice.
//
// # Usage
//
//	graph, err := policy.NewGraph(policy.GraphConfig{Store: store})
//	if err != nil {
//	    return err
//	}
//
//	matched, err := graph.MatchPolicy(ctx, policy.ThreatMetadata{
//	    URL:      "https://evil.example/payload.exe",
//	    FileHash: hash,
//	    RuleName: "eicar_test",
//	})
//	if matched != nil {
//	    // enforce matched.Action
//	}
//
// # Thread Safety
//
// Graph is safe for concurrent use. The cache-consult / store-query /
// cache-write sequence in MatchPolicy is deliberately not one critical
// section: two goroutines that both miss may both query the store and write
// the same idempotent cache entry.
package policy
