// Package cache provides a generic bounded LRU cache with operation metrics.
//
// # Overview
//
// The cache package implements a least-recently-used cache with O(1) get,
// put, and eviction. It is the memoization layer shared by the policy
// resolution engine (match-result caching, including negative entries) and
// any other component that needs bounded key-value caching.
//
// # Usage
//
//	c, err := cache.New[string, int64](1000)
//	if err != nil {
//	    return err
//	}
//
//	c.Put("key", 42)
//	if v, ok := c.Get("key"); ok {
//	    // Cache hit, v == 42
//	}
//
//	m := c.Metrics()
//	fmt.Printf("hit rate: %.1f%%\n", m.HitRate())
//
// # Semantics
//
// Entries carry no TTL; expiry, where a caller needs it, is a property of
// the cached value and is checked by the caller. Invalidate drops every
// entry and counts as a single invalidation regardless of how many entries
// were present.
//
// # Thread Safety
//
// All operations are safe for concurrent use. A single mutex guards the
// recency list, the index map, and the metric counters together, so each
// operation is one atomic critical section.
package cache
