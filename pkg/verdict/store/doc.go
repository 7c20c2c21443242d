// Package store provides the severity-aware verdict cache.
//
// # Overview
//
// The Cache maps a content hash to a previously computed verdict so
// identical content never goes through full analysis twice. Each record's
// time-to-live depends on its threat level: false negatives on dangerous
// content are costlier than false positives, so confirmed-dangerous
// verdicts are trusted longer, while "suspicious but uncertain" verdicts
// are re-evaluated soonest.
//
//	Clean       30 days
//	Suspicious   7 days
//	Malicious   90 days
//	Critical   365 days
//
// A record whose expiry has passed is logically absent: Lookup treats it
// as a miss regardless of whether it is still physically stored, and may
// lazily delete it.
//
// # Usage
//
//	backend, err := store.NewSQLiteBackend("sentinel-verdicts.db")
//	if err != nil {
//	    return err
//	}
//	cache, err := store.NewCache(store.CacheConfig{Backend: backend})
//	if err != nil {
//	    return err
//	}
//
//	cache.Store(ctx, record)
//	rec, err := cache.Lookup(ctx, fileHash)
package store
