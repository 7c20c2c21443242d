// Package storage provides persistence backends for enforcement policies
// and threat history.
//
// # Overview
//
// The package implements the policy.Store interface consumed by the
// resolution engine:
//
//   - SQLite: durable file-based persistence (default)
//   - Memory: in-memory storage for tests and ephemeral profiles
//
// Both backends answer the engine's three priority-tier match queries
// (file hash, URL wildcard pattern, bare rule name), each filtered by
// non-expiry, and both update hit statistics atomically per call.
//
// # Usage
//
//	store, err := storage.NewSQLiteStore("sentinel-policies.db")
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
// # Thread Safety
//
// All backends are safe for concurrent use; locking is internal.
package storage
