package store

import (
	"context"
	"sync"
	"time"
)

// MemoryBackend is an in-memory Backend for tests and ephemeral deployments.
type MemoryBackend struct {
	mu      sync.RWMutex
	records map[string]SandboxVerdict
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{records: make(map[string]SandboxVerdict)}
}

// Put inserts or replaces the record for its file hash.
func (m *MemoryBackend) Put(_ context.Context, rec *SandboxVerdict) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.FileHash] = *rec
	return nil
}

// Get returns a copy of the record for the hash, or nil if none is stored.
func (m *MemoryBackend) Get(_ context.Context, fileHash string) (*SandboxVerdict, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[fileHash]
	if !ok {
		return nil, nil
	}
	out := rec
	out.TriggeredRules = append([]string(nil), rec.TriggeredRules...)
	out.DetectedBehaviors = append([]string(nil), rec.DetectedBehaviors...)
	return &out, nil
}

// Delete removes the record for the hash. No-op if absent.
func (m *MemoryBackend) Delete(_ context.Context, fileHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, fileHash)
	return nil
}

// DeleteExpired purges records whose expiry has passed.
func (m *MemoryBackend) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for hash, rec := range m.records {
		if rec.Expired(now) {
			delete(m.records, hash)
			n++
		}
	}
	return n, nil
}

// Clear removes every record.
func (m *MemoryBackend) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = make(map[string]SandboxVerdict)
	return nil
}

// Close is a no-op for the in-memory backend.
func (m *MemoryBackend) Close() error {
	return nil
}
