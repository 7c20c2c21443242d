package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"sentinel-hq/sentinel/pkg/policy"
)

// MemoryStore implements policy.Store using in-memory maps. All data is
// lost when the process exits; it is intended for tests and ephemeral
// browsing profiles.
type MemoryStore struct {
	mu       sync.RWMutex
	policies map[int64]*policy.Policy
	threats  map[int64]*policy.ThreatRecord
	nextID   int64
	nextTID  int64
}

// NewMemoryStore creates an empty in-memory policy store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		policies: make(map[int64]*policy.Policy),
		threats:  make(map[int64]*policy.ThreatRecord),
		nextID:   1,
		nextTID:  1,
	}
}

// Insert persists a new policy and returns its assigned ID.
func (m *MemoryStore) Insert(ctx context.Context, p *policy.Policy) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *p
	cp.ID = m.nextID
	m.nextID++
	m.policies[cp.ID] = &cp
	return cp.ID, nil
}

// Get returns the policy with the given ID or policy.ErrNotFound.
func (m *MemoryStore) Get(ctx context.Context, id int64) (*policy.Policy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.policies[id]
	if !ok {
		return nil, policy.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// List returns all policies in ID order, including expired ones.
func (m *MemoryStore) List(ctx context.Context) ([]*policy.Policy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*policy.Policy, 0, len(m.policies))
	for _, p := range m.policies {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Update overwrites the mutable fields of the policy with the given ID.
func (m *MemoryStore) Update(ctx context.Context, id int64, p *policy.Policy) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.policies[id]
	if !ok {
		return policy.ErrNotFound
	}

	existing.RuleName = p.RuleName
	existing.URLPattern = p.URLPattern
	existing.FileHash = p.FileHash
	existing.MimeType = p.MimeType
	existing.Action = p.Action
	existing.MatchType = p.MatchType
	existing.EnforcementAction = p.EnforcementAction
	existing.ExpiresAt = p.ExpiresAt
	return nil
}

// Delete removes the policy with the given ID. No-op if absent.
func (m *MemoryStore) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.policies, id)
	return nil
}

// MatchByHash returns the lowest-ID non-expired policy with the file hash.
func (m *MemoryStore) MatchByHash(ctx context.Context, hash string, now time.Time) (*policy.Policy, error) {
	return m.matchFirst(now, func(p *policy.Policy) bool {
		return p.FileHash != "" && p.FileHash == hash
	})
}

// MatchByURLPattern returns the lowest-ID non-expired policy whose
// wildcard pattern matches the URL.
func (m *MemoryStore) MatchByURLPattern(ctx context.Context, url string, now time.Time) (*policy.Policy, error) {
	return m.matchFirst(now, func(p *policy.Policy) bool {
		return p.URLPattern != "" && policy.MatchPattern(p.URLPattern, url)
	})
}

// MatchByRuleName returns the lowest-ID non-expired bare policy (no hash
// or pattern) with the given rule name.
func (m *MemoryStore) MatchByRuleName(ctx context.Context, ruleName string, now time.Time) (*policy.Policy, error) {
	return m.matchFirst(now, func(p *policy.Policy) bool {
		return p.RuleName == ruleName && p.FileHash == "" && p.URLPattern == ""
	})
}

func (m *MemoryStore) matchFirst(now time.Time, pred func(*policy.Policy) bool) (*policy.Policy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var best *policy.Policy
	for _, p := range m.policies {
		if p.Expired(now) || !pred(p) {
			continue
		}
		if best == nil || p.ID < best.ID {
			best = p
		}
	}
	if best == nil {
		return nil, nil
	}
	cp := *best
	return &cp, nil
}

// RecordHit increments hit statistics atomically.
func (m *MemoryStore) RecordHit(ctx context.Context, id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.policies[id]
	if !ok {
		return policy.ErrNotFound
	}
	p.HitCount++
	p.LastHit = at
	return nil
}

// DeleteExpired purges policies whose expiry has passed.
func (m *MemoryStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	deleted := 0
	for id, p := range m.policies {
		if p.Expired(now) {
			delete(m.policies, id)
			deleted++
		}
	}
	return deleted, nil
}

// CountPolicies returns the total number of stored policies.
func (m *MemoryStore) CountPolicies(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.policies)), nil
}

// RecordThreat appends a threat history row and returns its ID.
func (m *MemoryStore) RecordThreat(ctx context.Context, rec *policy.ThreatRecord) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *rec
	cp.ID = m.nextTID
	m.nextTID++
	m.threats[cp.ID] = &cp
	return cp.ID, nil
}

// ListThreats returns threat history, newest first.
func (m *MemoryStore) ListThreats(ctx context.Context, since time.Time) ([]*policy.ThreatRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*policy.ThreatRecord
	for _, rec := range m.threats {
		if !since.IsZero() && rec.DetectedAt.Before(since) {
			continue
		}
		cp := *rec
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DetectedAt.After(out[j].DetectedAt) })
	return out, nil
}

// ListThreatsByRule returns threat history for one detection rule.
func (m *MemoryStore) ListThreatsByRule(ctx context.Context, ruleName string) ([]*policy.ThreatRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*policy.ThreatRecord
	for _, rec := range m.threats {
		if rec.RuleName != ruleName {
			continue
		}
		cp := *rec
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DetectedAt.After(out[j].DetectedAt) })
	return out, nil
}

// PruneThreats removes threat history older than the cutoff.
func (m *MemoryStore) PruneThreats(ctx context.Context, olderThan time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	deleted := 0
	for id, rec := range m.threats {
		if rec.DetectedAt.Before(olderThan) {
			delete(m.threats, id)
			deleted++
		}
	}
	return deleted, nil
}

// CountThreats returns the total number of threat history rows.
func (m *MemoryStore) CountThreats(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.threats)), nil
}

// Close releases resources; a no-op for the memory store.
func (m *MemoryStore) Close() error {
	return nil
}
