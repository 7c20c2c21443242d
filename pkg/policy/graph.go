package policy

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"sentinel-hq/sentinel/pkg/cache"
	"sentinel-hq/sentinel/pkg/telemetry/metrics"
)

// Graph is the policy resolution engine: CRUD over the policy store plus
// priority-ordered matching with LRU memoization.
type Graph struct {
	store   Store
	cache   *cache.LRU[string, MatchOutcome]
	logger  *slog.Logger
	metrics *metrics.PolicyMetrics

	// now is stubbed in tests.
	now func() time.Time
}

// GraphConfig configures a Graph.
type GraphConfig struct {
	// Store is the persistence collaborator. Required.
	Store Store

	// CacheSize is the match-result LRU capacity (default 1000).
	CacheSize int

	// Logger receives engine events (default slog.Default).
	Logger *slog.Logger

	// Metrics, when set, receives match and mutation counters.
	Metrics *metrics.PolicyMetrics
}

// NewGraph creates a policy resolution engine.
func NewGraph(cfg GraphConfig) (*Graph, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("policy graph requires a store")
	}
	if cfg.CacheSize == 0 {
		cfg.CacheSize = 1000
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	matchCache, err := cache.New[string, MatchOutcome](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create match cache: %w", err)
	}

	return &Graph{
		store:   cfg.Store,
		cache:   matchCache,
		logger:  cfg.Logger.With("component", "policy.graph"),
		metrics: cfg.Metrics,
		now:     time.Now,
	}, nil
}

// CreatePolicy validates and persists a new policy, returning its ID.
// The whole match cache is invalidated on success.
func (g *Graph) CreatePolicy(ctx context.Context, p *Policy) (int64, error) {
	now := g.now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if err := p.Validate(now); err != nil {
		return 0, err
	}

	id, err := g.store.Insert(ctx, p)
	if err != nil {
		return 0, &StorageError{Op: "insert", Cause: err}
	}

	g.invalidateCache("create")
	g.logger.Info("policy created", "policy_id", id, "rule", p.RuleName, "action", p.Action.String())
	return id, nil
}

// GetPolicy returns the policy with the given ID. ErrNotFound surfaces to
// the caller unchanged.
func (g *Graph) GetPolicy(ctx context.Context, id int64) (*Policy, error) {
	p, err := g.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, &StorageError{Op: "get", Cause: err}
	}
	return p, nil
}

// ListPolicies returns all stored policies.
func (g *Graph) ListPolicies(ctx context.Context) ([]*Policy, error) {
	ps, err := g.store.List(ctx)
	if err != nil {
		return nil, &StorageError{Op: "list", Cause: err}
	}
	return ps, nil
}

// UpdatePolicy validates and overwrites the policy with the given ID.
// The whole match cache is invalidated on success.
func (g *Graph) UpdatePolicy(ctx context.Context, id int64, p *Policy) error {
	if err := p.Validate(g.now()); err != nil {
		return err
	}

	if err := g.store.Update(ctx, id, p); err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return &StorageError{Op: "update", Cause: err}
	}

	g.invalidateCache("update")
	g.logger.Info("policy updated", "policy_id", id, "rule", p.RuleName)
	return nil
}

// DeletePolicy removes the policy with the given ID.
// The whole match cache is invalidated on success.
func (g *Graph) DeletePolicy(ctx context.Context, id int64) error {
	if err := g.store.Delete(ctx, id); err != nil {
		return &StorageError{Op: "delete", Cause: err}
	}

	g.invalidateCache("delete")
	g.logger.Info("policy deleted", "policy_id", id)
	return nil
}

// MatchPolicy resolves a threat observation to at most one policy,
// consulting the match cache first and querying the store in priority
// order (file hash, URL pattern, rule name) on a miss. The result,
// positive or negative, is cached before returning. A matched policy's hit
// count and last-hit time are updated in the same call.
//
// Returns (nil, nil) when no policy matches.
func (g *Graph) MatchPolicy(ctx context.Context, threat ThreatMetadata) (*Policy, error) {
	start := g.now()
	matched, tier, err := g.matchPolicy(ctx, threat)
	if g.metrics != nil {
		g.metrics.ObserveMatchDuration(time.Since(start))
		if err == nil {
			g.metrics.RecordMatch(tier)
		}
	}
	return matched, err
}

func (g *Graph) matchPolicy(ctx context.Context, threat ThreatMetadata) (*Policy, string, error) {
	now := g.now()

	// Key computation failure is a correctness-preserving degradation:
	// skip caching for this call and run the full match.
	key, keyErr := cacheKey(threat)
	useCache := keyErr == nil
	if keyErr != nil {
		g.logger.Warn("cache key computation failed, matching uncached", "error", keyErr)
	}

	if useCache {
		if outcome, ok := g.cache.Get(key); ok {
			if !outcome.Matched {
				return nil, "cache", nil
			}

			p, err := g.store.Get(ctx, outcome.PolicyID)
			switch {
			case errors.Is(err, ErrNotFound):
				// Stale entry: the policy was deleted after being cached.
				// Fall through to a full match.
			case err != nil:
				return nil, "", &StorageError{Op: "get", Cause: err}
			case p.Expired(now):
				// Inert policy; re-resolve below.
			default:
				if err := g.store.RecordHit(ctx, p.ID, now); err != nil {
					return nil, "", &StorageError{Op: "record_hit", Cause: err}
				}
				return p, "cache", nil
			}
		}
	}

	matched, tier, err := g.queryTiers(ctx, threat, now)
	if err != nil {
		// No partial cache writes on storage failure.
		return nil, "", err
	}

	if useCache {
		outcome := MatchOutcome{}
		if matched != nil {
			outcome = MatchOutcome{Matched: true, PolicyID: matched.ID}
		}
		if err := g.cache.Put(key, outcome); err != nil {
			g.logger.Warn("failed to cache match outcome", "error", err)
		}
	}

	if matched != nil {
		if err := g.store.RecordHit(ctx, matched.ID, now); err != nil {
			return nil, "", &StorageError{Op: "record_hit", Cause: err}
		}
	}

	return matched, tier, nil
}

// queryTiers runs the three priority tiers against the store.
func (g *Graph) queryTiers(ctx context.Context, threat ThreatMetadata, now time.Time) (*Policy, string, error) {
	if threat.FileHash != "" {
		p, err := g.store.MatchByHash(ctx, threat.FileHash, now)
		if err != nil {
			return nil, "", &StorageError{Op: "match_by_hash", Cause: err}
		}
		if p != nil {
			return p, "file_hash", nil
		}
	}

	if threat.URL != "" {
		p, err := g.store.MatchByURLPattern(ctx, threat.URL, now)
		if err != nil {
			return nil, "", &StorageError{Op: "match_by_url_pattern", Cause: err}
		}
		if p != nil {
			return p, "url_pattern", nil
		}
	}

	if threat.RuleName != "" {
		p, err := g.store.MatchByRuleName(ctx, threat.RuleName, now)
		if err != nil {
			return nil, "", &StorageError{Op: "match_by_rule_name", Cause: err}
		}
		if p != nil {
			return p, "rule_name", nil
		}
	}

	return nil, "none", nil
}

// RecordThreat appends a threat observation with the action taken for it.
func (g *Graph) RecordThreat(ctx context.Context, threat ThreatMetadata, actionTaken string, policyID int64, alertJSON string) (int64, error) {
	rec := &ThreatRecord{
		DetectedAt:  g.now(),
		URL:         threat.URL,
		Filename:    threat.Filename,
		FileHash:    threat.FileHash,
		MimeType:    threat.MimeType,
		FileSize:    threat.FileSize,
		RuleName:    threat.RuleName,
		Severity:    threat.Severity,
		ActionTaken: actionTaken,
		PolicyID:    policyID,
		AlertJSON:   alertJSON,
	}

	id, err := g.store.RecordThreat(ctx, rec)
	if err != nil {
		return 0, &StorageError{Op: "record_threat", Cause: err}
	}
	return id, nil
}

// ThreatHistory returns threat records detected at or after since
// (zero time returns everything).
func (g *Graph) ThreatHistory(ctx context.Context, since time.Time) ([]*ThreatRecord, error) {
	recs, err := g.store.ListThreats(ctx, since)
	if err != nil {
		return nil, &StorageError{Op: "list_threats", Cause: err}
	}
	return recs, nil
}

// ThreatsByRule returns threat records for one detection rule.
func (g *Graph) ThreatsByRule(ctx context.Context, ruleName string) ([]*ThreatRecord, error) {
	recs, err := g.store.ListThreatsByRule(ctx, ruleName)
	if err != nil {
		return nil, &StorageError{Op: "list_threats_by_rule", Cause: err}
	}
	return recs, nil
}

// CleanupExpiredPolicies purges expired policies and invalidates the match
// cache when anything was removed.
func (g *Graph) CleanupExpiredPolicies(ctx context.Context) (int, error) {
	n, err := g.store.DeleteExpired(ctx, g.now())
	if err != nil {
		return 0, &StorageError{Op: "delete_expired", Cause: err}
	}
	if n > 0 {
		g.invalidateCache("expiry_sweep")
		g.logger.Info("expired policies purged", "count", n)
	}
	return n, nil
}

// CleanupOldThreats removes threat history older than the given retention.
func (g *Graph) CleanupOldThreats(ctx context.Context, keep time.Duration) (int, error) {
	n, err := g.store.PruneThreats(ctx, g.now().Add(-keep))
	if err != nil {
		return 0, &StorageError{Op: "prune_threats", Cause: err}
	}
	return n, nil
}

// CacheMetrics returns a snapshot of the match cache counters.
func (g *Graph) CacheMetrics() cache.Metrics {
	return g.cache.Metrics()
}

// ResetCacheMetrics zeroes the match cache counters.
func (g *Graph) ResetCacheMetrics() {
	g.cache.ResetMetrics()
}

func (g *Graph) invalidateCache(op string) {
	g.cache.Invalidate()
	if g.metrics != nil {
		g.metrics.RecordMutation(op)
	}
}

// cacheKey derives a stable, collision-resistant fingerprint of the threat
// tuple that drives matching. Fields are length-prefixed so no two tuples
// can concatenate to the same byte stream.
func cacheKey(threat ThreatMetadata) (string, error) {
	h := sha256.New()
	for _, field := range []string{threat.URL, threat.Filename, threat.MimeType, threat.FileHash} {
		var n [4]byte
		binary.BigEndian.PutUint32(n[:], uint32(len(field)))
		if _, err := h.Write(n[:]); err != nil {
			return "", fmt.Errorf("cache key hashing failed: %w", err)
		}
		if _, err := h.Write([]byte(field)); err != nil {
			return "", fmt.Errorf("cache key hashing failed: %w", err)
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
