package policy

import (
	"context"
	"time"
)

// Store is the persistence collaborator consumed by the Graph engine.
// Implementations must be safe for concurrent use and must return
// ErrNotFound (possibly wrapped) when a policy ID does not exist.
//
// The three Match queries mirror the engine's priority tiers and must each
// exclude policies whose expiry has passed at the supplied instant. They
// return nil with no error when nothing matches.
type Store interface {
	// Insert persists a new policy and returns its assigned ID.
	Insert(ctx context.Context, p *Policy) (int64, error)

	// Get returns the policy with the given ID.
	Get(ctx context.Context, id int64) (*Policy, error)

	// List returns all policies, including expired ones.
	List(ctx context.Context) ([]*Policy, error)

	// Update overwrites the mutable fields of the policy with the given ID.
	Update(ctx context.Context, id int64, p *Policy) error

	// Delete removes the policy with the given ID. No-op if absent.
	Delete(ctx context.Context, id int64) error

	// MatchByHash returns a non-expired policy whose file hash equals hash.
	MatchByHash(ctx context.Context, hash string, now time.Time) (*Policy, error)

	// MatchByURLPattern returns a non-expired policy whose URL wildcard
	// pattern matches url.
	MatchByURLPattern(ctx context.Context, url string, now time.Time) (*Policy, error)

	// MatchByRuleName returns a non-expired policy with the given rule name
	// that has neither a file hash nor a URL pattern set.
	MatchByRuleName(ctx context.Context, ruleName string, now time.Time) (*Policy, error)

	// RecordHit increments the policy's hit count and sets its last-hit
	// time in a single atomic operation.
	RecordHit(ctx context.Context, id int64, at time.Time) error

	// DeleteExpired purges policies whose expiry has passed and returns the
	// number removed.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)

	// CountPolicies returns the total number of stored policies.
	CountPolicies(ctx context.Context) (int64, error)

	// RecordThreat appends a threat history row and returns its ID.
	RecordThreat(ctx context.Context, rec *ThreatRecord) (int64, error)

	// ListThreats returns threat history, optionally bounded to records
	// detected at or after since (zero time means all).
	ListThreats(ctx context.Context, since time.Time) ([]*ThreatRecord, error)

	// ListThreatsByRule returns threat history for one detection rule.
	ListThreatsByRule(ctx context.Context, ruleName string) ([]*ThreatRecord, error)

	// PruneThreats removes threat history older than the cutoff and returns
	// the number removed.
	PruneThreats(ctx context.Context, olderThan time.Time) (int, error)

	// CountThreats returns the total number of threat history rows.
	CountThreats(ctx context.Context) (int64, error)

	// Close releases resources held by the store.
	Close() error
}
