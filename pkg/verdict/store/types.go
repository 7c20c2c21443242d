package store

import (
	"context"
	"time"

	"sentinel-hq/sentinel/pkg/verdict"
)

// SandboxVerdict is the persisted form of one analysis result, keyed by
// content hash.
type SandboxVerdict struct {
	// FileHash is the hex content hash the verdict applies to.
	FileHash string

	// Level is the threat level the scoring engine assigned.
	Level verdict.ThreatLevel

	Confidence     float64
	CompositeScore float64
	Explanation    string

	// Component scores, kept for transparency.
	YARAScore       float64
	MLScore         float64
	BehavioralScore float64

	// TriggeredRules names the detection rules that fired.
	TriggeredRules []string

	// DetectedBehaviors describes runtime behaviors the sandbox observed.
	DetectedBehaviors []string

	// AnalyzedAt is when the analysis ran.
	AnalyzedAt time.Time

	// ExpiresAt is always AnalyzedAt + TTL(Level). A record past this
	// instant is logically absent.
	ExpiresAt time.Time
}

// Expired reports whether the record is logically absent at now.
func (v *SandboxVerdict) Expired(now time.Time) bool {
	return !v.ExpiresAt.After(now)
}

// TTL returns how long a verdict at the given threat level stays trusted.
func TTL(level verdict.ThreatLevel) time.Duration {
	switch level {
	case verdict.LevelClean:
		return 30 * 24 * time.Hour
	case verdict.LevelSuspicious:
		return 7 * 24 * time.Hour
	case verdict.LevelMalicious:
		return 90 * 24 * time.Hour
	case verdict.LevelCritical:
		return 365 * 24 * time.Hour
	default:
		// Unknown levels get the shortest trust window.
		return 7 * 24 * time.Hour
	}
}

// Backend is the durable key-value collaborator holding serialized
// verdicts. Implementations must be safe for concurrent use.
type Backend interface {
	// Put inserts or replaces the record for its file hash.
	Put(ctx context.Context, rec *SandboxVerdict) error

	// Get returns the record for the hash, or nil if none is stored.
	// Get does not apply expiry; that is the Cache's job.
	Get(ctx context.Context, fileHash string) (*SandboxVerdict, error)

	// Delete removes the record for the hash. No-op if absent.
	Delete(ctx context.Context, fileHash string) error

	// DeleteExpired purges records whose expiry has passed and returns
	// the number removed.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)

	// Clear removes every record.
	Clear(ctx context.Context) error

	// Close releases resources held by the backend.
	Close() error
}
