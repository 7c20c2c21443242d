package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Cache is the verdict cache fronting a Backend. It enforces the
// TTL-by-severity policy: expiry is stamped at store time and checked
// against a single wall-clock read at lookup time.
type Cache struct {
	backend Backend
	logger  *slog.Logger

	// now is stubbed in tests.
	now func() time.Time
}

// CacheConfig configures a Cache.
type CacheConfig struct {
	// Backend is the durable collaborator. Required.
	Backend Backend

	// Logger receives cache events (default slog.Default).
	Logger *slog.Logger
}

// NewCache creates a verdict cache over the given backend.
func NewCache(cfg CacheConfig) (*Cache, error) {
	if cfg.Backend == nil {
		return nil, fmt.Errorf("verdict cache requires a backend")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Cache{
		backend: cfg.Backend,
		logger:  cfg.Logger.With("component", "verdict.cache"),
		now:     time.Now,
	}, nil
}

// Store persists a verdict record. A zero AnalyzedAt is stamped with the
// current time, and a zero ExpiresAt is derived as AnalyzedAt plus the
// level's TTL. Explicit timestamps are preserved so re-imported records
// keep their original expiry.
func (c *Cache) Store(ctx context.Context, rec *SandboxVerdict) error {
	if rec == nil {
		return fmt.Errorf("verdict record cannot be nil")
	}
	if rec.FileHash == "" {
		return fmt.Errorf("verdict record requires a file hash")
	}

	if rec.AnalyzedAt.IsZero() {
		rec.AnalyzedAt = c.now()
	}
	if rec.ExpiresAt.IsZero() {
		rec.ExpiresAt = rec.AnalyzedAt.Add(TTL(rec.Level))
	}

	if err := c.backend.Put(ctx, rec); err != nil {
		return fmt.Errorf("failed to store verdict for %s: %w", rec.FileHash, err)
	}

	c.logger.Debug("verdict cached",
		"file_hash", rec.FileHash,
		"level", rec.Level.String(),
		"expires_at", rec.ExpiresAt)
	return nil
}

// Lookup returns the cached verdict for a content hash, or nil if none is
// stored or the stored record has expired. Expired records are lazily
// purged but a purge failure never fails the lookup.
func (c *Cache) Lookup(ctx context.Context, fileHash string) (*SandboxVerdict, error) {
	if fileHash == "" {
		return nil, fmt.Errorf("file hash cannot be empty")
	}

	rec, err := c.backend.Get(ctx, fileHash)
	if err != nil {
		return nil, fmt.Errorf("failed to look up verdict for %s: %w", fileHash, err)
	}
	if rec == nil {
		return nil, nil
	}

	if rec.Expired(c.now()) {
		if err := c.backend.Delete(ctx, fileHash); err != nil {
			c.logger.Warn("failed to purge expired verdict", "file_hash", fileHash, "error", err)
		}
		return nil, nil
	}

	return rec, nil
}

// Invalidate removes the cached verdict for a content hash.
func (c *Cache) Invalidate(ctx context.Context, fileHash string) error {
	if fileHash == "" {
		return fmt.Errorf("file hash cannot be empty")
	}
	if err := c.backend.Delete(ctx, fileHash); err != nil {
		return fmt.Errorf("failed to invalidate verdict for %s: %w", fileHash, err)
	}
	return nil
}

// ClearAll removes every cached verdict.
func (c *Cache) ClearAll(ctx context.Context) error {
	if err := c.backend.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear verdict cache: %w", err)
	}
	c.logger.Info("verdict cache cleared")
	return nil
}

// PurgeExpired removes every record whose expiry has passed, returning
// the number purged. Used by the retention sweep.
func (c *Cache) PurgeExpired(ctx context.Context) (int, error) {
	n, err := c.backend.DeleteExpired(ctx, c.now())
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired verdicts: %w", err)
	}
	if n > 0 {
		c.logger.Info("expired verdicts purged", "count", n)
	}
	return n, nil
}
