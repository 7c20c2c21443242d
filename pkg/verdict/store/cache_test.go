package store

import (
	"context"
	"testing"
	"time"

	"sentinel-hq/sentinel/pkg/verdict"
)

func newTestCache(t *testing.T) (*Cache, *MemoryBackend) {
	t.Helper()
	backend := NewMemoryBackend()
	cache, err := NewCache(CacheConfig{Backend: backend})
	if err != nil {
		t.Fatalf("NewCache failed: %v", err)
	}
	return cache, backend
}

func TestTTLBySeverity(t *testing.T) {
	tests := []struct {
		level verdict.ThreatLevel
		want  time.Duration
	}{
		{verdict.LevelClean, 30 * 24 * time.Hour},
		{verdict.LevelSuspicious, 7 * 24 * time.Hour},
		{verdict.LevelMalicious, 90 * 24 * time.Hour},
		{verdict.LevelCritical, 365 * 24 * time.Hour},
	}
	for _, tt := range tests {
		if got := TTL(tt.level); got != tt.want {
			t.Errorf("TTL(%s) = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestTTLUnknownLevelIsShortest(t *testing.T) {
	if got := TTL(verdict.ThreatLevel(99)); got != 7*24*time.Hour {
		t.Errorf("TTL(unknown) = %v, want 7 days", got)
	}
}

func TestStoreStampsExpiry(t *testing.T) {
	cache, _ := newTestCache(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	rec := &SandboxVerdict{
		FileHash: "aaaa",
		Level:    verdict.LevelMalicious,
	}
	if err := cache.Store(context.Background(), rec); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	if !rec.AnalyzedAt.Equal(now) {
		t.Errorf("AnalyzedAt = %v, want %v", rec.AnalyzedAt, now)
	}
	want := now.Add(90 * 24 * time.Hour)
	if !rec.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", rec.ExpiresAt, want)
	}
}

func TestStorePreservesExplicitTimestamps(t *testing.T) {
	cache, _ := newTestCache(t)

	analyzed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	expires := analyzed.Add(48 * time.Hour)
	rec := &SandboxVerdict{
		FileHash:   "bbbb",
		Level:      verdict.LevelClean,
		AnalyzedAt: analyzed,
		ExpiresAt:  expires,
	}
	if err := cache.Store(context.Background(), rec); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if !rec.ExpiresAt.Equal(expires) {
		t.Errorf("ExpiresAt overwritten: got %v, want %v", rec.ExpiresAt, expires)
	}
}

func TestLookupRoundTrip(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	rec := &SandboxVerdict{
		FileHash:          "cccc",
		Level:             verdict.LevelSuspicious,
		Confidence:        0.8,
		CompositeScore:    0.45,
		Explanation:       "File exhibits suspicious behavior.",
		TriggeredRules:    []string{"rule-1", "rule-2"},
		DetectedBehaviors: []string{"registry-write"},
	}
	if err := cache.Store(ctx, rec); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	got, err := cache.Lookup(ctx, "cccc")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if got == nil {
		t.Fatal("Lookup returned nil for stored verdict")
	}
	if got.Level != verdict.LevelSuspicious {
		t.Errorf("Level = %s, want suspicious", got.Level)
	}
	if len(got.TriggeredRules) != 2 || got.TriggeredRules[0] != "rule-1" {
		t.Errorf("TriggeredRules = %v", got.TriggeredRules)
	}
}

func TestLookupUnknownHashIsMiss(t *testing.T) {
	cache, _ := newTestCache(t)
	got, err := cache.Lookup(context.Background(), "unknown")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if got != nil {
		t.Errorf("Lookup(unknown) = %+v, want nil", got)
	}
}

func TestLookupExpiredIsMissAndPurges(t *testing.T) {
	cache, backend := newTestCache(t)
	ctx := context.Background()

	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	rec := &SandboxVerdict{FileHash: "dddd", Level: verdict.LevelSuspicious}
	if err := cache.Store(ctx, rec); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	// Advance past the 7-day suspicious TTL.
	cache.now = func() time.Time { return now.Add(7*24*time.Hour + time.Second) }

	got, err := cache.Lookup(ctx, "dddd")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if got != nil {
		t.Errorf("expired verdict returned: %+v", got)
	}

	// The expired record should have been lazily deleted.
	stored, err := backend.Get(ctx, "dddd")
	if err != nil {
		t.Fatalf("backend Get failed: %v", err)
	}
	if stored != nil {
		t.Error("expired record still present after lookup")
	}
}

func TestLookupAtExactExpiryIsMiss(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	rec := &SandboxVerdict{FileHash: "eeee", Level: verdict.LevelClean}
	if err := cache.Store(ctx, rec); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	cache.now = func() time.Time { return rec.ExpiresAt }
	got, err := cache.Lookup(ctx, "eeee")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if got != nil {
		t.Error("verdict at exact expiry instant should be a miss")
	}
}

func TestInvalidate(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	rec := &SandboxVerdict{FileHash: "ffff", Level: verdict.LevelClean}
	if err := cache.Store(ctx, rec); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if err := cache.Invalidate(ctx, "ffff"); err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}
	got, err := cache.Lookup(ctx, "ffff")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if got != nil {
		t.Error("invalidated verdict still returned")
	}
}

func TestClearAll(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	for _, hash := range []string{"h1", "h2", "h3"} {
		if err := cache.Store(ctx, &SandboxVerdict{FileHash: hash, Level: verdict.LevelClean}); err != nil {
			t.Fatalf("Store failed: %v", err)
		}
	}
	if err := cache.ClearAll(ctx); err != nil {
		t.Fatalf("ClearAll failed: %v", err)
	}
	for _, hash := range []string{"h1", "h2", "h3"} {
		got, err := cache.Lookup(ctx, hash)
		if err != nil {
			t.Fatalf("Lookup failed: %v", err)
		}
		if got != nil {
			t.Errorf("verdict %s survived ClearAll", hash)
		}
	}
}

func TestPurgeExpired(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	// One 7-day record and one 90-day record.
	if err := cache.Store(ctx, &SandboxVerdict{FileHash: "short", Level: verdict.LevelSuspicious}); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if err := cache.Store(ctx, &SandboxVerdict{FileHash: "long", Level: verdict.LevelMalicious}); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	cache.now = func() time.Time { return now.Add(8 * 24 * time.Hour) }
	n, err := cache.PurgeExpired(ctx)
	if err != nil {
		t.Fatalf("PurgeExpired failed: %v", err)
	}
	if n != 1 {
		t.Errorf("purged %d records, want 1", n)
	}

	got, err := cache.Lookup(ctx, "long")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if got == nil {
		t.Error("unexpired verdict purged")
	}
}

func TestStoreRejectsInvalidRecords(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	if err := cache.Store(ctx, nil); err == nil {
		t.Error("Store(nil) should fail")
	}
	if err := cache.Store(ctx, &SandboxVerdict{}); err == nil {
		t.Error("Store without file hash should fail")
	}
	if _, err := cache.Lookup(ctx, ""); err == nil {
		t.Error("Lookup with empty hash should fail")
	}
}
