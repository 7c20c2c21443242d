package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"sentinel-hq/sentinel/pkg/verdict"
)

func newTestSQLiteBackend(t *testing.T) *SQLiteBackend {
	t.Helper()
	cfg := DefaultSQLiteConfig()
	cfg.Path = filepath.Join(t.TempDir(), "verdicts.db")
	backend, err := NewSQLiteBackend(cfg)
	if err != nil {
		t.Fatalf("NewSQLiteBackend failed: %v", err)
	}
	t.Cleanup(func() { backend.Close() })
	return backend
}

func TestSQLitePutGetRoundTrip(t *testing.T) {
	backend := newTestSQLiteBackend(t)
	ctx := context.Background()

	analyzed := time.Date(2026, 2, 1, 10, 30, 0, 0, time.UTC)
	rec := &SandboxVerdict{
		FileHash:          "ab12",
		Level:             verdict.LevelCritical,
		Confidence:        0.95,
		CompositeScore:    0.88,
		Explanation:       "CRITICAL threat detected.",
		YARAScore:         0.9,
		MLScore:           0.85,
		BehavioralScore:   0.88,
		TriggeredRules:    []string{"ransom-note", "crypto-loop"},
		DetectedBehaviors: []string{"mass-file-encryption"},
		AnalyzedAt:        analyzed,
		ExpiresAt:         analyzed.Add(365 * 24 * time.Hour),
	}
	if err := backend.Put(ctx, rec); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := backend.Get(ctx, "ab12")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got == nil {
		t.Fatal("Get returned nil for stored record")
	}
	if got.Level != verdict.LevelCritical {
		t.Errorf("Level = %s, want critical", got.Level)
	}
	if got.Confidence != 0.95 || got.CompositeScore != 0.88 {
		t.Errorf("scores = %g/%g, want 0.95/0.88", got.Confidence, got.CompositeScore)
	}
	if len(got.TriggeredRules) != 2 || got.TriggeredRules[1] != "crypto-loop" {
		t.Errorf("TriggeredRules = %v", got.TriggeredRules)
	}
	if len(got.DetectedBehaviors) != 1 {
		t.Errorf("DetectedBehaviors = %v", got.DetectedBehaviors)
	}
	if !got.AnalyzedAt.Equal(analyzed) {
		t.Errorf("AnalyzedAt = %v, want %v", got.AnalyzedAt, analyzed)
	}
}

func TestSQLiteGetMissingReturnsNil(t *testing.T) {
	backend := newTestSQLiteBackend(t)
	got, err := backend.Get(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != nil {
		t.Errorf("Get(missing) = %+v, want nil", got)
	}
}

func TestSQLitePutReplacesExisting(t *testing.T) {
	backend := newTestSQLiteBackend(t)
	ctx := context.Background()
	now := time.Now().UTC()

	rec := &SandboxVerdict{
		FileHash: "cd34", Level: verdict.LevelClean,
		AnalyzedAt: now, ExpiresAt: now.Add(time.Hour),
	}
	if err := backend.Put(ctx, rec); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	rec.Level = verdict.LevelMalicious
	rec.CompositeScore = 0.7
	if err := backend.Put(ctx, rec); err != nil {
		t.Fatalf("second Put failed: %v", err)
	}

	got, err := backend.Get(ctx, "cd34")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Level != verdict.LevelMalicious {
		t.Errorf("Level after replace = %s, want malicious", got.Level)
	}
}

func TestSQLiteDeleteExpired(t *testing.T) {
	backend := newTestSQLiteBackend(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	records := []*SandboxVerdict{
		{FileHash: "old1", Level: verdict.LevelClean, AnalyzedAt: now.Add(-48 * time.Hour), ExpiresAt: now.Add(-time.Hour)},
		{FileHash: "old2", Level: verdict.LevelSuspicious, AnalyzedAt: now.Add(-48 * time.Hour), ExpiresAt: now},
		{FileHash: "live", Level: verdict.LevelMalicious, AnalyzedAt: now, ExpiresAt: now.Add(time.Hour)},
	}
	for _, rec := range records {
		if err := backend.Put(ctx, rec); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}

	n, err := backend.DeleteExpired(ctx, now)
	if err != nil {
		t.Fatalf("DeleteExpired failed: %v", err)
	}
	if n != 2 {
		t.Errorf("deleted %d records, want 2", n)
	}

	got, err := backend.Get(ctx, "live")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got == nil {
		t.Error("live record deleted by DeleteExpired")
	}
}

func TestSQLiteClear(t *testing.T) {
	backend := newTestSQLiteBackend(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for _, hash := range []string{"a", "b"} {
		rec := &SandboxVerdict{FileHash: hash, Level: verdict.LevelClean, AnalyzedAt: now, ExpiresAt: now.Add(time.Hour)}
		if err := backend.Put(ctx, rec); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}
	if err := backend.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	got, err := backend.Get(ctx, "a")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != nil {
		t.Error("record survived Clear")
	}
}

func TestSQLiteCacheIntegration(t *testing.T) {
	backend := newTestSQLiteBackend(t)
	cache, err := NewCache(CacheConfig{Backend: backend})
	if err != nil {
		t.Fatalf("NewCache failed: %v", err)
	}
	ctx := context.Background()

	rec := &SandboxVerdict{FileHash: "ef56", Level: verdict.LevelSuspicious}
	if err := cache.Store(ctx, rec); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	got, err := cache.Lookup(ctx, "ef56")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if got == nil {
		t.Fatal("Lookup returned nil for stored verdict")
	}
	want := rec.AnalyzedAt.Add(7 * 24 * time.Hour)
	if !got.ExpiresAt.Equal(want.Truncate(time.Millisecond)) {
		t.Errorf("ExpiresAt = %v, want %v", got.ExpiresAt, want.Truncate(time.Millisecond))
	}
}
