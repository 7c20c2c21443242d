package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"sentinel-hq/sentinel/pkg/verdict"
)

// SQLiteConfig contains configuration for the SQLite verdict backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections to the database.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging mode for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/verdicts.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

const verdictSchema = `
CREATE TABLE IF NOT EXISTS verdicts (
	file_hash          TEXT PRIMARY KEY,
	level              TEXT NOT NULL,
	confidence         REAL NOT NULL,
	composite_score    REAL NOT NULL,
	explanation        TEXT NOT NULL DEFAULT '',
	yara_score         REAL NOT NULL DEFAULT 0,
	ml_score           REAL NOT NULL DEFAULT 0,
	behavioral_score   REAL NOT NULL DEFAULT 0,
	triggered_rules    TEXT NOT NULL DEFAULT '[]',
	detected_behaviors TEXT NOT NULL DEFAULT '[]',
	analyzed_at        INTEGER NOT NULL,
	expires_at         INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_verdicts_expires_at ON verdicts(expires_at);
`

// SQLiteBackend implements Backend using SQLite.
type SQLiteBackend struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteBackend creates a new SQLite verdict backend.
// It initializes the database schema and enables WAL mode if configured.
func NewSQLiteBackend(config *SQLiteConfig) (*SQLiteBackend, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}

	logger := slog.Default().With("component", "verdict.storage.sqlite")

	db, err := sql.Open("sqlite3", config.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open verdict database: %w", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)

	b := &SQLiteBackend{
		db:     db,
		config: config,
		logger: logger,
	}

	if err := b.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite verdict backend initialized",
		"path", config.Path,
		"wal_mode", config.WALMode,
	)

	return b, nil
}

// initialize sets up the database schema and enables WAL mode.
func (b *SQLiteBackend) initialize() error {
	if b.config.WALMode {
		if _, err := b.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	busyTimeoutMs := b.config.BusyTimeout.Milliseconds()
	if _, err := b.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busyTimeoutMs)); err != nil {
		return fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if _, err := b.db.Exec(verdictSchema); err != nil {
		return fmt.Errorf("failed to create verdict schema: %w", err)
	}

	return nil
}

// Put inserts or replaces the record for its file hash.
func (b *SQLiteBackend) Put(ctx context.Context, rec *SandboxVerdict) error {
	rules, err := json.Marshal(rec.TriggeredRules)
	if err != nil {
		return fmt.Errorf("failed to encode triggered rules: %w", err)
	}
	behaviors, err := json.Marshal(rec.DetectedBehaviors)
	if err != nil {
		return fmt.Errorf("failed to encode detected behaviors: %w", err)
	}

	query := `
		INSERT OR REPLACE INTO verdicts (
			file_hash, level, confidence, composite_score, explanation,
			yara_score, ml_score, behavioral_score,
			triggered_rules, detected_behaviors,
			analyzed_at, expires_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = b.db.ExecContext(ctx, query,
		rec.FileHash, rec.Level.String(), rec.Confidence, rec.CompositeScore, rec.Explanation,
		rec.YARAScore, rec.MLScore, rec.BehavioralScore,
		string(rules), string(behaviors),
		rec.AnalyzedAt.UnixMilli(), rec.ExpiresAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to store verdict: %w", err)
	}

	return nil
}

// Get returns the record for the hash, or nil if none is stored.
func (b *SQLiteBackend) Get(ctx context.Context, fileHash string) (*SandboxVerdict, error) {
	query := `
		SELECT file_hash, level, confidence, composite_score, explanation,
		       yara_score, ml_score, behavioral_score,
		       triggered_rules, detected_behaviors,
		       analyzed_at, expires_at
		FROM verdicts WHERE file_hash = ?
	`

	var rec SandboxVerdict
	var levelStr, rules, behaviors string
	var analyzedMs, expiresMs int64

	err := b.db.QueryRowContext(ctx, query, fileHash).Scan(
		&rec.FileHash, &levelStr, &rec.Confidence, &rec.CompositeScore, &rec.Explanation,
		&rec.YARAScore, &rec.MLScore, &rec.BehavioralScore,
		&rules, &behaviors,
		&analyzedMs, &expiresMs,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read verdict: %w", err)
	}

	level, err := verdict.ParseThreatLevel(levelStr)
	if err != nil {
		return nil, fmt.Errorf("corrupt verdict row for %s: %w", fileHash, err)
	}
	rec.Level = level

	if err := json.Unmarshal([]byte(rules), &rec.TriggeredRules); err != nil {
		return nil, fmt.Errorf("corrupt verdict row for %s: %w", fileHash, err)
	}
	if err := json.Unmarshal([]byte(behaviors), &rec.DetectedBehaviors); err != nil {
		return nil, fmt.Errorf("corrupt verdict row for %s: %w", fileHash, err)
	}

	rec.AnalyzedAt = time.UnixMilli(analyzedMs)
	rec.ExpiresAt = time.UnixMilli(expiresMs)

	return &rec, nil
}

// Delete removes the record for the hash. No-op if absent.
func (b *SQLiteBackend) Delete(ctx context.Context, fileHash string) error {
	_, err := b.db.ExecContext(ctx, "DELETE FROM verdicts WHERE file_hash = ?", fileHash)
	if err != nil {
		return fmt.Errorf("failed to delete verdict: %w", err)
	}
	return nil
}

// DeleteExpired purges records whose expiry has passed.
func (b *SQLiteBackend) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	result, err := b.db.ExecContext(ctx,
		"DELETE FROM verdicts WHERE expires_at <= ?", now.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired verdicts: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired verdicts: %w", err)
	}
	return int(n), nil
}

// Clear removes every record.
func (b *SQLiteBackend) Clear(ctx context.Context) error {
	if _, err := b.db.ExecContext(ctx, "DELETE FROM verdicts"); err != nil {
		return fmt.Errorf("failed to clear verdicts: %w", err)
	}
	return nil
}

// Close releases the database connection.
func (b *SQLiteBackend) Close() error {
	if err := b.db.Close(); err != nil {
		return fmt.Errorf("failed to close verdict database: %w", err)
	}
	b.logger.Info("SQLite verdict backend closed")
	return nil
}
