package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"sentinel-hq/sentinel/pkg/policy"
)

// policyColumns is the shared SELECT column list for policy rows.
const policyColumns = `id, rule_name, url_pattern, file_hash, mime_type, action,
	match_type, enforcement_action, created_at, created_by, expires_at, hit_count, last_hit`

// SQLiteStore implements policy.Store using SQLite for persistence.
// It uses a write-ahead log for concurrent read performance and prepared
// statements for the hot match path.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex

	insertStmt          *sql.Stmt
	getStmt             *sql.Stmt
	listStmt            *sql.Stmt
	updateStmt          *sql.Stmt
	deleteStmt          *sql.Stmt
	matchHashStmt       *sql.Stmt
	matchURLStmt        *sql.Stmt
	matchRuleStmt       *sql.Stmt
	recordHitStmt       *sql.Stmt
	deleteExpiredStmt   *sql.Stmt
	countPoliciesStmt   *sql.Stmt
	insertThreatStmt    *sql.Stmt
	listThreatsStmt     *sql.Stmt
	listThreatsSinceStmt *sql.Stmt
	threatsByRuleStmt   *sql.Stmt
	pruneThreatsStmt    *sql.Stmt
	countThreatsStmt    *sql.Stmt

	closeOnce sync.Once
}

// SQLiteStoreConfig configures the SQLite policy store.
type SQLiteStoreConfig struct {
	// Path is the database file path.
	Path string

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds.
	BusyTimeout time.Duration
}

// NewSQLiteStore creates a SQLite policy store with default settings.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	return NewSQLiteStoreWithConfig(SQLiteStoreConfig{Path: path})
}

// NewSQLiteStoreWithConfig creates a SQLite policy store with custom
// configuration.
func NewSQLiteStoreWithConfig(cfg SQLiteStoreConfig) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL",
		cfg.Path, int(cfg.BusyTimeout.Milliseconds()))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	store := &SQLiteStore{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if err := store.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS policies (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		rule_name TEXT NOT NULL,
		url_pattern TEXT NOT NULL DEFAULT '',
		file_hash TEXT NOT NULL DEFAULT '',
		mime_type TEXT NOT NULL DEFAULT '',
		action TEXT NOT NULL,
		match_type TEXT NOT NULL,
		enforcement_action TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		created_by TEXT NOT NULL,
		expires_at INTEGER NOT NULL DEFAULT 0,
		hit_count INTEGER NOT NULL DEFAULT 0,
		last_hit INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_policies_file_hash ON policies(file_hash);
	CREATE INDEX IF NOT EXISTS idx_policies_rule_name ON policies(rule_name);
	CREATE INDEX IF NOT EXISTS idx_policies_expires_at ON policies(expires_at);

	CREATE TABLE IF NOT EXISTS threat_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		detected_at INTEGER NOT NULL,
		url TEXT NOT NULL DEFAULT '',
		filename TEXT NOT NULL DEFAULT '',
		file_hash TEXT NOT NULL DEFAULT '',
		mime_type TEXT NOT NULL DEFAULT '',
		file_size INTEGER NOT NULL DEFAULT 0,
		rule_name TEXT NOT NULL DEFAULT '',
		severity TEXT NOT NULL DEFAULT '',
		action_taken TEXT NOT NULL DEFAULT '',
		policy_id INTEGER NOT NULL DEFAULT 0,
		alert_json TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_threats_detected_at ON threat_history(detected_at);
	CREATE INDEX IF NOT EXISTS idx_threats_rule_name ON threat_history(rule_name);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) prepareStatements() error {
	stmts := []struct {
		target **sql.Stmt
		query  string
	}{
		{&s.insertStmt, `
			INSERT INTO policies (rule_name, url_pattern, file_hash, mime_type, action,
				match_type, enforcement_action, created_at, created_by, expires_at, hit_count, last_hit)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`},
		{&s.getStmt, `SELECT ` + policyColumns + ` FROM policies WHERE id = ?`},
		{&s.listStmt, `SELECT ` + policyColumns + ` FROM policies ORDER BY id`},
		{&s.updateStmt, `
			UPDATE policies SET rule_name = ?, url_pattern = ?, file_hash = ?, mime_type = ?,
				action = ?, match_type = ?, enforcement_action = ?, expires_at = ?
			WHERE id = ?`},
		{&s.deleteStmt, `DELETE FROM policies WHERE id = ?`},
		{&s.matchHashStmt, `
			SELECT ` + policyColumns + ` FROM policies
			WHERE file_hash = ? AND file_hash != '' AND (expires_at = 0 OR expires_at > ?)
			ORDER BY id LIMIT 1`},
		{&s.matchURLStmt, `
			SELECT ` + policyColumns + ` FROM policies
			WHERE url_pattern != '' AND ? LIKE url_pattern ESCAPE '\' AND (expires_at = 0 OR expires_at > ?)
			ORDER BY id LIMIT 1`},
		{&s.matchRuleStmt, `
			SELECT ` + policyColumns + ` FROM policies
			WHERE rule_name = ? AND file_hash = '' AND url_pattern = ''
				AND (expires_at = 0 OR expires_at > ?)
			ORDER BY id LIMIT 1`},
		{&s.recordHitStmt, `UPDATE policies SET hit_count = hit_count + 1, last_hit = ? WHERE id = ?`},
		{&s.deleteExpiredStmt, `DELETE FROM policies WHERE expires_at != 0 AND expires_at <= ?`},
		{&s.countPoliciesStmt, `SELECT COUNT(*) FROM policies`},
		{&s.insertThreatStmt, `
			INSERT INTO threat_history (detected_at, url, filename, file_hash, mime_type,
				file_size, rule_name, severity, action_taken, policy_id, alert_json)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`},
		{&s.listThreatsStmt, `
			SELECT id, detected_at, url, filename, file_hash, mime_type, file_size,
				rule_name, severity, action_taken, policy_id, alert_json
			FROM threat_history ORDER BY detected_at DESC`},
		{&s.listThreatsSinceStmt, `
			SELECT id, detected_at, url, filename, file_hash, mime_type, file_size,
				rule_name, severity, action_taken, policy_id, alert_json
			FROM threat_history WHERE detected_at >= ? ORDER BY detected_at DESC`},
		{&s.threatsByRuleStmt, `
			SELECT id, detected_at, url, filename, file_hash, mime_type, file_size,
				rule_name, severity, action_taken, policy_id, alert_json
			FROM threat_history WHERE rule_name = ? ORDER BY detected_at DESC`},
		{&s.pruneThreatsStmt, `DELETE FROM threat_history WHERE detected_at < ?`},
		{&s.countThreatsStmt, `SELECT COUNT(*) FROM threat_history`},
	}

	for _, st := range stmts {
		prepared, err := s.db.Prepare(st.query)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		*st.target = prepared
	}
	return nil
}

// Insert persists a new policy and returns its assigned ID.
func (s *SQLiteStore) Insert(ctx context.Context, p *policy.Policy) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.insertStmt.ExecContext(ctx,
		p.RuleName, p.URLPattern, p.FileHash, p.MimeType,
		p.Action.String(), p.MatchType.String(), p.EnforcementAction,
		timeToMillis(p.CreatedAt), p.CreatedBy, timeToMillis(p.ExpiresAt),
		p.HitCount, timeToMillis(p.LastHit),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert policy: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read inserted id: %w", err)
	}
	return id, nil
}

// Get returns the policy with the given ID or policy.ErrNotFound.
func (s *SQLiteStore) Get(ctx context.Context, id int64) (*policy.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, err := scanPolicy(s.getStmt.QueryRowContext(ctx, id))
	if err == sql.ErrNoRows {
		return nil, policy.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load policy %d: %w", id, err)
	}
	return p, nil
}

// List returns all policies, including expired ones.
func (s *SQLiteStore) List(ctx context.Context) ([]*policy.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.listStmt.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list policies: %w", err)
	}
	defer rows.Close()

	var policies []*policy.Policy
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan policy row: %w", err)
		}
		policies = append(policies, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating policy rows: %w", err)
	}
	return policies, nil
}

// Update overwrites the mutable fields of the policy with the given ID.
func (s *SQLiteStore) Update(ctx context.Context, id int64, p *policy.Policy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.updateStmt.ExecContext(ctx,
		p.RuleName, p.URLPattern, p.FileHash, p.MimeType,
		p.Action.String(), p.MatchType.String(), p.EnforcementAction,
		timeToMillis(p.ExpiresAt), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update policy %d: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return policy.ErrNotFound
	}
	return nil
}

// Delete removes the policy with the given ID. No-op if absent.
func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.deleteStmt.ExecContext(ctx, id); err != nil {
		return fmt.Errorf("failed to delete policy %d: %w", id, err)
	}
	return nil
}

// MatchByHash returns a non-expired policy with the exact file hash.
func (s *SQLiteStore) MatchByHash(ctx context.Context, hash string, now time.Time) (*policy.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.matchOne(ctx, s.matchHashStmt, hash, now)
}

// MatchByURLPattern returns a non-expired policy whose wildcard pattern
// matches the URL. Pattern semantics are SQLite LIKE with '\' escapes.
func (s *SQLiteStore) MatchByURLPattern(ctx context.Context, url string, now time.Time) (*policy.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.matchOne(ctx, s.matchURLStmt, url, now)
}

// MatchByRuleName returns a non-expired bare policy (no hash or pattern)
// with the given rule name.
func (s *SQLiteStore) MatchByRuleName(ctx context.Context, ruleName string, now time.Time) (*policy.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.matchOne(ctx, s.matchRuleStmt, ruleName, now)
}

func (s *SQLiteStore) matchOne(ctx context.Context, stmt *sql.Stmt, arg string, now time.Time) (*policy.Policy, error) {
	p, err := scanPolicy(stmt.QueryRowContext(ctx, arg, timeToMillis(now)))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("match query failed: %w", err)
	}
	return p, nil
}

// RecordHit increments the hit count and sets the last-hit time in one
// statement.
func (s *SQLiteStore) RecordHit(ctx context.Context, id int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.recordHitStmt.ExecContext(ctx, timeToMillis(at), id); err != nil {
		return fmt.Errorf("failed to record hit for policy %d: %w", id, err)
	}
	return nil
}

// DeleteExpired purges policies whose expiry has passed.
func (s *SQLiteStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.deleteExpiredStmt.ExecContext(ctx, timeToMillis(now))
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired policies: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return int(deleted), nil
}

// CountPolicies returns the total number of stored policies.
func (s *SQLiteStore) CountPolicies(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	if err := s.countPoliciesStmt.QueryRowContext(ctx).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count policies: %w", err)
	}
	return n, nil
}

// RecordThreat appends a threat history row and returns its ID.
func (s *SQLiteStore) RecordThreat(ctx context.Context, rec *policy.ThreatRecord) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.insertThreatStmt.ExecContext(ctx,
		timeToMillis(rec.DetectedAt), rec.URL, rec.Filename, rec.FileHash,
		rec.MimeType, int64(rec.FileSize), rec.RuleName, rec.Severity,
		rec.ActionTaken, rec.PolicyID, rec.AlertJSON,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to record threat: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read inserted id: %w", err)
	}
	return id, nil
}

// ListThreats returns threat history, newest first, optionally bounded to
// records detected at or after since.
func (s *SQLiteStore) ListThreats(ctx context.Context, since time.Time) ([]*policy.ThreatRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rows *sql.Rows
	var err error
	if since.IsZero() {
		rows, err = s.listThreatsStmt.QueryContext(ctx)
	} else {
		rows, err = s.listThreatsSinceStmt.QueryContext(ctx, timeToMillis(since))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list threats: %w", err)
	}
	defer rows.Close()

	return scanThreats(rows)
}

// ListThreatsByRule returns threat history for one detection rule.
func (s *SQLiteStore) ListThreatsByRule(ctx context.Context, ruleName string) ([]*policy.ThreatRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.threatsByRuleStmt.QueryContext(ctx, ruleName)
	if err != nil {
		return nil, fmt.Errorf("failed to list threats by rule: %w", err)
	}
	defer rows.Close()

	return scanThreats(rows)
}

// PruneThreats removes threat history older than the cutoff.
func (s *SQLiteStore) PruneThreats(ctx context.Context, olderThan time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.pruneThreatsStmt.ExecContext(ctx, timeToMillis(olderThan))
	if err != nil {
		return 0, fmt.Errorf("failed to prune threats: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return int(deleted), nil
}

// CountThreats returns the total number of threat history rows.
func (s *SQLiteStore) CountThreats(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	if err := s.countThreatsStmt.QueryRowContext(ctx).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count threats: %w", err)
	}
	return n, nil
}

// Close releases database resources. Close is idempotent.
func (s *SQLiteStore) Close() error {
	var closeErr error

	s.closeOnce.Do(func() {
		for _, stmt := range []*sql.Stmt{
			s.insertStmt, s.getStmt, s.listStmt, s.updateStmt, s.deleteStmt,
			s.matchHashStmt, s.matchURLStmt, s.matchRuleStmt, s.recordHitStmt,
			s.deleteExpiredStmt, s.countPoliciesStmt, s.insertThreatStmt,
			s.listThreatsStmt, s.listThreatsSinceStmt, s.threatsByRuleStmt,
			s.pruneThreatsStmt, s.countThreatsStmt,
		} {
			if stmt != nil {
				stmt.Close()
			}
		}
		if s.db != nil {
			_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
			closeErr = s.db.Close()
		}
	})

	return closeErr
}

// rowScanner abstracts *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanPolicy(row rowScanner) (*policy.Policy, error) {
	var p policy.Policy
	var actionStr, matchTypeStr string
	var createdAt, expiresAt, lastHit int64

	err := row.Scan(&p.ID, &p.RuleName, &p.URLPattern, &p.FileHash, &p.MimeType,
		&actionStr, &matchTypeStr, &p.EnforcementAction, &createdAt, &p.CreatedBy,
		&expiresAt, &p.HitCount, &lastHit)
	if err != nil {
		return nil, err
	}

	p.Action, err = policy.ParseAction(actionStr)
	if err != nil {
		return nil, err
	}
	p.MatchType, err = policy.ParseMatchType(matchTypeStr)
	if err != nil {
		return nil, err
	}

	p.CreatedAt = millisToTime(createdAt)
	p.ExpiresAt = millisToTime(expiresAt)
	p.LastHit = millisToTime(lastHit)
	return &p, nil
}

func scanThreats(rows *sql.Rows) ([]*policy.ThreatRecord, error) {
	var recs []*policy.ThreatRecord
	for rows.Next() {
		var rec policy.ThreatRecord
		var detectedAt, fileSize int64
		if err := rows.Scan(&rec.ID, &detectedAt, &rec.URL, &rec.Filename, &rec.FileHash,
			&rec.MimeType, &fileSize, &rec.RuleName, &rec.Severity,
			&rec.ActionTaken, &rec.PolicyID, &rec.AlertJSON); err != nil {
			return nil, fmt.Errorf("failed to scan threat row: %w", err)
		}
		rec.DetectedAt = millisToTime(detectedAt)
		rec.FileSize = uint64(fileSize)
		recs = append(recs, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating threat rows: %w", err)
	}
	return recs, nil
}

// timeToMillis converts a time to epoch milliseconds, with the zero time
// stored as 0 (meaning "unset").
func timeToMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func millisToTime(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
