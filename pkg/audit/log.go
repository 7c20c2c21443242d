package audit

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType classifies an audit event.
type EventType string

const (
	// EventPolicyCreated records a new policy being inserted.
	EventPolicyCreated EventType = "policy_created"

	// EventPolicyUpdated records an existing policy being modified.
	EventPolicyUpdated EventType = "policy_updated"

	// EventPolicyDeleted records a policy being removed.
	EventPolicyDeleted EventType = "policy_deleted"

	// EventThreatBlocked records an enforcement action against a download.
	EventThreatBlocked EventType = "threat_blocked"

	// EventVerdictIssued records a scoring verdict being produced.
	EventVerdictIssued EventType = "verdict_issued"

	// EventSweepCompleted records a retention sweep finishing.
	EventSweepCompleted EventType = "sweep_completed"
)

// Event is one audit log entry. ID and Timestamp are filled by Record when
// left zero.
type Event struct {
	// ID is a unique event identifier.
	ID string `json:"id"`

	// Timestamp is when the event was recorded.
	Timestamp time.Time `json:"timestamp"`

	// Type classifies the event.
	Type EventType `json:"type"`

	// Actor is who caused the event ("user", "enterprise_admin", a
	// component name).
	Actor string `json:"actor,omitempty"`

	// PolicyID is the affected policy, if any.
	PolicyID int64 `json:"policy_id,omitempty"`

	// RuleName is the affected rule, if any.
	RuleName string `json:"rule_name,omitempty"`

	// Action is the enforcement action taken, if any.
	Action string `json:"action,omitempty"`

	// Detail carries free-form context.
	Detail string `json:"detail,omitempty"`
}

// Config contains configuration for the audit log.
type Config struct {
	// Path is the JSONL log file. Required.
	Path string

	// MaxSizeBytes rotates the file when it grows past this size.
	// 0 disables rotation.
	MaxSizeBytes int64

	// Logger receives operational events (default slog.Default).
	Logger *slog.Logger
}

// Log is an append-only JSONL audit log. Safe for concurrent use.
type Log struct {
	mu      sync.Mutex
	file    *os.File
	size    int64
	path    string
	maxSize int64
	logger  *slog.Logger
	closed  bool

	// now is stubbed in tests.
	now func() time.Time
}

// New opens (or creates) the audit log at cfg.Path.
func New(cfg Config) (*Log, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("audit log requires a path")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	file, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat audit log: %w", err)
	}

	return &Log{
		file:    file,
		size:    info.Size(),
		path:    cfg.Path,
		maxSize: cfg.MaxSizeBytes,
		logger:  cfg.Logger.With("component", "audit"),
		now:     time.Now,
	}, nil
}

// Record appends one event to the log. A zero ID gets a fresh UUID and a
// zero Timestamp gets the current time.
func (l *Log) Record(event Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = l.now()
	}
	if event.Type == "" {
		return fmt.Errorf("audit event requires a type")
	}

	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode audit event: %w", err)
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return fmt.Errorf("audit log is closed")
	}

	if l.maxSize > 0 && l.size+int64(len(line)) > l.maxSize && l.size > 0 {
		if err := l.rotateLocked(); err != nil {
			return err
		}
	}

	n, err := l.file.Write(line)
	l.size += int64(n)
	if err != nil {
		return fmt.Errorf("failed to append audit event: %w", err)
	}
	return nil
}

// rotateLocked moves the current file aside and starts a fresh one.
// Caller holds l.mu.
func (l *Log) rotateLocked() error {
	if err := l.file.Close(); err != nil {
		return fmt.Errorf("failed to close audit log for rotation: %w", err)
	}

	rotated := fmt.Sprintf("%s.%s", l.path, l.now().UTC().Format("20060102-150405.000000000"))
	if err := os.Rename(l.path, rotated); err != nil {
		return fmt.Errorf("failed to rotate audit log: %w", err)
	}

	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("failed to open fresh audit log: %w", err)
	}

	l.file = file
	l.size = 0
	l.logger.Info("audit log rotated", "rotated_to", rotated)
	return nil
}

// Close flushes and closes the log file. Further Record calls fail.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true

	if err := l.file.Sync(); err != nil {
		l.file.Close()
		return fmt.Errorf("failed to sync audit log: %w", err)
	}
	if err := l.file.Close(); err != nil {
		return fmt.Errorf("failed to close audit log: %w", err)
	}
	return nil
}
