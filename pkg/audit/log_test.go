package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestLog(t *testing.T, maxSize int64) (*Log, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	log, err := New(Config{Path: path, MaxSizeBytes: maxSize})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { log.Close() })
	return log, path
}

func readEvents(t *testing.T, path string) []Event {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var ev Event
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			t.Fatalf("bad JSONL line %q: %v", scanner.Text(), err)
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	return events
}

func TestRecordAppendsJSONLines(t *testing.T) {
	log, path := newTestLog(t, 0)

	events := []Event{
		{Type: EventPolicyCreated, PolicyID: 1, Actor: "enterprise_admin"},
		{Type: EventThreatBlocked, RuleName: "eicar-test", Action: "block"},
		{Type: EventVerdictIssued, Detail: "level=malicious"},
	}
	for _, ev := range events {
		if err := log.Record(ev); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}
	if err := log.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	got := readEvents(t, path)
	if len(got) != 3 {
		t.Fatalf("events = %d, want 3", len(got))
	}
	if got[0].Type != EventPolicyCreated || got[0].PolicyID != 1 {
		t.Errorf("first event = %+v", got[0])
	}
	if got[1].RuleName != "eicar-test" || got[1].Action != "block" {
		t.Errorf("second event = %+v", got[1])
	}
}

func TestRecordFillsIDAndTimestamp(t *testing.T) {
	log, path := newTestLog(t, 0)

	fixed := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	log.now = func() time.Time { return fixed }

	if err := log.Record(Event{Type: EventSweepCompleted}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	log.Close()

	got := readEvents(t, path)
	if got[0].ID == "" {
		t.Error("event ID not generated")
	}
	if !got[0].Timestamp.Equal(fixed) {
		t.Errorf("Timestamp = %v, want %v", got[0].Timestamp, fixed)
	}

	// Two events never share an ID.
	log2, path2 := newTestLog(t, 0)
	log2.Record(Event{Type: EventSweepCompleted})
	log2.Record(Event{Type: EventSweepCompleted})
	log2.Close()
	events := readEvents(t, path2)
	if events[0].ID == events[1].ID {
		t.Errorf("duplicate event IDs: %s", events[0].ID)
	}
}

func TestRecordRejectsUntypedEvent(t *testing.T) {
	log, _ := newTestLog(t, 0)
	if err := log.Record(Event{}); err == nil {
		t.Error("Record accepted an event without a type")
	}
}

func TestRotation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "audit.jsonl")
	log, err := New(Config{Path: path, MaxSizeBytes: 300})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer log.Close()

	for i := 0; i < 10; i++ {
		if err := log.Record(Event{Type: EventVerdictIssued, Detail: strings.Repeat("x", 80)}); err != nil {
			t.Fatalf("Record %d failed: %v", i, err)
		}
	}
	log.Close()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	rotated := 0
	total := 0
	for _, entry := range entries {
		full := filepath.Join(dir, entry.Name())
		total += len(readEvents(t, full))
		if entry.Name() != "audit.jsonl" {
			rotated++
			info, err := entry.Info()
			if err != nil {
				t.Fatalf("Info failed: %v", err)
			}
			if info.Size() > 300+200 {
				t.Errorf("rotated file %s is %d bytes", entry.Name(), info.Size())
			}
		}
	}
	if rotated == 0 {
		t.Error("no rotated files created")
	}
	// Rotation never loses events.
	if total != 10 {
		t.Errorf("total events across files = %d, want 10", total)
	}
}

func TestRecordAfterCloseFails(t *testing.T) {
	log, _ := newTestLog(t, 0)
	if err := log.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := log.Record(Event{Type: EventPolicyDeleted}); err == nil {
		t.Error("Record succeeded on a closed log")
	}
}

func TestNewAppendsToExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "audit.jsonl")

	log1, err := New(Config{Path: path})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	log1.Record(Event{Type: EventPolicyCreated, PolicyID: 1})
	log1.Close()

	log2, err := New(Config{Path: path})
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	log2.Record(Event{Type: EventPolicyDeleted, PolicyID: 1})
	log2.Close()

	events := readEvents(t, path)
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	if events[0].Type != EventPolicyCreated || events[1].Type != EventPolicyDeleted {
		t.Errorf("events = %+v", events)
	}
}
