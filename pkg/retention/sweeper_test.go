package retention

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeCleaner struct {
	expiredPolicies int
	oldThreats      int
	policyErr       error
	threatErr       error

	keepSeen time.Duration
}

func (f *fakeCleaner) CleanupExpiredPolicies(_ context.Context) (int, error) {
	return f.expiredPolicies, f.policyErr
}

func (f *fakeCleaner) CleanupOldThreats(_ context.Context, keep time.Duration) (int, error) {
	f.keepSeen = keep
	return f.oldThreats, f.threatErr
}

type fakePurger struct {
	purged int
	err    error
	calls  int
}

func (f *fakePurger) PurgeExpired(_ context.Context) (int, error) {
	f.calls++
	return f.purged, f.err
}

func TestSweepCountsEverything(t *testing.T) {
	cleaner := &fakeCleaner{expiredPolicies: 3, oldThreats: 7}
	purger := &fakePurger{purged: 2}
	sweeper, err := NewSweeper(SweeperConfig{
		Graph:             cleaner,
		Verdicts:          purger,
		ThreatHistoryDays: 30,
	})
	if err != nil {
		t.Fatalf("NewSweeper failed: %v", err)
	}

	result, err := sweeper.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if result.ExpiredPolicies != 3 || result.OldThreats != 7 || result.ExpiredVerdicts != 2 {
		t.Errorf("result = %+v", result)
	}
	if result.Total() != 12 {
		t.Errorf("Total = %d, want 12", result.Total())
	}
	if cleaner.keepSeen != 30*24*time.Hour {
		t.Errorf("keep = %v, want 720h", cleaner.keepSeen)
	}
}

func TestSweepSkipsDisabledParts(t *testing.T) {
	cleaner := &fakeCleaner{expiredPolicies: 1, oldThreats: 5}
	sweeper, err := NewSweeper(SweeperConfig{Graph: cleaner})
	if err != nil {
		t.Fatalf("NewSweeper failed: %v", err)
	}

	result, err := sweeper.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	// ThreatHistoryDays is 0 and no verdict purger is wired.
	if result.OldThreats != 0 || result.ExpiredVerdicts != 0 {
		t.Errorf("disabled sweeps ran: %+v", result)
	}
	if cleaner.keepSeen != 0 {
		t.Errorf("threat sweep ran with keep = %v", cleaner.keepSeen)
	}
}

func TestSweepContinuesAfterFailure(t *testing.T) {
	cleaner := &fakeCleaner{policyErr: errors.New("database is locked"), oldThreats: 4}
	purger := &fakePurger{purged: 1}
	sweeper, err := NewSweeper(SweeperConfig{
		Graph:             cleaner,
		Verdicts:          purger,
		ThreatHistoryDays: 7,
	})
	if err != nil {
		t.Fatalf("NewSweeper failed: %v", err)
	}

	result, err := sweeper.Sweep(context.Background())
	if err == nil {
		t.Fatal("Sweep should report the policy sweep failure")
	}
	// The later sweeps still ran.
	if result.OldThreats != 4 || result.ExpiredVerdicts != 1 {
		t.Errorf("later sweeps skipped after failure: %+v", result)
	}
	if purger.calls != 1 {
		t.Errorf("purger calls = %d, want 1", purger.calls)
	}
}

func TestNewSweeperRequiresGraph(t *testing.T) {
	if _, err := NewSweeper(SweeperConfig{}); err == nil {
		t.Error("NewSweeper accepted a nil graph")
	}
}

func TestSchedulerEmptyScheduleIsNoop(t *testing.T) {
	cleaner := &fakeCleaner{}
	sweeper, err := NewSweeper(SweeperConfig{Graph: cleaner})
	if err != nil {
		t.Fatalf("NewSweeper failed: %v", err)
	}

	scheduler := NewScheduler(sweeper, "")
	if err := scheduler.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if scheduler.IsRunning() {
		t.Error("scheduler running with empty schedule")
	}
	if scheduler.NextRun() != nil {
		t.Error("NextRun should be nil with empty schedule")
	}
}

func TestSchedulerRejectsInvalidSchedule(t *testing.T) {
	sweeper, err := NewSweeper(SweeperConfig{Graph: &fakeCleaner{}})
	if err != nil {
		t.Fatalf("NewSweeper failed: %v", err)
	}

	scheduler := NewScheduler(sweeper, "not a cron expression")
	if err := scheduler.Start(context.Background()); err == nil {
		t.Error("Start accepted an invalid schedule")
	}
}

func TestSchedulerStartStop(t *testing.T) {
	sweeper, err := NewSweeper(SweeperConfig{Graph: &fakeCleaner{}})
	if err != nil {
		t.Fatalf("NewSweeper failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scheduler := NewScheduler(sweeper, "0 3 * * *")
	if err := scheduler.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !scheduler.IsRunning() {
		t.Error("scheduler not running after Start")
	}
	if scheduler.NextRun() == nil {
		t.Error("NextRun is nil for a running scheduler")
	}

	scheduler.Stop()
	if scheduler.IsRunning() {
		t.Error("scheduler still running after Stop")
	}
}
