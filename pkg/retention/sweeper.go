package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// PolicyCleaner is the slice of the policy graph the sweeper needs.
type PolicyCleaner interface {
	CleanupExpiredPolicies(ctx context.Context) (int, error)
	CleanupOldThreats(ctx context.Context, keep time.Duration) (int, error)
}

// VerdictPurger is the slice of the verdict cache the sweeper needs.
type VerdictPurger interface {
	PurgeExpired(ctx context.Context) (int, error)
}

// SweeperConfig configures a Sweeper.
type SweeperConfig struct {
	// Graph removes expired policies and old threat history. Required.
	Graph PolicyCleaner

	// Verdicts removes expired cached verdicts. Optional.
	Verdicts VerdictPurger

	// ThreatHistoryDays is how long threat history rows are kept.
	// 0 disables the threat history sweep.
	ThreatHistoryDays int

	// Logger receives sweep results (default slog.Default).
	Logger *slog.Logger
}

// SweepResult counts what one maintenance pass removed.
type SweepResult struct {
	ExpiredPolicies int
	OldThreats      int
	ExpiredVerdicts int
}

// Total returns the total number of rows removed.
func (r SweepResult) Total() int {
	return r.ExpiredPolicies + r.OldThreats + r.ExpiredVerdicts
}

// Sweeper removes aged-out data from the policy and verdict stores.
type Sweeper struct {
	graph             PolicyCleaner
	verdicts          VerdictPurger
	threatHistoryDays int
	logger            *slog.Logger
}

// NewSweeper creates a maintenance sweeper.
func NewSweeper(cfg SweeperConfig) (*Sweeper, error) {
	if cfg.Graph == nil {
		return nil, fmt.Errorf("sweeper requires a policy graph")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Sweeper{
		graph:             cfg.Graph,
		verdicts:          cfg.Verdicts,
		threatHistoryDays: cfg.ThreatHistoryDays,
		logger:            cfg.Logger.With("component", "retention.sweeper"),
	}, nil
}

// Sweep runs one maintenance pass. Each sweep runs even if an earlier one
// failed, so a locked verdict database does not stop policy cleanup; the
// first error is returned alongside the partial result.
func (s *Sweeper) Sweep(ctx context.Context) (SweepResult, error) {
	var result SweepResult
	var firstErr error

	n, err := s.graph.CleanupExpiredPolicies(ctx)
	if err != nil {
		firstErr = fmt.Errorf("expired policy sweep failed: %w", err)
		s.logger.Error("expired policy sweep failed", "error", err)
	} else {
		result.ExpiredPolicies = n
	}

	if s.threatHistoryDays > 0 {
		keep := time.Duration(s.threatHistoryDays) * 24 * time.Hour
		n, err := s.graph.CleanupOldThreats(ctx, keep)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("threat history sweep failed: %w", err)
			}
			s.logger.Error("threat history sweep failed", "error", err)
		} else {
			result.OldThreats = n
		}
	}

	if s.verdicts != nil {
		n, err := s.verdicts.PurgeExpired(ctx)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("verdict sweep failed: %w", err)
			}
			s.logger.Error("verdict sweep failed", "error", err)
		} else {
			result.ExpiredVerdicts = n
		}
	}

	if result.Total() > 0 {
		s.logger.Info("maintenance sweep completed",
			"expired_policies", result.ExpiredPolicies,
			"old_threats", result.OldThreats,
			"expired_verdicts", result.ExpiredVerdicts,
		)
	} else {
		s.logger.Debug("maintenance sweep completed, nothing removed")
	}

	return result, firstErr
}
