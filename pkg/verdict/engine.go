package verdict

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"sentinel-hq/sentinel/pkg/telemetry/metrics"
)

// Engine fuses detector scores into verdicts. Construct with NewEngine.
type Engine struct {
	weights Weights

	// mu guards thresholds (hot-reloadable) and the statistics
	// accumulator.
	mu         sync.Mutex
	thresholds Thresholds
	stats      Statistics

	logger  *slog.Logger
	metrics *metrics.VerdictMetrics
}

// EngineConfig configures an Engine. Zero values select the defaults.
type EngineConfig struct {
	// Weights are the composite weights (default 0.40/0.35/0.25).
	Weights Weights

	// Thresholds are the level boundaries (default 0.3/0.6/0.8).
	Thresholds Thresholds

	// Logger receives engine events (default slog.Default).
	Logger *slog.Logger

	// Metrics, when set, receives per-verdict observations.
	Metrics *metrics.VerdictMetrics
}

// NewEngine creates a scoring engine, validating any custom thresholds.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Weights == (Weights{}) {
		cfg.Weights = DefaultWeights()
	}
	if cfg.Thresholds == (Thresholds{}) {
		cfg.Thresholds = DefaultThresholds()
	}
	if err := cfg.Thresholds.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scoring thresholds: %w", err)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Engine{
		weights:    cfg.Weights,
		thresholds: cfg.Thresholds,
		logger:     cfg.Logger.With("component", "verdict.engine"),
		metrics:    cfg.Metrics,
	}, nil
}

// CalculateVerdict fuses the three detector scores into a Verdict. Inputs
// are clamped to [0,1] before use, so out-of-range values cannot panic or
// leak outside the valid range. Identical inputs always produce identical
// output.
func (e *Engine) CalculateVerdict(yaraScore, mlScore, behavioralScore float64) Verdict {
	yara := clamp01(yaraScore)
	ml := clamp01(mlScore)
	behavioral := clamp01(behavioralScore)

	composite := clamp01(e.weights.YARA*yara + e.weights.ML*ml + e.weights.Behavioral*behavioral)
	confidence := calculateConfidence(yara, ml, behavioral)

	e.mu.Lock()
	level := levelFor(composite, e.thresholds)
	e.recordLocked(composite, confidence, level)
	e.mu.Unlock()

	v := Verdict{
		CompositeScore:  composite,
		Confidence:      confidence,
		Level:           level,
		Explanation:     explain(level, composite, yara, ml, behavioral),
		YARAScore:       yara,
		MLScore:         ml,
		BehavioralScore: behavioral,
	}

	if e.metrics != nil {
		e.metrics.RecordVerdict(level.String(), composite, confidence)
	}

	e.logger.Debug("verdict calculated",
		"level", level.String(),
		"composite", composite,
		"confidence", confidence)

	return v
}

// UpdateThresholds swaps in a new boundary set, rejecting invalid ones.
// Used by configuration hot-reload.
func (e *Engine) UpdateThresholds(t Thresholds) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("invalid scoring thresholds: %w", err)
	}

	e.mu.Lock()
	e.thresholds = t
	e.mu.Unlock()

	e.logger.Info("scoring thresholds updated",
		"clean", t.Clean, "suspicious", t.Suspicious, "malicious", t.Malicious)
	return nil
}

// Thresholds returns the current boundary set.
func (e *Engine) Thresholds() Thresholds {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.thresholds
}

// Statistics returns a snapshot of accumulated scoring activity.
func (e *Engine) Statistics() Statistics {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// ResetStatistics zeroes the accumulator.
func (e *Engine) ResetStatistics() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stats = Statistics{}
}

// recordLocked updates the statistics accumulator. Caller holds e.mu.
func (e *Engine) recordLocked(composite, confidence float64, level ThreatLevel) {
	e.stats.TotalVerdicts++
	switch level {
	case LevelClean:
		e.stats.Clean++
	case LevelSuspicious:
		e.stats.Suspicious++
	case LevelMalicious:
		e.stats.Malicious++
	case LevelCritical:
		e.stats.Critical++
	}

	n := float64(e.stats.TotalVerdicts)
	e.stats.AverageComposite = (e.stats.AverageComposite*(n-1) + composite) / n
	e.stats.AverageConfidence = (e.stats.AverageConfidence*(n-1) + confidence) / n
}

// calculateConfidence measures inter-detector agreement: the spread
// between the highest and lowest clamped scores, inverted. Three identical
// inputs give exactly 1.0; a full-range disagreement gives 0.
func calculateConfidence(yara, ml, behavioral float64) float64 {
	hi := max(yara, max(ml, behavioral))
	lo := min(yara, min(ml, behavioral))
	return clamp01(1 - (hi - lo))
}

// levelFor maps a composite score to its tier. Boundaries are inclusive
// lower bounds: exactly 0.3 is suspicious under the defaults.
func levelFor(composite float64, t Thresholds) ThreatLevel {
	switch {
	case composite < t.Clean:
		return LevelClean
	case composite < t.Suspicious:
		return LevelSuspicious
	case composite < t.Malicious:
		return LevelMalicious
	default:
		return LevelCritical
	}
}

// explain builds the deterministic human-readable summary.
func explain(level ThreatLevel, composite, yara, ml, behavioral float64) string {
	var sb strings.Builder

	switch level {
	case LevelClean:
		sb.WriteString("File appears clean. ")
	case LevelSuspicious:
		sb.WriteString("File exhibits suspicious behavior. ")
	case LevelMalicious:
		sb.WriteString("File is likely malicious. ")
	case LevelCritical:
		sb.WriteString("CRITICAL threat detected. ")
	}

	fmt.Fprintf(&sb, "Overall threat score: %.0f%%. ", composite*100)

	// Name the dominant detection modality when one stands out.
	hi := max(yara, max(ml, behavioral))
	switch {
	case hi == yara && yara > 0.5:
		fmt.Fprintf(&sb, "Pattern matching detected malware signatures (%.0f%%). ", yara*100)
	case hi == ml && ml > 0.5:
		fmt.Fprintf(&sb, "Machine learning model flagged malicious features (%.0f%%). ", ml*100)
	case hi == behavioral && behavioral > 0.5:
		fmt.Fprintf(&sb, "Behavioral analysis detected suspicious runtime activity (%.0f%%). ", behavioral*100)
	}

	high := 0
	for _, s := range []float64{yara, ml, behavioral} {
		if s > 0.5 {
			high++
		}
	}
	if high >= 2 {
		sb.WriteString("Multiple detection methods agree. ")
	}

	return strings.TrimRight(sb.String(), " ")
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
