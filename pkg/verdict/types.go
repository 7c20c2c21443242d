package verdict

import "fmt"

// ThreatLevel is the discrete severity tier of a verdict. Levels are
// ordered: Clean < Suspicious < Malicious < Critical, and compare directly
// with <, >, etc.
type ThreatLevel int

const (
	// LevelClean indicates no meaningful threat signal.
	LevelClean ThreatLevel = iota

	// LevelSuspicious indicates weak or conflicting threat signals.
	LevelSuspicious

	// LevelMalicious indicates strong threat signals.
	LevelMalicious

	// LevelCritical indicates overwhelming threat signals.
	LevelCritical
)

// String returns the stable wire/database representation of the level.
func (l ThreatLevel) String() string {
	switch l {
	case LevelClean:
		return "clean"
	case LevelSuspicious:
		return "suspicious"
	case LevelMalicious:
		return "malicious"
	case LevelCritical:
		return "critical"
	default:
		return fmt.Sprintf("threat_level(%d)", int(l))
	}
}

// ParseThreatLevel converts a stored level string back to a ThreatLevel.
func ParseThreatLevel(s string) (ThreatLevel, error) {
	switch s {
	case "clean":
		return LevelClean, nil
	case "suspicious":
		return LevelSuspicious, nil
	case "malicious":
		return LevelMalicious, nil
	case "critical":
		return LevelCritical, nil
	default:
		return LevelClean, fmt.Errorf("unknown threat level %q", s)
	}
}

// Verdict is the result of fusing the three detector scores for one file.
// It is ephemeral; persistence happens only through the verdict store.
type Verdict struct {
	// CompositeScore is the weighted combination of the detector scores,
	// in [0,1].
	CompositeScore float64

	// Confidence measures inter-detector agreement, in [0,1].
	Confidence float64

	// Level is the discrete severity derived from CompositeScore.
	Level ThreatLevel

	// Explanation is a deterministic human-readable summary. It always
	// contains the level keyword ("clean", "suspicious", "malicious", or
	// "CRITICAL") so report tooling can grep for severity.
	Explanation string

	// Component scores after clamping, kept for transparency.
	YARAScore       float64
	MLScore         float64
	BehavioralScore float64
}

// Weights are the per-detector composite weights. They should sum to 1.
type Weights struct {
	YARA       float64
	ML         float64
	Behavioral float64
}

// DefaultWeights returns the standard detector weighting.
func DefaultWeights() Weights {
	return Weights{YARA: 0.40, ML: 0.35, Behavioral: 0.25}
}

// Thresholds are the ordered threat-level boundaries over the composite
// score. A composite below Clean is clean, below Suspicious is suspicious,
// below Malicious is malicious, anything else critical. Boundaries are
// inclusive lower bounds of the tier above.
type Thresholds struct {
	Clean      float64
	Suspicious float64
	Malicious  float64
}

// DefaultThresholds returns the standard level boundaries.
func DefaultThresholds() Thresholds {
	return Thresholds{Clean: 0.3, Suspicious: 0.6, Malicious: 0.8}
}

// Validate checks boundary range and strict ordering.
func (t Thresholds) Validate() error {
	for _, v := range []float64{t.Clean, t.Suspicious, t.Malicious} {
		if v < 0 || v > 1 {
			return fmt.Errorf("threshold %g outside [0,1]", v)
		}
	}
	if !(t.Clean < t.Suspicious && t.Suspicious < t.Malicious) {
		return fmt.Errorf("thresholds must be strictly ordered, got %g/%g/%g",
			t.Clean, t.Suspicious, t.Malicious)
	}
	return nil
}

// Statistics accumulates scoring activity since engine creation or the
// last reset.
type Statistics struct {
	TotalVerdicts uint64
	Clean         uint64
	Suspicious    uint64
	Malicious     uint64
	Critical      uint64

	// AverageComposite and AverageConfidence are running means over all
	// verdicts counted in TotalVerdicts.
	AverageComposite  float64
	AverageConfidence float64
}
