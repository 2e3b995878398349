package safety

import (
	"fmt"
	"math"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/wireless-wizards/saferoute/internal/config"
)

// Default scores returned when a bucket has no observed data. Night defaults
// lower: night incident data is sparser and night conditions are riskier.
const (
	DefaultDayScore     = 75.0
	DefaultNightScore   = 60.0
	DefaultOverallScore = (DefaultDayScore + DefaultNightScore) / 2 // 67.5, not independently tunable
)

// DefaultFor returns the fallback score for a bucket with no data.
func DefaultFor(bucket TimeBucket) float64 {
	switch bucket {
	case BucketDay:
		return DefaultDayScore
	case BucketNight:
		return DefaultNightScore
	default:
		return DefaultOverallScore
	}
}

// Engine converts per-cell aggregates into bounded safety scores.
type Engine struct {
	cfg config.ScoringConfig
}

// NewEngine builds an Engine after validating the scoring config.
func NewEngine(cfg config.ScoringConfig) (*Engine, error) {
	if err := ValidateScoringConfig(cfg); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg}, nil
}

// Score maps incident statistics to a safety score in [0, 100], 100 safest.
// Frequency dominates, typical severity is next, worst-case severity least.
// Each term saturates: count caps at CountSaturation incidents and severity
// is assumed on a 0-SeverityScale scale, so a single extreme incident cannot
// zero a cell on its own.
func (e *Engine) Score(count int, avgSeverity, maxSeverity float64) float64 {
	incidentWeight := math.Min(float64(count)/e.cfg.CountSaturation, 1.0)
	severityWeight := avgSeverity / e.cfg.SeverityScale
	maxSeverityPenalty := maxSeverity / e.cfg.SeverityScale

	raw := 100 - (incidentWeight*e.cfg.IncidentWeight +
		severityWeight*e.cfg.SeverityWeight +
		maxSeverityPenalty*e.cfg.MaxSeverityWeight)

	return clamp(raw, 0, 100)
}

// Overall combines day and night scores as their unweighted arithmetic mean,
// regardless of how many incidents back each side. That matches how the grid
// has always behaved; count-weighted averaging would change every published
// score.
func (e *Engine) Overall(dayScore, nightScore float64) float64 {
	return (dayScore + nightScore) / 2
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// ValidateScoringConfig checks that a ScoringConfig is internally consistent.
func ValidateScoringConfig(c config.ScoringConfig) error {
	var errs []string

	weights := map[string]float64{
		"incident_weight":     c.IncidentWeight,
		"severity_weight":     c.SeverityWeight,
		"max_severity_weight": c.MaxSeverityWeight,
	}
	for name, w := range weights {
		if w < 0 {
			errs = append(errs, fmt.Sprintf("%s must be >= 0", name))
		}
	}

	sum := c.IncidentWeight + c.SeverityWeight + c.MaxSeverityWeight
	if math.Abs(sum-100) > 1 {
		errs = append(errs, fmt.Sprintf("weights should sum to 100, got %.1f", sum))
	}

	if c.CountSaturation <= 0 {
		errs = append(errs, "count_saturation must be > 0")
	}
	if c.SeverityScale <= 0 {
		errs = append(errs, "severity_scale must be > 0")
	}

	if len(errs) > 0 {
		return eris.Errorf("safety: invalid scoring config: %s", strings.Join(errs, "; "))
	}
	return nil
}
