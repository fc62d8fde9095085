// Package gate evaluates the multi-criteria safety gates that guard the
// highest-intensity training zones. Gates fail closed: a criterion whose input
// is missing or not a finite number is reported as unmet, never as an error.
package gate

import (
	"fmt"
	"math"

	"github.com/okian/readiness/internal/domain/model"
)

// Name identifies a gate.
type Name string

const (
	Power Name = "power"
	Speed Name = "speed"
)

// Metric names used in requirement breakdowns.
const (
	MetricComposite       = "composite_score"
	MetricWeeksInjuryFree = "weeks_injury_free"
	MetricWeeksFoundation = "weeks_foundation_training"
	MetricWeeksPowerZone  = "weeks_power_zone_training"
	MetricPerfectForm     = "perfect_form"
	pillarMetricSuffix    = "_score"
)

// PillarMetric returns the requirement name for a pillar score.
func PillarMetric(p model.Pillar) string { return p.String() + pillarMetricSuffix }

// Requirement is one criterion of a gate. Current is nil when the input was
// not available.
type Requirement struct {
	Metric   string `json:"metric"`
	Required any    `json:"required"`
	Current  any    `json:"current"`
	Met      bool   `json:"met"`
}

// Result is the ordered breakdown of one gate.
type Result struct {
	Gate         Name          `json:"gate"`
	Requirements []Requirement `json:"requirements"`
	Passed       bool          `json:"passed"`
}

// Unmet returns the requirements that were not met, in order.
func (r Result) Unmet() []Requirement {
	var out []Requirement
	for _, req := range r.Requirements {
		if !req.Met {
			out = append(out, req)
		}
	}
	return out
}

func newResult(name Name, reqs []Requirement) Result {
	passed := len(reqs) > 0
	for _, r := range reqs {
		passed = passed && r.Met
	}
	return Result{Gate: name, Requirements: reqs, Passed: passed}
}

// PowerThresholds configures the power gate.
type PowerThresholds struct {
	MinComposite       float64 `json:"min_composite" koanf:"min_composite"`
	MinROM             float64 `json:"min_rom" koanf:"min_rom"`
	MinWeeksInjuryFree int     `json:"min_weeks_injury_free" koanf:"min_weeks_injury_free"`
	MinWeeksFoundation int     `json:"min_weeks_foundation_training" koanf:"min_weeks_foundation_training"`
}

// SpeedThresholds configures the speed gate.
type SpeedThresholds struct {
	MinComposite       float64 `json:"min_composite" koanf:"min_composite"`
	MinRunning         float64 `json:"min_running" koanf:"min_running"`
	MinOtherPillars    float64 `json:"min_other_pillars" koanf:"min_other_pillars"`
	RequirePerfectForm bool    `json:"require_perfect_form" koanf:"require_perfect_form"`
	MinWeeksPowerZone  int     `json:"min_weeks_power_zone_training" koanf:"min_weeks_power_zone_training"`
}

// Thresholds holds both gate configurations.
type Thresholds struct {
	Power PowerThresholds `json:"power" koanf:"power"`
	Speed SpeedThresholds `json:"speed" koanf:"speed"`
}

// DefaultThresholds returns the standard gate criteria.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Power: PowerThresholds{
			MinComposite:       70,
			MinROM:             75,
			MinWeeksInjuryFree: 8,
			MinWeeksFoundation: 6,
		},
		Speed: SpeedThresholds{
			MinComposite:       85,
			MinRunning:         80,
			MinOtherPillars:    75,
			RequirePerfectForm: true,
			MinWeeksPowerZone:  12,
		},
	}
}

// Validate rejects score thresholds outside [0,100] and negative week counts.
func (t Thresholds) Validate() error {
	scores := []struct {
		name string
		v    float64
	}{
		{"power.min_composite", t.Power.MinComposite},
		{"power.min_rom", t.Power.MinROM},
		{"speed.min_composite", t.Speed.MinComposite},
		{"speed.min_running", t.Speed.MinRunning},
		{"speed.min_other_pillars", t.Speed.MinOtherPillars},
	}
	for _, s := range scores {
		if math.IsNaN(s.v) || s.v < model.MinScore || s.v > model.MaxScore {
			return &model.ConfigurationError{Rule: fmt.Sprintf("gate %s must be within [0, 100], got %g", s.name, s.v)}
		}
	}
	weeks := []struct {
		name string
		v    int
	}{
		{"power.min_weeks_injury_free", t.Power.MinWeeksInjuryFree},
		{"power.min_weeks_foundation_training", t.Power.MinWeeksFoundation},
		{"speed.min_weeks_power_zone_training", t.Speed.MinWeeksPowerZone},
	}
	for _, w := range weeks {
		if w.v < 0 {
			return &model.ConfigurationError{Rule: fmt.Sprintf("gate %s must not be negative, got %d", w.name, w.v)}
		}
	}
	return nil
}
