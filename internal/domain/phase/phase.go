// Package phase maps lifetime running distance and the composite score onto a
// macro training phase.
package phase

import (
	"math"

	"github.com/okian/readiness/internal/domain/model"
)

// Phase is one macro cycle. MaxKm is zero for the open-ended final phase.
type Phase struct {
	Number   int     `json:"number"`
	Name     string  `json:"name"`
	MinKm    float64 `json:"min_km"`
	MaxKm    float64 `json:"max_km,omitempty"`
	MinScore float64 `json:"min_score"`
}

// OpenEnded reports whether the phase has no upper distance bound.
func (p Phase) OpenEnded() bool { return p.MaxKm == 0 }

// Status is where an athlete sits in the phase table.
type Status struct {
	Phase       Phase   `json:"phase"`
	Eligible    bool    `json:"eligible"`
	ProgressPct float64 `json:"progress_pct"`
	KmToNext    float64 `json:"km_to_next"`
}

var phases = [...]Phase{
	{Number: 1, Name: "Base Building", MinKm: 0, MaxKm: 500, MinScore: 0},
	{Number: 2, Name: "Aerobic Development", MinKm: 500, MaxKm: 1000, MinScore: 40},
	{Number: 3, Name: "Strength Endurance", MinKm: 1000, MaxKm: 2000, MinScore: 55},
	{Number: 4, Name: "Threshold Development", MinKm: 2000, MaxKm: 3500, MinScore: 65},
	{Number: 5, Name: "Power & Speed", MinKm: 3500, MaxKm: 5000, MinScore: 75},
	{Number: 6, Name: "Performance Mastery", MinKm: 5000, MinScore: 85},
}

// All returns the phase table in order.
func All() []Phase {
	out := make([]Phase, len(phases))
	copy(out, phases[:])
	return out
}

// Track finds the phase whose [MinKm, MaxKm) range holds km. A NaN score is
// never eligible.
func Track(km, score float64) (Status, error) {
	if math.IsNaN(km) || math.IsInf(km, 0) || km < 0 {
		return Status{}, &model.ValidationError{Field: "cumulative_km", Rule: "must be a finite, non-negative distance"}
	}

	p := phases[len(phases)-1]
	for _, candidate := range phases {
		if !candidate.OpenEnded() && km < candidate.MaxKm {
			p = candidate
			break
		}
	}

	st := Status{Phase: p, Eligible: !math.IsNaN(score) && score >= p.MinScore}
	if p.OpenEnded() {
		st.ProgressPct = 100
		return st, nil
	}
	st.ProgressPct = (km - p.MinKm) / (p.MaxKm - p.MinKm) * 100
	st.KmToNext = p.MaxKm - km
	return st, nil
}
