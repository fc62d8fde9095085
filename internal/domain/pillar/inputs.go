// Package pillar converts raw assessment measurements into normalized 0-100
// pillar scores. Every calculator is a pure function of its input record.
package pillar

import (
	"math"

	"github.com/okian/readiness/internal/domain/model"
)

// RunningInput carries running history and recent race performance.
type RunningInput struct {
	RacePaceSecPerKm *float64 `json:"race_pace_sec_per_km,omitempty"` // recent 5k race pace
	WeeklyKm         *float64 `json:"weekly_km,omitempty"`
	ExperienceYears  *float64 `json:"experience_years,omitempty"`
	InjuriesLastYear *int     `json:"injuries_last_year,omitempty"`
	PainLevel        *float64 `json:"pain_level,omitempty"` // 0-10
}

// StrengthInput carries the muscular endurance screen.
type StrengthInput struct {
	SquatReps    *int     `json:"squat_reps,omitempty"`
	PlankSeconds *float64 `json:"plank_seconds,omitempty"`
}

// ROMInput carries the movement screen and joint range measurements.
type ROMInput struct {
	FMSTotal             *int     `json:"fms_total,omitempty"` // 0-21
	AnkleDorsiflexionDeg *float64 `json:"ankle_dorsiflexion_deg,omitempty"`
	HipFlexionDeg        *float64 `json:"hip_flexion_deg,omitempty"`
}

// BalanceInput carries single-leg stance times for both legs.
type BalanceInput struct {
	LeftLegSeconds  *float64 `json:"left_leg_seconds,omitempty"`
	RightLegSeconds *float64 `json:"right_leg_seconds,omitempty"`
}

// MobilityInput carries the mobility screen. Age is part of the record
// because the score carries an age penalty.
type MobilityInput struct {
	AnkleDorsiflexionDeg *float64 `json:"ankle_dorsiflexion_deg,omitempty"`
	SitAndReachCm        *float64 `json:"sit_and_reach_cm,omitempty"`
	DeepSquatScore       *int     `json:"deep_squat_score,omitempty"` // 0-3
	Age                  *int     `json:"age,omitempty"`
}

// PelvicTilt is the observed pelvic orientation.
type PelvicTilt string

const (
	PelvicNeutral   PelvicTilt = "neutral"
	PelvicAnterior  PelvicTilt = "anterior"
	PelvicPosterior PelvicTilt = "posterior"
)

// Severity grades forward-head posture.
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityMild     Severity = "mild"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
)

// ScoliosisScreen is the outcome of an Adams forward-bend screen.
type ScoliosisScreen string

const (
	ScoliosisNegative  ScoliosisScreen = "negative"
	ScoliosisSuspected ScoliosisScreen = "suspected"
	ScoliosisPositive  ScoliosisScreen = "positive"
)

// AlignmentInput carries the static posture assessment.
type AlignmentInput struct {
	QAngleDeg          *float64         `json:"q_angle_deg,omitempty"`
	Overpronation      *bool            `json:"overpronation,omitempty"`
	PelvicTilt         *PelvicTilt      `json:"pelvic_tilt,omitempty"`
	ForwardHead        *Severity        `json:"forward_head,omitempty"`
	ScoliosisScreening *ScoliosisScreen `json:"scoliosis_screening,omitempty"`
}

// Inputs bundles the six raw records for one assessment.
type Inputs struct {
	Running   RunningInput   `json:"running"`
	Strength  StrengthInput  `json:"strength"`
	ROM       ROMInput       `json:"rom"`
	Balance   BalanceInput   `json:"balance"`
	Alignment AlignmentInput `json:"alignment"`
	Mobility  MobilityInput  `json:"mobility"`
}

// float reads a required float field and checks its range.
func float(field string, v *float64, lo, hi float64) (float64, error) {
	if v == nil {
		return 0, model.Missing(field)
	}
	if math.IsNaN(*v) || math.IsInf(*v, 0) || *v < lo || *v > hi {
		return 0, model.OutOfRange(field, *v, lo, hi)
	}
	return *v, nil
}

// integer reads a required int field and checks its range.
func integer(field string, v *int, lo, hi int) (float64, error) {
	if v == nil {
		return 0, model.Missing(field)
	}
	if *v < lo || *v > hi {
		return 0, model.OutOfRange(field, float64(*v), float64(lo), float64(hi))
	}
	return float64(*v), nil
}

// rescale maps v from [lo,hi] onto [0,100], clamped.
func rescale(v, lo, hi float64) float64 {
	return model.Clamp((v - lo) / (hi - lo) * model.MaxScore)
}

// ratio returns min(v/ceiling, 1).
func ratio(v, ceiling float64) float64 {
	return math.Min(v/ceiling, 1)
}
