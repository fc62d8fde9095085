package model

// AthleteSnapshot is the athlete context supplied by the persistence layer.
// Pointer fields are nil when the collaborator has no value; the engine never
// substitutes a default for them.
type AthleteSnapshot struct {
	AthleteID               string   `json:"athlete_id"`
	Age                     *int     `json:"age,omitempty"`
	RestingHR               *int     `json:"resting_hr,omitempty"`
	CumulativeKm            *float64 `json:"cumulative_km,omitempty"`
	WeeksInjuryFree         *int     `json:"weeks_injury_free,omitempty"`
	WeeksFoundationTraining *int     `json:"weeks_foundation_training,omitempty"`
	WeeksPowerZoneTraining  *int     `json:"weeks_power_zone_training,omitempty"`
	PerfectForm             *bool    `json:"perfect_form,omitempty"`
}

// Ptr returns a pointer to v. Handy when building snapshots and raw inputs.
func Ptr[T any](v T) *T { return &v }
