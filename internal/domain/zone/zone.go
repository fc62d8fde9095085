// Package zone holds the static training-zone table and decides which zones
// an athlete may use for a given risk category and gate outcome.
package zone

import (
	"fmt"

	"github.com/okian/readiness/internal/domain/gate"
	"github.com/okian/readiness/internal/domain/model"
)

// Code is the short identifier of a training zone.
type Code string

const (
	ActiveRecovery Code = "AR"
	Foundation     Code = "F"
	Endurance      Code = "EN"
	Threshold      Code = "TH"
	Power          Code = "P"
	Speed          Code = "SP"
)

// PercentRange is a heart-rate band as a percentage of max HR.
type PercentRange struct {
	Lo float64 `json:"lo"`
	Hi float64 `json:"hi"`
}

// Zone describes one training-intensity band. A zone opens from the
// UnlockedBy category upward; MinScoreToUnlock is that category's lower bound
// in the classifier the catalogue was built from.
type Zone struct {
	Code               Code               `json:"code"`
	Name               string             `json:"name"`
	HRPercent          PercentRange       `json:"hr_percent"`
	UnlockedBy         model.RiskCategory `json:"unlocked_by"`
	MinScoreToUnlock   float64            `json:"min_score_to_unlock"`
	RequiresSafetyGate bool               `json:"requires_safety_gate"`
	SafetyGate         gate.Name          `json:"safety_gate,omitempty"`
}

var table = [...]Zone{
	{Code: ActiveRecovery, Name: "Active Recovery", HRPercent: PercentRange{50, 60}, UnlockedBy: model.Critical},
	{Code: Foundation, Name: "Foundation", HRPercent: PercentRange{60, 70}, UnlockedBy: model.Critical},
	{Code: Endurance, Name: "Endurance", HRPercent: PercentRange{70, 80}, UnlockedBy: model.High},
	{Code: Threshold, Name: "Threshold", HRPercent: PercentRange{80, 88}, UnlockedBy: model.Medium},
	{Code: Power, Name: "Power", HRPercent: PercentRange{88, 95}, UnlockedBy: model.Low, RequiresSafetyGate: true, SafetyGate: gate.Power},
	{Code: Speed, Name: "Speed", HRPercent: PercentRange{95, 100}, UnlockedBy: model.VeryLow, RequiresSafetyGate: true, SafetyGate: gate.Speed},
}

// Catalogue returns the zone table in intensity order with MinScoreToUnlock
// taken from lowerBound, normally a classifier's LowerBound.
func Catalogue(lowerBound func(model.RiskCategory) float64) []Zone {
	out := make([]Zone, len(table))
	copy(out, table[:])
	for i := range out {
		out[i].MinScoreToUnlock = lowerBound(out[i].UnlockedBy)
	}
	return out
}

// Lookup finds a zone by code.
func Lookup(code Code) (Zone, bool) {
	for _, z := range table {
		if z.Code == code {
			return z, true
		}
	}
	return Zone{}, false
}

// Allowed returns the zones open to an athlete, in intensity order. A zone
// that requires a safety gate stays closed unless a passing result for that
// gate is supplied, whatever the category. Unknown categories count as
// Critical.
func Allowed(cat model.RiskCategory, gates ...gate.Result) []Code {
	if cat < model.Critical || cat > model.VeryLow {
		cat = model.Critical
	}
	passed := make(map[gate.Name]bool, len(gates))
	for _, g := range gates {
		passed[g.Gate] = g.Passed
	}

	out := make([]Code, 0, len(table))
	for _, z := range table {
		if z.UnlockedBy > cat {
			continue
		}
		if z.RequiresSafetyGate && !passed[z.SafetyGate] {
			continue
		}
		out = append(out, z.Code)
	}
	return out
}

// String implements fmt.Stringer.
func (z Zone) String() string {
	return fmt.Sprintf("%s (%s, %g-%g%% max HR)", z.Name, z.Code, z.HRPercent.Lo, z.HRPercent.Hi)
}
