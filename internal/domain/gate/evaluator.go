package gate

import (
	"math"

	"github.com/okian/readiness/internal/domain/model"
)

// Evaluator checks both gates against configured thresholds.
type Evaluator struct {
	t Thresholds
}

// NewEvaluator validates thresholds once at construction.
func NewEvaluator(t Thresholds) (*Evaluator, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &Evaluator{t: t}, nil
}

// EvaluatePower checks composite, ROM, injury-free weeks and foundation weeks.
func (e *Evaluator) EvaluatePower(composite float64, s model.PillarScores, snap model.AthleteSnapshot) Result {
	t := e.t.Power
	return newResult(Power, []Requirement{
		scoreAtLeast(MetricComposite, t.MinComposite, composite),
		scoreAtLeast(PillarMetric(model.ROM), t.MinROM, s.ROM),
		weeksAtLeast(MetricWeeksInjuryFree, t.MinWeeksInjuryFree, snap.WeeksInjuryFree),
		weeksAtLeast(MetricWeeksFoundation, t.MinWeeksFoundation, snap.WeeksFoundationTraining),
	})
}

// EvaluateSpeed checks composite, running, every other pillar, form and
// weeks of power-zone training. Each other pillar is its own requirement so
// callers can show exactly which one is short.
func (e *Evaluator) EvaluateSpeed(composite float64, s model.PillarScores, snap model.AthleteSnapshot) Result {
	t := e.t.Speed
	reqs := []Requirement{
		scoreAtLeast(MetricComposite, t.MinComposite, composite),
		scoreAtLeast(PillarMetric(model.Running), t.MinRunning, s.Running),
	}
	for _, p := range model.AllPillars() {
		if p == model.Running {
			continue
		}
		reqs = append(reqs, scoreAtLeast(PillarMetric(p), t.MinOtherPillars, s.Get(p)))
	}
	if t.RequirePerfectForm {
		reqs = append(reqs, flagSet(MetricPerfectForm, snap.PerfectForm))
	}
	reqs = append(reqs, weeksAtLeast(MetricWeeksPowerZone, t.MinWeeksPowerZone, snap.WeeksPowerZoneTraining))
	return newResult(Speed, reqs)
}

func scoreAtLeast(metric string, required, current float64) Requirement {
	r := Requirement{Metric: metric, Required: required}
	if math.IsNaN(current) || math.IsInf(current, 0) {
		return r
	}
	r.Current = current
	r.Met = current >= required
	return r
}

func weeksAtLeast(metric string, required int, current *int) Requirement {
	r := Requirement{Metric: metric, Required: required}
	if current == nil {
		return r
	}
	r.Current = *current
	r.Met = *current >= required
	return r
}

func flagSet(metric string, current *bool) Requirement {
	r := Requirement{Metric: metric, Required: true}
	if current == nil {
		return r
	}
	r.Current = *current
	r.Met = *current
	return r
}
