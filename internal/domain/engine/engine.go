// Package engine assembles a readiness report from raw assessment inputs or
// precomputed pillar scores. An Engine is immutable once built and safe for
// concurrent use.
package engine

import (
	"github.com/okian/readiness/internal/domain/gate"
	"github.com/okian/readiness/internal/domain/hrzone"
	"github.com/okian/readiness/internal/domain/model"
	"github.com/okian/readiness/internal/domain/phase"
	"github.com/okian/readiness/internal/domain/pillar"
	"github.com/okian/readiness/internal/domain/recommend"
	"github.com/okian/readiness/internal/domain/scoring"
	"github.com/okian/readiness/internal/domain/zone"
)

// Input is one assessment: the six raw records plus athlete context.
type Input struct {
	Pillars pillar.Inputs         `json:"pillars"`
	Athlete model.AthleteSnapshot `json:"athlete"`
}

// SafetyGates holds both gate breakdowns.
type SafetyGates struct {
	Power gate.Result `json:"power"`
	Speed gate.Result `json:"speed"`
}

// Report is the result of one evaluation. HRZones is nil when the snapshot
// has no age or resting HR, TrainingPhase when it has no cumulative distance.
type Report struct {
	CompositeScore  float64                    `json:"composite_score"`
	RiskCategory    model.RiskCategory         `json:"risk_category"`
	Pillars         model.PillarScores         `json:"pillars"`
	AllowedZones    []zone.Code                `json:"allowed_zones"`
	HRZones         *hrzone.Zones              `json:"hr_zones,omitempty"`
	TrainingPhase   *phase.Status              `json:"training_phase,omitempty"`
	SafetyGates     SafetyGates                `json:"safety_gates"`
	Recommendations []recommend.Recommendation `json:"recommendations"`
}

// Engine evaluates assessments against one set of tables.
type Engine struct {
	settings   Settings
	aggregator *scoring.Aggregator
	classifier *scoring.Classifier
	gates      *gate.Evaluator
}

// New builds an Engine. Any invalid table is reported as a
// *model.ConfigurationError.
func New(opts ...Option) (*Engine, error) {
	s := DefaultSettings()
	for _, opt := range opts {
		opt(&s)
	}

	agg, err := scoring.NewAggregator(s.Weights)
	if err != nil {
		return nil, err
	}
	cls, err := scoring.NewClassifier(s.RiskThresholds)
	if err != nil {
		return nil, err
	}
	ev, err := gate.NewEvaluator(s.Gates)
	if err != nil {
		return nil, err
	}
	return &Engine{settings: s, aggregator: agg, classifier: cls, gates: ev}, nil
}

// Settings returns the tables the engine was built with.
func (e *Engine) Settings() Settings { return e.settings }

// Zones returns the zone catalogue with unlock scores from this engine's risk
// table.
func (e *Engine) Zones() []zone.Zone { return zone.Catalogue(e.classifier.LowerBound) }

// Evaluate scores the raw records and builds the report.
func (e *Engine) Evaluate(in Input) (Report, error) {
	scores, err := pillar.Calculate(in.Pillars)
	if err != nil {
		return Report{}, err
	}
	return e.EvaluateScores(scores, in.Athlete)
}

// Validate reports the error Evaluate would return for in, if any.
func (e *Engine) Validate(in Input) error {
	_, err := e.Evaluate(in)
	return err
}

// EvaluateScores builds the report from precomputed pillar scores.
func (e *Engine) EvaluateScores(scores model.PillarScores, snap model.AthleteSnapshot) (Report, error) {
	composite, err := e.aggregator.Aggregate(scores)
	if err != nil {
		return Report{}, err
	}
	cat := e.classifier.Classify(composite)

	power := e.gates.EvaluatePower(composite, scores, snap)
	speed := e.gates.EvaluateSpeed(composite, scores, snap)

	r := Report{
		CompositeScore:  composite,
		RiskCategory:    cat,
		Pillars:         scores,
		AllowedZones:    zone.Allowed(cat, power, speed),
		SafetyGates:     SafetyGates{Power: power, Speed: speed},
		Recommendations: recommend.Generate(e.classifier.LowerBound, cat, scores, power, speed),
	}

	if snap.Age != nil && snap.RestingHR != nil {
		z, err := hrzone.Calculate(*snap.Age, *snap.RestingHR)
		if err != nil {
			return Report{}, err
		}
		r.HRZones = &z
	}
	if snap.CumulativeKm != nil {
		st, err := phase.Track(*snap.CumulativeKm, composite)
		if err != nil {
			return Report{}, err
		}
		r.TrainingPhase = &st
	}
	return r, nil
}
