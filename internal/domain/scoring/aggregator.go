package scoring

import (
	"github.com/okian/readiness/internal/domain/model"
)

// Aggregator computes the weighted composite of six pillar scores.
type Aggregator struct {
	weights Weights
}

// NewAggregator validates the weight table once; a bad table is a
// configuration error and never surfaces at call time.
func NewAggregator(w Weights) (*Aggregator, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &Aggregator{weights: w}, nil
}

// Aggregate returns Σ score_i × weight_i, clamped to [0,100].
func (a *Aggregator) Aggregate(s model.PillarScores) (float64, error) {
	if err := s.Validate(); err != nil {
		return 0, err
	}
	var composite float64
	for _, p := range model.AllPillars() {
		composite += s.Get(p) * a.weights.Of(p)
	}
	return model.Clamp(composite), nil
}

// AggregatePartial accepts loosely-typed scores and fails with a
// MissingPillarError instead of defaulting absent pillars.
func (a *Aggregator) AggregatePartial(m map[model.Pillar]float64) (float64, error) {
	s, err := model.PillarScoresFromMap(m)
	if err != nil {
		return 0, err
	}
	return a.Aggregate(s)
}
