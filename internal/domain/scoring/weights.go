// Package scoring aggregates pillar scores into a composite and classifies the
// composite into a risk category.
package scoring

import (
	"fmt"
	"math"

	"github.com/okian/readiness/internal/domain/model"
)

// WeightTolerance is the allowed deviation of the weight sum from 1.0.
const WeightTolerance = 1e-6

// Weights assigns each pillar its share of the composite.
type Weights struct {
	Running   float64 `json:"running" koanf:"running"`
	Strength  float64 `json:"strength" koanf:"strength"`
	ROM       float64 `json:"rom" koanf:"rom"`
	Balance   float64 `json:"balance" koanf:"balance"`
	Alignment float64 `json:"alignment" koanf:"alignment"`
	Mobility  float64 `json:"mobility" koanf:"mobility"`
}

// DefaultWeights returns the canonical weight table.
func DefaultWeights() Weights {
	return Weights{
		Running:   0.40,
		Strength:  0.15,
		ROM:       0.12,
		Balance:   0.13,
		Alignment: 0.10,
		Mobility:  0.10,
	}
}

// Of returns the weight of pillar p.
func (w Weights) Of(p model.Pillar) float64 {
	switch p {
	case model.Running:
		return w.Running
	case model.Strength:
		return w.Strength
	case model.ROM:
		return w.ROM
	case model.Balance:
		return w.Balance
	case model.Alignment:
		return w.Alignment
	case model.Mobility:
		return w.Mobility
	}
	return 0
}

// Sum returns the total of all six weights.
func (w Weights) Sum() float64 {
	var sum float64
	for _, p := range model.AllPillars() {
		sum += w.Of(p)
	}
	return sum
}

// Validate checks each weight is in [0,1] and the table sums to 1.
func (w Weights) Validate() error {
	for _, p := range model.AllPillars() {
		v := w.Of(p)
		if math.IsNaN(v) || v < 0 || v > 1 {
			return &model.ConfigurationError{Rule: fmt.Sprintf("weight %s must be within [0, 1], got %g", p, v)}
		}
	}
	if sum := w.Sum(); math.Abs(sum-1) > WeightTolerance {
		return &model.ConfigurationError{Rule: fmt.Sprintf("weights must sum to 1.0, got %.6f", sum)}
	}
	return nil
}
