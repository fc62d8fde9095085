package scoring

import (
	"fmt"
	"math"

	"github.com/okian/readiness/internal/domain/model"
)

// Threshold maps an inclusive lower composite bound to a category.
type Threshold struct {
	LowerBound float64            `json:"lower_bound"`
	Category   model.RiskCategory `json:"category"`
}

// RiskThresholds lists the lower bound of every category above Critical.
// Critical covers everything below High.
type RiskThresholds struct {
	High    float64 `json:"high" koanf:"high"`
	Medium  float64 `json:"medium" koanf:"medium"`
	Low     float64 `json:"low" koanf:"low"`
	VeryLow float64 `json:"very_low" koanf:"very_low"`
}

// DefaultRiskThresholds returns the canonical breakpoints.
func DefaultRiskThresholds() RiskThresholds {
	return RiskThresholds{High: 40, Medium: 55, Low: 70, VeryLow: 85}
}

// Table expands the thresholds into the ordered lookup table, best category
// first.
func (t RiskThresholds) Table() []Threshold {
	return []Threshold{
		{LowerBound: t.VeryLow, Category: model.VeryLow},
		{LowerBound: t.Low, Category: model.Low},
		{LowerBound: t.Medium, Category: model.Medium},
		{LowerBound: t.High, Category: model.High},
		{LowerBound: model.MinScore, Category: model.Critical},
	}
}

// Classifier maps composite scores to risk categories.
type Classifier struct {
	table []Threshold
}

// NewClassifier validates that bounds are strictly descending and inside
// (0,100].
func NewClassifier(t RiskThresholds) (*Classifier, error) {
	table := t.Table()
	for i := 0; i < len(table)-1; i++ {
		b := table[i].LowerBound
		if math.IsNaN(b) || b <= model.MinScore || b > model.MaxScore {
			return nil, &model.ConfigurationError{Rule: fmt.Sprintf("%s threshold must be within (0, 100], got %g", table[i].Category, b)}
		}
		if b <= table[i+1].LowerBound {
			return nil, &model.ConfigurationError{Rule: fmt.Sprintf("%s threshold %g must exceed %s threshold %g",
				table[i].Category, b, table[i+1].Category, table[i+1].LowerBound)}
		}
	}
	return &Classifier{table: table}, nil
}

// Classify returns the first category whose lower bound the score reaches.
// NaN falls through to Critical.
func (c *Classifier) Classify(score float64) model.RiskCategory {
	for _, t := range c.table {
		if score >= t.LowerBound {
			return t.Category
		}
	}
	return model.Critical
}

// Table returns a copy of the lookup table.
func (c *Classifier) Table() []Threshold {
	out := make([]Threshold, len(c.table))
	copy(out, c.table)
	return out
}

// LowerBound returns the minimum composite for category cat.
func (c *Classifier) LowerBound(cat model.RiskCategory) float64 {
	for _, t := range c.table {
		if t.Category == cat {
			return t.LowerBound
		}
	}
	return math.NaN()
}
