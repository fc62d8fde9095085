package model

import "fmt"

// RiskCategory is the discrete classification of a composite score. Higher
// values mean lower injury risk.
type RiskCategory int

const (
	Critical RiskCategory = iota
	High
	Medium
	Low
	VeryLow
)

var riskNames = [...]string{"critical", "high", "medium", "low", "very_low"}

// AllRiskCategories returns the categories from highest to lowest risk.
func AllRiskCategories() []RiskCategory {
	return []RiskCategory{Critical, High, Medium, Low, VeryLow}
}

func (c RiskCategory) String() string {
	if c < Critical || c > VeryLow {
		return fmt.Sprintf("risk(%d)", int(c))
	}
	return riskNames[c]
}

// MarshalText implements encoding.TextMarshaler.
func (c RiskCategory) MarshalText() ([]byte, error) {
	if c < Critical || c > VeryLow {
		return nil, fmt.Errorf("unknown risk category %d", int(c))
	}
	return []byte(riskNames[c]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *RiskCategory) UnmarshalText(b []byte) error {
	for i, n := range riskNames {
		if n == string(b) {
			*c = RiskCategory(i)
			return nil
		}
	}
	return fmt.Errorf("unknown risk category %q", string(b))
}
