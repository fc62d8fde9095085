// Package model contains the value types shared by the readiness engine and
// the layers around it.
package model

import (
	"encoding/json"
	"fmt"
	"math"
)

// Score bounds shared by every pillar and by the composite.
const (
	MinScore = 0.0
	MaxScore = 100.0
)

// Pillar names one of the six measured dimensions.
type Pillar int

// Pillars in their canonical order. The order is also the tie-break order.
const (
	Running Pillar = iota
	Strength
	ROM
	Balance
	Alignment
	Mobility
)

var pillarNames = [...]string{"running", "strength", "rom", "balance", "alignment", "mobility"}

// AllPillars returns the six pillars in canonical order.
func AllPillars() []Pillar {
	return []Pillar{Running, Strength, ROM, Balance, Alignment, Mobility}
}

func (p Pillar) String() string {
	if p < Running || p > Mobility {
		return fmt.Sprintf("pillar(%d)", int(p))
	}
	return pillarNames[p]
}

// MarshalText implements encoding.TextMarshaler.
func (p Pillar) MarshalText() ([]byte, error) {
	if p < Running || p > Mobility {
		return nil, fmt.Errorf("unknown pillar %d", int(p))
	}
	return []byte(pillarNames[p]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Pillar) UnmarshalText(b []byte) error {
	v, ok := ParsePillar(string(b))
	if !ok {
		return fmt.Errorf("unknown pillar %q", string(b))
	}
	*p = v
	return nil
}

// ParsePillar resolves a pillar by its lower-case name.
func ParsePillar(name string) (Pillar, bool) {
	for i, n := range pillarNames {
		if n == name {
			return Pillar(i), true
		}
	}
	return 0, false
}

// PillarScores holds the six normalized pillar scores.
type PillarScores struct {
	Running   float64 `json:"running"`
	Strength  float64 `json:"strength"`
	ROM       float64 `json:"rom"`
	Balance   float64 `json:"balance"`
	Alignment float64 `json:"alignment"`
	Mobility  float64 `json:"mobility"`
}

// Get returns the score of a single pillar.
func (s PillarScores) Get(p Pillar) float64 {
	switch p {
	case Running:
		return s.Running
	case Strength:
		return s.Strength
	case ROM:
		return s.ROM
	case Balance:
		return s.Balance
	case Alignment:
		return s.Alignment
	case Mobility:
		return s.Mobility
	}
	return math.NaN()
}

// With returns a copy of s with pillar p set to v.
func (s PillarScores) With(p Pillar, v float64) PillarScores {
	switch p {
	case Running:
		s.Running = v
	case Strength:
		s.Strength = v
	case ROM:
		s.ROM = v
	case Balance:
		s.Balance = v
	case Alignment:
		s.Alignment = v
	case Mobility:
		s.Mobility = v
	}
	return s
}

// Validate checks every score is finite and within [0,100].
func (s PillarScores) Validate() error {
	for _, p := range AllPillars() {
		v := s.Get(p)
		if math.IsNaN(v) || v < MinScore || v > MaxScore {
			return OutOfRange("pillars."+p.String(), v, MinScore, MaxScore)
		}
	}
	return nil
}

// PillarScoresFromMap builds PillarScores from a loosely-typed map. Every
// absent pillar is reported in a single MissingPillarError.
func PillarScoresFromMap(m map[Pillar]float64) (PillarScores, error) {
	var (
		s       PillarScores
		missing []Pillar
	)
	for _, p := range AllPillars() {
		v, ok := m[p]
		if !ok {
			missing = append(missing, p)
			continue
		}
		s = s.With(p, v)
	}
	if len(missing) > 0 {
		return PillarScores{}, &MissingPillarError{Missing: missing}
	}
	return s, s.Validate()
}

// UnmarshalJSON rejects payloads that omit any pillar. A null value counts as
// omitted.
func (s *PillarScores) UnmarshalJSON(b []byte) error {
	var raw map[string]*float64
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("decode pillar scores: %w", err)
	}
	m := make(map[Pillar]float64, len(raw))
	for k, v := range raw {
		p, ok := ParsePillar(k)
		if !ok {
			return &ValidationError{Field: "pillars." + k, Rule: "unknown pillar"}
		}
		if v != nil {
			m[p] = *v
		}
	}
	out, err := PillarScoresFromMap(m)
	if err != nil {
		return err
	}
	*s = out
	return nil
}

// Clamp bounds v to [0,100]. NaN maps to 0.
func Clamp(v float64) float64 {
	if math.IsNaN(v) {
		return MinScore
	}
	return math.Max(MinScore, math.Min(MaxScore, v))
}
