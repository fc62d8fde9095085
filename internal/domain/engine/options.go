package engine

import (
	"github.com/okian/readiness/internal/domain/gate"
	"github.com/okian/readiness/internal/domain/scoring"
)

// Settings is the configuration an Engine was built from.
type Settings struct {
	Weights        scoring.Weights        `json:"weights"`
	RiskThresholds scoring.RiskThresholds `json:"risk_thresholds"`
	Gates          gate.Thresholds        `json:"gates"`
}

// DefaultSettings returns the standard weight, risk and gate tables.
func DefaultSettings() Settings {
	return Settings{
		Weights:        scoring.DefaultWeights(),
		RiskThresholds: scoring.DefaultRiskThresholds(),
		Gates:          gate.DefaultThresholds(),
	}
}

// Option configures an Engine.
type Option func(*Settings)

// WithWeights replaces the pillar weight table.
func WithWeights(w scoring.Weights) Option {
	return func(s *Settings) {
		s.Weights = w
	}
}

// WithRiskThresholds replaces the risk category lower bounds.
func WithRiskThresholds(t scoring.RiskThresholds) Option {
	return func(s *Settings) {
		s.RiskThresholds = t
	}
}

// WithGateThresholds replaces the safety gate criteria.
func WithGateThresholds(t gate.Thresholds) Option {
	return func(s *Settings) {
		s.Gates = t
	}
}

// WithSettings replaces all tables at once.
func WithSettings(settings Settings) Option {
	return func(s *Settings) {
		*s = settings
	}
}
