package model

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel kinds. Concrete error types below unwrap to one of these so callers
// can branch with errors.Is without knowing the concrete type.
var (
	ErrValidation    = errors.New("validation failed")
	ErrConfiguration = errors.New("invalid configuration")
)

// ValidationError reports a missing or out-of-range input field.
type ValidationError struct {
	Field string // dotted path, e.g. "running.pain_level"
	Rule  string // human readable rule that was violated
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Rule)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Missing builds a ValidationError for an absent field.
func Missing(field string) *ValidationError {
	return &ValidationError{Field: field, Rule: "is required"}
}

// OutOfRange builds a ValidationError for a value outside [lo, hi].
func OutOfRange(field string, v, lo, hi float64) *ValidationError {
	return &ValidationError{Field: field, Rule: fmt.Sprintf("must be within [%g, %g], got %g", lo, hi, v)}
}

// MissingPillarError lists pillars absent from a loosely-typed score input.
type MissingPillarError struct {
	Missing []Pillar
}

func (e *MissingPillarError) Error() string {
	names := make([]string, len(e.Missing))
	for i, p := range e.Missing {
		names[i] = p.String()
	}
	return "missing pillar scores: " + strings.Join(names, ", ")
}

func (e *MissingPillarError) Unwrap() error { return ErrValidation }

// ConfigurationError is returned at construction time when a weight or
// threshold table is unusable.
type ConfigurationError struct {
	Rule string
}

func (e *ConfigurationError) Error() string { return "configuration: " + e.Rule }

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

// ValidationFields lists every field named by validation errors inside err,
// walking joined and wrapped errors. Missing pillars are reported as
// "pillars.<name>".
func ValidationFields(err error) []string {
	var out []string
	var walk func(error)
	walk = func(e error) {
		switch t := e.(type) {
		case nil:
			return
		case *ValidationError:
			out = append(out, t.Field)
			return
		case *MissingPillarError:
			for _, p := range t.Missing {
				out = append(out, "pillars."+p.String())
			}
			return
		case interface{ Unwrap() []error }:
			for _, inner := range t.Unwrap() {
				walk(inner)
			}
		case interface{ Unwrap() error }:
			walk(t.Unwrap())
		}
	}
	walk(err)
	return out
}
