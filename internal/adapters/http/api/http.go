// Package api exposes the readiness service over HTTP/JSON.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/readiness/internal/adapters/mq/queue"
	"github.com/okian/readiness/internal/adapters/repository"
	"github.com/okian/readiness/internal/domain/dedupe"
	"github.com/okian/readiness/internal/domain/engine"
	"github.com/okian/readiness/internal/domain/model"
	"github.com/okian/readiness/internal/domain/zone"
)

const (
	defaultHistoryLimit = 10
	defaultMaxHistory   = 100
	maxBodyBytes        = 1 << 20
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	dedupe.Deduper

	// Enqueue queues an assessment for async evaluation. Returns
	// queue.ErrFull on backpressure.
	Enqueue(ctx context.Context, j queue.Job) error

	// Evaluate scores an assessment synchronously and stores the report.
	Evaluate(ctx context.Context, in engine.Input) (repository.Record, error)

	// Validate returns the validation error Evaluate would return, without
	// storing anything.
	Validate(in engine.Input) error

	// Zones lists the zone catalogue for the current risk table.
	Zones() []zone.Zone

	Latest(ctx context.Context, athleteID string) (repository.Record, error)
	History(ctx context.Context, athleteID string, limit int) ([]repository.Record, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	evaluationsHandler *EvaluationsHandler
	assessmentsHandler *AssessmentsHandler
	athletesHandler    *AthletesHandler
	zonesHandler       *ZonesHandler
}

// Option configures a Server.
type Option func(*serverOptions)

type serverOptions struct {
	maxHistory int
}

// WithMaxHistory caps the history page size.
func WithMaxHistory(n int) Option {
	return func(o *serverOptions) {
		if n > 0 {
			o.maxHistory = n
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	o := serverOptions{maxHistory: defaultMaxHistory}
	for _, opt := range opts {
		opt(&o)
	}
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		evaluationsHandler: NewEvaluationsHandler(deps),
		assessmentsHandler: NewAssessmentsHandler(deps),
		athletesHandler:    NewAthletesHandler(deps, o.maxHistory),
		zonesHandler:       NewZonesHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.Handle("GET /metrics", s.healthHandler.MetricsHandler())
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("POST /v1/evaluations", MetricsMiddleware(s.evaluationsHandler.HandlePostEvaluation, "evaluations"))
	mux.HandleFunc("POST /v1/assessments", MetricsMiddleware(s.assessmentsHandler.HandlePostAssessment, "assessments"))
	mux.HandleFunc("GET /v1/athletes/{id}/report", MetricsMiddleware(s.athletesHandler.HandleGetReport, "athlete_report"))
	mux.HandleFunc("GET /v1/athletes/{id}/history", MetricsMiddleware(s.athletesHandler.HandleGetHistory, "athlete_history"))
	mux.HandleFunc("GET /v1/zones", MetricsMiddleware(s.zonesHandler.HandleGetZones, "zones"))
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

type errorResponse struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Fields  []string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// decodeJSON reads a bounded JSON body, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// writeEvaluationError maps engine and store failures to responses.
// Validation failures list every offending field.
func writeEvaluationError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, model.ErrValidation):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Code:    "validation_failed",
			Message: err.Error(),
			Fields:  model.ValidationFields(err),
		})
	case errors.Is(err, queue.ErrFull):
		writeError(w, http.StatusTooManyRequests, "backpressure", WrapKind(op, ErrBackpressure, err))
	case errors.Is(err, queue.ErrClosed), isUnavailable(err):
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	}
}

// isUnavailable reports errors that mean the service is not accepting work,
// such as a request before start-up finished.
func isUnavailable(err error) bool {
	var u interface{ Unavailable() bool }
	return errors.As(err, &u) && u.Unavailable()
}
