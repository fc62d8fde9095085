package api

import (
	"net/http"

	"github.com/okian/readiness/internal/domain/engine"
)

// EvaluationsHandler scores assessments synchronously.
type EvaluationsHandler struct {
	deps Dependencies
}

// NewEvaluationsHandler creates a new evaluations handler.
func NewEvaluationsHandler(deps Dependencies) *EvaluationsHandler {
	return &EvaluationsHandler{deps: deps}
}

// HandlePostEvaluation handles POST /v1/evaluations. The stored record,
// report included, is returned with 201.
func (h *EvaluationsHandler) HandlePostEvaluation(w http.ResponseWriter, r *http.Request) {
	const op = "evaluations.post"

	var in engine.Input
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	rec, err := h.deps.Evaluate(r.Context(), in)
	if err != nil {
		writeEvaluationError(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}
