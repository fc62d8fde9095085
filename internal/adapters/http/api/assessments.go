package api

import (
	"net/http"
	"strings"

	"github.com/okian/readiness/internal/adapters/mq/queue"
	"github.com/okian/readiness/internal/domain/engine"
	"github.com/okian/readiness/internal/domain/model"
)

// AssessmentRequest is the body of POST /v1/assessments.
type AssessmentRequest struct {
	SubmissionID string `json:"submission_id"`
	engine.Input
}

// AssessmentsHandler accepts assessments for async evaluation.
type AssessmentsHandler struct {
	deps Dependencies
}

// NewAssessmentsHandler creates a new assessments handler.
func NewAssessmentsHandler(deps Dependencies) *AssessmentsHandler {
	return &AssessmentsHandler{deps: deps}
}

// HandlePostAssessment handles POST /v1/assessments. A repeated
// submission_id is acknowledged with 200 and not queued again.
func (h *AssessmentsHandler) HandlePostAssessment(w http.ResponseWriter, r *http.Request) {
	const op = "assessments.post"

	var req AssessmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(req.SubmissionID) == "" {
		writeEvaluationError(w, op, model.Missing("submission_id"))
		return
	}
	if strings.TrimSpace(req.Athlete.AthleteID) == "" {
		writeEvaluationError(w, op, model.Missing("athlete.athlete_id"))
		return
	}

	if err := h.deps.Validate(req.Input); err != nil {
		writeEvaluationError(w, op, err)
		return
	}

	ctx := r.Context()
	if h.deps.SeenAndRecord(ctx, req.SubmissionID) {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true})
		return
	}

	if err := h.deps.Enqueue(ctx, queue.Job{SubmissionID: req.SubmissionID, Input: req.Input}); err != nil {
		h.deps.Unrecord(ctx, req.SubmissionID)
		writeEvaluationError(w, op, err)
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted"})
}
