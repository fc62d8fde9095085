package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/readiness/internal/adapters/repository"
)

// AthletesHandler serves stored reports per athlete.
type AthletesHandler struct {
	deps       Dependencies
	maxHistory int
}

// NewAthletesHandler creates a new athletes handler.
func NewAthletesHandler(deps Dependencies, maxHistory int) *AthletesHandler {
	return &AthletesHandler{deps: deps, maxHistory: maxHistory}
}

// HandleGetReport handles GET /v1/athletes/{id}/report.
func (h *AthletesHandler) HandleGetReport(w http.ResponseWriter, r *http.Request) {
	const op = "athletes.report"

	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	rec, err := h.deps.Latest(r.Context(), id)
	if err != nil {
		writeStoreError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// HandleGetHistory handles GET /v1/athletes/{id}/history?limit=N. Records
// are returned newest first.
func (h *AthletesHandler) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	const op = "athletes.history"

	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, repository.ErrInvalidLimit))
			return
		}
		limit = n
	}
	if limit > h.maxHistory {
		limit = h.maxHistory
	}

	recs, err := h.deps.History(r.Context(), id, limit)
	if err != nil {
		writeStoreError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"athlete_id": id,
		"records":    recs,
	})
}

func writeStoreError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, repository.ErrInvalidLimit):
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
	case isUnavailable(err):
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	}
}
