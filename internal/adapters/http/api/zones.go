package api

import (
	"net/http"
)

// ZonesHandler lists the training zone catalogue.
type ZonesHandler struct {
	deps Dependencies
}

// NewZonesHandler creates a new zones handler.
func NewZonesHandler(deps Dependencies) *ZonesHandler {
	return &ZonesHandler{deps: deps}
}

// HandleGetZones handles GET /v1/zones. Unlock scores come from the risk
// table currently in force.
func (h *ZonesHandler) HandleGetZones(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"zones": h.deps.Zones()})
}
