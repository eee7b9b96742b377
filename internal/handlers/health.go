package handlers

import (
	"net/http"

	"github.com/mainstage/backend/internal/services"
)

// HealthHandler serves the monitoring endpoint.
type HealthHandler struct {
	status *services.StatusService
}

func NewHealthHandler(status *services.StatusService) *HealthHandler {
	return &HealthHandler{status: status}
}

// Health reports aggregated component health. Degraded systems still answer
// 200; the payload carries the per-component detail.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.status.Health(r.Context()))
}
