package handlers

import (
	"net/http"
	"time"

	"github.com/gitopslab/clusterpulse/pkg/probes"
)

// Healthz reports the monitor's own liveness.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, probes.ServiceHealth{
		Service:   "clusterpulse",
		Status:    probes.StatusHealthy,
		Message:   "Service is running",
		Timestamp: time.Now(),
	})
}
