package handlers

import (
	"net/http"
	"strconv"

	"github.com/gitopslab/clusterpulse/pkg/logger"
	"github.com/gitopslab/clusterpulse/pkg/sysmetrics"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
)

// GetSystemResources returns a fresh host resource snapshot.
func (h *Handler) GetSystemResources(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.queryContext(r)
	defer cancel()

	resources, err := h.Metrics.Resources(ctx)
	if err != nil {
		logger.Error(errors.Wrap(err, "failed to get system resources"))
		JSON(w, http.StatusInternalServerError, NewErrorResponse(err))
		return
	}

	JSON(w, http.StatusOK, resources)
}

// GetTopProcesses returns the top processes by CPU usage.
func (h *Handler) GetTopProcesses(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.queryContext(r)
	defer cancel()

	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			JSON(w, http.StatusBadRequest, NewErrorResponse(errors.Wrap(err, "invalid limit")))
			return
		}
		limit = parsed
	}

	processes, err := h.Metrics.TopProcesses(ctx, limit)
	if err != nil {
		logger.Error(errors.Wrap(err, "failed to get top processes"))
		JSON(w, http.StatusInternalServerError, NewErrorResponse(err))
		return
	}

	JSON(w, http.StatusOK, processes)
}

// GetPlatformProcesses returns processes belonging to the cluster platform.
func (h *Handler) GetPlatformProcesses(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.queryContext(r)
	defer cancel()

	processes, err := h.Metrics.PlatformProcesses(ctx)
	if err != nil {
		logger.Error(errors.Wrap(err, "failed to get platform processes"))
		JSON(w, http.StatusInternalServerError, NewErrorResponse(err))
		return
	}

	JSON(w, http.StatusOK, processes)
}

type ResourceAlertsResponse struct {
	Alerts      []sysmetrics.Alert `json:"alerts"`
	Count       int                `json:"count"`
	HasCritical bool               `json:"has_critical"`
}

// GetResourceAlerts evaluates the resource thresholds. A failed snapshot read
// still answers 200 with a single system alert: the alert engine never raises
// past its boundary.
func (h *Handler) GetResourceAlerts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.queryContext(r)
	defer cancel()

	resources, err := h.Metrics.Resources(ctx)
	alerts := sysmetrics.CheckAlerts(resources, err)

	hasCritical := false
	for _, alert := range alerts {
		if alert.Severity == sysmetrics.SeverityCritical {
			hasCritical = true
			break
		}
	}

	JSON(w, http.StatusOK, ResourceAlertsResponse{
		Alerts:      alerts,
		Count:       len(alerts),
		HasCritical: hasCritical,
	})
}

// RestartProcess terminates an allow-listed process by pid. Disallowed
// targets are rejected, not errored.
func (h *Handler) RestartProcess(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.queryContext(r)
	defer cancel()

	pid, err := strconv.ParseInt(mux.Vars(r)["pid"], 10, 32)
	if err != nil {
		JSON(w, http.StatusBadRequest, NewErrorResponse(errors.Wrap(err, "invalid pid")))
		return
	}

	result, err := h.Metrics.RestartProcess(ctx, int32(pid))
	if err != nil {
		cause := errors.Cause(err)
		switch cause {
		case sysmetrics.ErrProcessNotFound:
			JSON(w, http.StatusNotFound, NewErrorResponse(err))
		case sysmetrics.ErrRestartNotAllowed:
			JSON(w, http.StatusBadRequest, NewErrorResponse(err))
		default:
			logger.Error(errors.Wrapf(err, "failed to restart process %d", pid))
			JSON(w, http.StatusInternalServerError, NewErrorResponse(err))
		}
		return
	}

	JSON(w, http.StatusOK, result)
}
