package handlers

import (
	"net/http"
	"strconv"

	"github.com/gitopslab/clusterpulse/pkg/cluster"
	"github.com/gitopslab/clusterpulse/pkg/logger"
	"github.com/gitopslab/clusterpulse/pkg/platform"
	"github.com/pkg/errors"
)

// GetCluster returns the lenient cluster-level health snapshot.
func (h *Handler) GetCluster(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.queryContext(r)
	defer cancel()

	services := h.Probes.Run(ctx)

	snapshot, err := cluster.GetSnapshot(ctx, h.Client, services)
	if err != nil {
		logger.Error(errors.Wrap(err, "failed to get cluster status"))
		JSON(w, http.StatusInternalServerError, NewErrorResponse(err))
		return
	}

	JSON(w, http.StatusOK, snapshot)
}

// GetNodes returns detailed node status.
func (h *Handler) GetNodes(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.queryContext(r)
	defer cancel()

	nodes, err := cluster.GetNodes(ctx, h.Client)
	if err != nil {
		logger.Error(errors.Wrap(err, "failed to get nodes status"))
		JSON(w, http.StatusInternalServerError, NewErrorResponse(err))
		return
	}

	JSON(w, http.StatusOK, nodes)
}

// GetPods returns pod status, optionally scoped by namespace and limited.
func (h *Handler) GetPods(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.queryContext(r)
	defer cancel()

	namespace := r.URL.Query().Get("namespace")

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			JSON(w, http.StatusBadRequest, NewErrorResponse(errors.Wrap(err, "invalid limit")))
			return
		}
		limit = parsed
	}

	pods, err := cluster.GetPods(ctx, h.Client, namespace, limit)
	if err != nil {
		logger.Error(errors.Wrap(err, "failed to get pods status"))
		JSON(w, http.StatusInternalServerError, NewErrorResponse(err))
		return
	}

	JSON(w, http.StatusOK, pods)
}

// GetServices runs the probe set and returns the results in probe order.
func (h *Handler) GetServices(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.queryContext(r)
	defer cancel()

	JSON(w, http.StatusOK, h.Probes.Run(ctx))
}

// GetPlatform returns the strict GitOps-platform roll-up.
func (h *Handler) GetPlatform(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.queryContext(r)
	defer cancel()

	services := h.Probes.Run(ctx)

	nodes, err := cluster.GetNodes(ctx, h.Client)
	if err != nil {
		logger.Error(errors.Wrap(err, "failed to get gitops status"))
		JSON(w, http.StatusInternalServerError, NewErrorResponse(err))
		return
	}

	pods, err := cluster.GetPods(ctx, h.Client, "", 0)
	if err != nil {
		logger.Error(errors.Wrap(err, "failed to get gitops status"))
		JSON(w, http.StatusInternalServerError, NewErrorResponse(err))
		return
	}

	JSON(w, http.StatusOK, platform.Evaluate(services, nodes, pods))
}
