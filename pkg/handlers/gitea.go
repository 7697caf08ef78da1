package handlers

import (
	"fmt"
	"net/http"

	"github.com/gitopslab/clusterpulse/pkg/logger"
	"github.com/pkg/errors"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

type GiteaStatusResponse struct {
	Status      string `json:"status"`
	PodsRunning int    `json:"pods_running,omitempty"`
	PodsTotal   int    `json:"pods_total,omitempty"`
	Message     string `json:"message"`
}

// GetGiteaStatus is a quick roll-up of the git-server pods only.
func (h *Handler) GetGiteaStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.queryContext(r)
	defer cancel()

	pods, err := h.Client.CoreV1().Pods("git").List(ctx, metav1.ListOptions{LabelSelector: "app.kubernetes.io/name=gitea"})
	if err != nil {
		logger.Error(errors.Wrap(err, "failed to get gitea status"))
		JSON(w, http.StatusInternalServerError, NewErrorResponse(err))
		return
	}

	if len(pods.Items) == 0 {
		JSON(w, http.StatusOK, GiteaStatusResponse{
			Status:  "not_found",
			Message: "No Gitea pods found",
		})
		return
	}

	running := 0
	for _, pod := range pods.Items {
		if pod.Status.Phase == corev1.PodRunning {
			running++
		}
	}

	status := "healthy"
	if running == 0 {
		status = "unhealthy"
	}

	JSON(w, http.StatusOK, GiteaStatusResponse{
		Status:      status,
		PodsRunning: running,
		PodsTotal:   len(pods.Items),
		Message:     fmt.Sprintf("%d/%d pods running", running, len(pods.Items)),
	})
}
