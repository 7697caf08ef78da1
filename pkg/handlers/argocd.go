package handlers

import (
	"net/http"

	"github.com/gitopslab/clusterpulse/pkg/logger"
	"github.com/pkg/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

var applicationsGVR = schema.GroupVersionResource{
	Group:    "argoproj.io",
	Version:  "v1alpha1",
	Resource: "applications",
}

type ArgoApplication struct {
	Name     string `json:"name"`
	Sync     string `json:"sync"`
	Health   string `json:"health"`
	Revision string `json:"revision"`
}

type ArgoApplicationsResponse struct {
	Applications []ArgoApplication `json:"applications"`
	Total        int               `json:"total"`
	Synced       int               `json:"synced"`
	Healthy      int               `json:"healthy"`
}

// GetArgoApplications lists ArgoCD Application resources with their sync and
// health state.
func (h *Handler) GetArgoApplications(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.queryContext(r)
	defer cancel()

	apps, err := h.Dynamic.Resource(applicationsGVR).Namespace("argocd").List(ctx, metav1.ListOptions{})
	if err != nil {
		logger.Error(errors.Wrap(err, "failed to list argocd applications"))
		JSON(w, http.StatusInternalServerError, NewErrorResponse(err))
		return
	}

	response := ArgoApplicationsResponse{Applications: []ArgoApplication{}}
	for _, item := range apps.Items {
		app := argoApplicationView(item)
		response.Applications = append(response.Applications, app)
		if app.Sync == "Synced" {
			response.Synced++
		}
		if app.Health == "Healthy" {
			response.Healthy++
		}
	}
	response.Total = len(response.Applications)

	JSON(w, http.StatusOK, response)
}

func argoApplicationView(item unstructured.Unstructured) ArgoApplication {
	sync, found, _ := unstructured.NestedString(item.Object, "status", "sync", "status")
	if !found || sync == "" {
		sync = "Unknown"
	}

	health, found, _ := unstructured.NestedString(item.Object, "status", "health", "status")
	if !found || health == "" {
		health = "Unknown"
	}

	revision, _, _ := unstructured.NestedString(item.Object, "status", "sync", "revision")
	if revision == "" {
		revision = "Unknown"
	} else if len(revision) > 8 {
		revision = revision[:8]
	}

	return ArgoApplication{
		Name:     item.GetName(),
		Sync:     sync,
		Health:   health,
		Revision: revision,
	}
}
