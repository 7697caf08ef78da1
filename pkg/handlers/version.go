package handlers

import (
	"net/http"

	"github.com/gitopslab/clusterpulse/pkg/version"
)

// GetVersion reports the running build.
func (h *Handler) GetVersion(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, version.GetBuild())
}
