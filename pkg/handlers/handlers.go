package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gitopslab/clusterpulse/pkg/logger"
	"github.com/gitopslab/clusterpulse/pkg/probes"
	"github.com/gitopslab/clusterpulse/pkg/supervisor"
	"github.com/gitopslab/clusterpulse/pkg/sysmetrics"
	"github.com/pkg/errors"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
)

const defaultQueryTimeout = 30 * time.Second

// Handler carries the injected collaborator handles. There are no package
// globals: every dependency is constructed once at startup and passed in.
type Handler struct {
	Client     kubernetes.Interface
	Dynamic    dynamic.Interface
	Probes     *probes.Runner
	Metrics    *sysmetrics.Collector
	Supervisor *supervisor.Client

	// QueryTimeout is the overall deadline for one query cycle; it cancels
	// every in-flight probe and orchestrator call for that request.
	QueryTimeout time.Duration
}

// queryContext derives the per-request deadline from the incoming request
// context, so client disconnects also cancel in-flight work.
func (h *Handler) queryContext(r *http.Request) (context.Context, context.CancelFunc) {
	timeout := h.QueryTimeout
	if timeout <= 0 {
		timeout = defaultQueryTimeout
	}
	return context.WithTimeout(r.Context(), timeout)
}

func JSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		logger.Error(err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Success bool   `json:"success"`
	Err     error  `json:"-"`
}

func NewErrorResponse(err error) ErrorResponse {
	return ErrorResponse{
		Error:   errors.Cause(err).Error(),
		Success: false,
		Err:     err,
	}
}
