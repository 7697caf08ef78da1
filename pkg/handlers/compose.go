package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gitopslab/clusterpulse/pkg/logger"
	"github.com/gitopslab/clusterpulse/pkg/supervisor"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
)

// GetComposeProject returns the remote supervisor's project roll-up.
func (h *Handler) GetComposeProject(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.queryContext(r)
	defer cancel()

	project, err := h.Supervisor.GetProject(ctx)
	if err != nil {
		logger.Error(errors.Wrap(err, "failed to get supervisor project info"))
		JSON(w, http.StatusServiceUnavailable, NewErrorResponse(errors.New("process-compose not available")))
		return
	}

	JSON(w, http.StatusOK, project)
}

type ComposeProcessesResponse struct {
	Processes []supervisor.ProcessState `json:"processes"`
}

// GetComposeProcesses returns every supervised process.
func (h *Handler) GetComposeProcesses(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.queryContext(r)
	defer cancel()

	project, err := h.Supervisor.GetProject(ctx)
	if err != nil {
		logger.Error(errors.Wrap(err, "failed to get supervisor processes"))
		JSON(w, http.StatusServiceUnavailable, NewErrorResponse(errors.New("process-compose not available")))
		return
	}

	JSON(w, http.StatusOK, ComposeProcessesResponse{Processes: project.Processes})
}

// GetComposeProcess returns one supervised process by name.
func (h *Handler) GetComposeProcess(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.queryContext(r)
	defer cancel()

	name := mux.Vars(r)["name"]

	proc, err := h.Supervisor.GetProcess(ctx, name)
	if err != nil {
		if errors.Cause(err) == supervisor.ErrProcessNotFound {
			JSON(w, http.StatusNotFound, NewErrorResponse(err))
			return
		}
		logger.Error(errors.Wrapf(err, "failed to get process %s", name))
		JSON(w, http.StatusInternalServerError, NewErrorResponse(err))
		return
	}

	JSON(w, http.StatusOK, proc)
}

// StartComposeProcess proxies a start action to the supervisor.
func (h *Handler) StartComposeProcess(w http.ResponseWriter, r *http.Request) {
	h.composeAction(w, r, h.Supervisor.StartProcess)
}

// StopComposeProcess proxies a stop action to the supervisor.
func (h *Handler) StopComposeProcess(w http.ResponseWriter, r *http.Request) {
	h.composeAction(w, r, h.Supervisor.StopProcess)
}

// RestartComposeProcess proxies a restart action to the supervisor.
func (h *Handler) RestartComposeProcess(w http.ResponseWriter, r *http.Request) {
	h.composeAction(w, r, h.Supervisor.RestartProcess)
}

func (h *Handler) composeAction(w http.ResponseWriter, r *http.Request, action func(ctx context.Context, name string) (*supervisor.ActionResult, error)) {
	ctx, cancel := h.queryContext(r)
	defer cancel()

	name := mux.Vars(r)["name"]

	result, err := action(ctx, name)
	if err != nil {
		if errors.Cause(err) == supervisor.ErrActionRejected {
			JSON(w, http.StatusBadRequest, NewErrorResponse(err))
			return
		}
		logger.Error(errors.Wrapf(err, "supervisor action on %s failed", name))
		JSON(w, http.StatusInternalServerError, NewErrorResponse(err))
		return
	}

	JSON(w, http.StatusOK, result)
}

type ComposeLogsResponse struct {
	Logs  []string `json:"logs"`
	Count int      `json:"count"`
}

// GetComposeProcessLogs returns the tail of a process log.
func (h *Handler) GetComposeProcessLogs(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.queryContext(r)
	defer cancel()

	name := mux.Vars(r)["name"]

	tail := 100
	if raw := r.URL.Query().Get("tail"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			JSON(w, http.StatusBadRequest, NewErrorResponse(errors.Wrap(err, "invalid tail")))
			return
		}
		tail = parsed
	}

	logs, err := h.Supervisor.ProcessLogs(ctx, name, tail)
	if err != nil {
		logger.Error(errors.Wrapf(err, "failed to get logs for %s", name))
		JSON(w, http.StatusInternalServerError, NewErrorResponse(err))
		return
	}

	JSON(w, http.StatusOK, ComposeLogsResponse{Logs: logs, Count: len(logs)})
}

// GetComposeHealth returns the supervisor-level health roll-up. An
// unreachable supervisor is a status value, not a request failure.
func (h *Handler) GetComposeHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.queryContext(r)
	defer cancel()

	JSON(w, http.StatusOK, h.Supervisor.GetHealth(ctx))
}
