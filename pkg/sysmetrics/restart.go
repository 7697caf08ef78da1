package sysmetrics

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/v3/process"
)

// restartAllowList is the fixed set of process names that may be restarted
// through the API. Everything else is rejected outright.
var restartAllowList = map[string]bool{
	"uvicorn":  true,
	"gunicorn": true,
	"python":   true,
	"node":     true,
}

const (
	terminateGracePeriod = 10 * time.Second
	terminatePollEvery   = 200 * time.Millisecond
)

var (
	// ErrProcessNotFound reports a pid with no live process behind it.
	ErrProcessNotFound = errors.New("process not found")
	// ErrRestartNotAllowed reports a restart target outside the allow-list.
	ErrRestartNotAllowed = errors.New("restart not allowed")
)

// RestartResult describes a completed restart action.
type RestartResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// RestartAllowed reports whether the named process may be restarted.
func RestartAllowed(name string) bool {
	return restartAllowList[name]
}

// RestartProcess terminates the process, escalating to SIGKILL when it does
// not exit within the grace period.
func (c *Collector) RestartProcess(ctx context.Context, pid int32) (*RestartResult, error) {
	proc, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return nil, errors.Wrapf(ErrProcessNotFound, "process %d", pid)
	}

	name, err := proc.NameWithContext(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "read name of process %d", pid)
	}

	if !RestartAllowed(name) {
		return nil, errors.Wrapf(ErrRestartNotAllowed, "restarting %s not allowed", name)
	}

	if err := proc.TerminateWithContext(ctx); err != nil {
		return nil, errors.Wrapf(err, "terminate process %d", pid)
	}

	deadline := time.Now().Add(terminateGracePeriod)
	for time.Now().Before(deadline) {
		running, err := proc.IsRunningWithContext(ctx)
		if err != nil || !running {
			return &RestartResult{
				Status:  "success",
				Message: fmt.Sprintf("Process %d (%s) terminated successfully", pid, name),
			}, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(terminatePollEvery):
		}
	}

	if err := proc.KillWithContext(ctx); err != nil {
		return nil, errors.Wrapf(err, "kill process %d", pid)
	}
	return &RestartResult{
		Status:  "success",
		Message: fmt.Sprintf("Process %d (%s) killed after timeout", pid, name),
	}, nil
}
