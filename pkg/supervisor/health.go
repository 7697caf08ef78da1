package supervisor

import (
	"context"
	"fmt"
	"strings"
)

// Lifecycle states the health engine cares about.
const (
	StatusRunning = "Running"
	StatusFailed  = "Failed"
	StatusCrashed = "Crashed"
)

// Health is the supervisor-level roll-up.
type Health struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// EvaluateHealth classifies a project's process list. Any process in a
// failure state forces unhealthy; a full running count is healthy; anything
// in between is degraded.
func EvaluateHealth(info *ProjectInfo) Health {
	failed := []string{}
	for _, proc := range info.Processes {
		if proc.Status == StatusFailed || proc.Status == StatusCrashed {
			failed = append(failed, proc.Name)
		}
	}

	if len(failed) > 0 {
		return Health{
			Status:  "unhealthy",
			Message: fmt.Sprintf("%d processes failed: %s", len(failed), strings.Join(failed, ", ")),
		}
	}

	if info.RunningProcesses == info.ProcessesCount {
		return Health{
			Status:  "healthy",
			Message: fmt.Sprintf("All %d processes running", info.ProcessesCount),
		}
	}

	return Health{
		Status:  "degraded",
		Message: fmt.Sprintf("%d/%d processes running", info.RunningProcesses, info.ProcessesCount),
	}
}

// GetHealth fetches the project and classifies it. An unreachable supervisor
// yields status error rather than a raised failure.
func (c *Client) GetHealth(ctx context.Context) Health {
	info, err := c.GetProject(ctx)
	if err != nil {
		return Health{Status: "error", Message: err.Error()}
	}
	return EvaluateHealth(info)
}
