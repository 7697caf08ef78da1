package sysmetrics

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/v3/process"
)

// platformKeywords identify processes that belong to the cluster platform:
// runtime components plus the application servers the platform hosts.
var platformKeywords = []string{
	"k3s", "containerd", "runc", "kubelet", "kubectl",
	"traefik", "coredns", "argocd", "gitea",
	"uvicorn", "gunicorn", "python", "node", "nginx",
}

// Process is a host process view.
type Process struct {
	PID           int32     `json:"pid"`
	Name          string    `json:"name"`
	Status        string    `json:"status"`
	CPUPercent    float64   `json:"cpu_percent"`
	MemoryPercent float64   `json:"memory_percent"`
	MemoryMB      float64   `json:"memory_mb"`
	CreateTime    time.Time `json:"create_time"`
	UptimeSeconds float64   `json:"uptime_seconds"`
	Cmdline       []string  `json:"cmdline"`
}

// TopProcesses returns the top processes by CPU usage, descending.
func (c *Collector) TopProcesses(ctx context.Context, limit int) ([]Process, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "enumerate processes")
	}

	views := []Process{}
	for _, proc := range procs {
		view, err := c.processView(ctx, proc)
		if err != nil {
			// Processes come and go while we read them; skip the ones
			// we lost access to.
			continue
		}
		// Kernel threads carry no useful accounting.
		if view.Name == "" || strings.HasPrefix(view.Name, "[") {
			continue
		}
		views = append(views, *view)
	}

	sort.Slice(views, func(i, j int) bool {
		return views[i].CPUPercent > views[j].CPUPercent
	})
	if limit > 0 && len(views) > limit {
		views = views[:limit]
	}
	return views, nil
}

// PlatformProcesses returns processes matching the platform keyword set,
// sorted by CPU usage descending.
func (c *Collector) PlatformProcesses(ctx context.Context) ([]Process, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "enumerate processes")
	}

	views := []Process{}
	for _, proc := range procs {
		view, err := c.processView(ctx, proc)
		if err != nil {
			continue
		}
		if !matchesPlatformKeyword(view.Name, view.Cmdline) {
			continue
		}
		views = append(views, *view)
	}

	sort.Slice(views, func(i, j int) bool {
		return views[i].CPUPercent > views[j].CPUPercent
	})
	return views, nil
}

func matchesPlatformKeyword(name string, cmdline []string) bool {
	lower := strings.ToLower(name)
	for _, keyword := range platformKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	for _, arg := range cmdline {
		lowerArg := strings.ToLower(arg)
		for _, keyword := range platformKeywords {
			if strings.Contains(lowerArg, keyword) {
				return true
			}
		}
	}
	return false
}

func (c *Collector) processView(ctx context.Context, proc *process.Process) (*Process, error) {
	name, err := proc.NameWithContext(ctx)
	if err != nil {
		return nil, err
	}

	statuses, err := proc.StatusWithContext(ctx)
	if err != nil {
		return nil, err
	}
	status := ""
	if len(statuses) > 0 {
		status = statuses[0]
	}

	cpuPercent, err := proc.CPUPercentWithContext(ctx)
	if err != nil {
		return nil, err
	}

	memPercent, err := proc.MemoryPercentWithContext(ctx)
	if err != nil {
		return nil, err
	}

	memInfo, err := proc.MemoryInfoWithContext(ctx)
	if err != nil {
		return nil, err
	}

	createMillis, err := proc.CreateTimeWithContext(ctx)
	if err != nil {
		return nil, err
	}
	createTime := time.UnixMilli(createMillis)

	cmdline, err := proc.CmdlineSliceWithContext(ctx)
	if err != nil {
		cmdline = nil
	}
	// Truncate for readability.
	if len(cmdline) > 3 {
		cmdline = cmdline[:3]
	}

	return &Process{
		PID:           proc.Pid,
		Name:          name,
		Status:        status,
		CPUPercent:    round2(cpuPercent),
		MemoryPercent: round2(float64(memPercent)),
		MemoryMB:      round2(float64(memInfo.RSS) / (1 << 20)),
		CreateTime:    createTime,
		UptimeSeconds: math.Round(time.Since(createTime).Seconds()*10) / 10,
		Cmdline:       cmdline,
	}, nil
}
