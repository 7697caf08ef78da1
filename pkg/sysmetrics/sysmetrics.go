package sysmetrics

import (
	"context"
	"math"
	"time"

	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

// cpuSampleWindow is the interval the CPU percentage is sampled over. It is
// baked into every snapshot read; snapshots are never cached across calls.
const cpuSampleWindow = time.Second

// Resources is a point-in-time host resource snapshot.
type Resources struct {
	CPUPercent       float64   `json:"cpu_percent"`
	CPUCount         int       `json:"cpu_count"`
	MemoryTotalGB    float64   `json:"memory_total_gb"`
	MemoryUsedGB     float64   `json:"memory_used_gb"`
	MemoryPercent    float64   `json:"memory_percent"`
	DiskUsagePercent float64   `json:"disk_usage_percent"`
	DiskFreeGB       float64   `json:"disk_free_gb"`
	LoadAverage      []float64 `json:"load_average"`
	BootTime         time.Time `json:"boot_time"`
}

// Collector reads host-level process and resource metrics.
type Collector struct {
	// DiskPath is the mount point the disk usage is read from.
	DiskPath string
}

func NewCollector() *Collector {
	return &Collector{DiskPath: "/"}
}

// Resources reads a fresh host resource snapshot. The CPU figure is sampled
// over a 1-second window.
func (c *Collector) Resources(ctx context.Context) (*Resources, error) {
	cpuPercents, err := cpu.PercentWithContext(ctx, cpuSampleWindow, false)
	if err != nil {
		return nil, errors.Wrap(err, "read cpu percent")
	}
	cpuPercent := 0.0
	if len(cpuPercents) > 0 {
		cpuPercent = cpuPercents[0]
	}

	cpuCount, err := cpu.CountsWithContext(ctx, true)
	if err != nil {
		return nil, errors.Wrap(err, "read cpu count")
	}

	memory, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "read memory")
	}

	diskUsage, err := disk.UsageWithContext(ctx, c.DiskPath)
	if err != nil {
		return nil, errors.Wrapf(err, "read disk usage for %s", c.DiskPath)
	}

	// Load average is unavailable on some platforms; report zeros there.
	loadAverage := []float64{0, 0, 0}
	if avg, err := load.AvgWithContext(ctx); err == nil {
		loadAverage = []float64{avg.Load1, avg.Load5, avg.Load15}
	}

	bootTime, err := host.BootTimeWithContext(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "read boot time")
	}

	return &Resources{
		CPUPercent:       round2(cpuPercent),
		CPUCount:         cpuCount,
		MemoryTotalGB:    round2(bytesToGB(memory.Total)),
		MemoryUsedGB:     round2(bytesToGB(memory.Used)),
		MemoryPercent:    memory.UsedPercent,
		DiskUsagePercent: round2(diskUsage.UsedPercent),
		DiskFreeGB:       round2(bytesToGB(diskUsage.Free)),
		LoadAverage:      loadAverage,
		BootTime:         time.Unix(int64(bootTime), 0),
	}, nil
}

func bytesToGB(b uint64) float64 {
	return float64(b) / (1 << 30)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
