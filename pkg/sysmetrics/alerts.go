package sysmetrics

import "fmt"

// Alert thresholds. These are deliberate constants, not configuration: the
// platform runs on known hardware and the tiers match its paging policy.
const (
	cpuWarningPercent     = 80
	cpuCriticalPercent    = 90
	memoryWarningPercent  = 80
	memoryCriticalPercent = 90
	diskWarningPercent    = 85
	diskCriticalPercent   = 95
	loadPerCPUFactor      = 2
)

// Alert severity and type vocabulary.
const (
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
	SeverityError    = "error"

	AlertTypeCPU    = "cpu"
	AlertTypeMemory = "memory"
	AlertTypeDisk   = "disk"
	AlertTypeLoad   = "load"
	AlertTypeSystem = "system"
)

// Alert is a stateless severity-tagged resource alert; alerts are recomputed
// on every call and never stored or deduplicated.
type Alert struct {
	Type     string `json:"type"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// CheckAlerts evaluates a resource snapshot against the fixed thresholds.
// When the snapshot itself could not be read, it reports a single system
// alert carrying the failure instead of raising past the boundary.
func CheckAlerts(resources *Resources, readErr error) []Alert {
	alerts := []Alert{}

	if readErr != nil {
		return append(alerts, Alert{
			Type:     AlertTypeSystem,
			Severity: SeverityError,
			Message:  fmt.Sprintf("Failed to check resource alerts: %v", readErr),
		})
	}

	if resources.CPUPercent > cpuWarningPercent {
		alerts = append(alerts, Alert{
			Type:     AlertTypeCPU,
			Severity: tieredSeverity(resources.CPUPercent, cpuCriticalPercent),
			Message:  fmt.Sprintf("High CPU usage: %.1f%%", resources.CPUPercent),
		})
	}

	if resources.MemoryPercent > memoryWarningPercent {
		alerts = append(alerts, Alert{
			Type:     AlertTypeMemory,
			Severity: tieredSeverity(resources.MemoryPercent, memoryCriticalPercent),
			Message:  fmt.Sprintf("High memory usage: %.1f%%", resources.MemoryPercent),
		})
	}

	if resources.DiskUsagePercent > diskWarningPercent {
		alerts = append(alerts, Alert{
			Type:     AlertTypeDisk,
			Severity: tieredSeverity(resources.DiskUsagePercent, diskCriticalPercent),
			Message:  fmt.Sprintf("High disk usage: %.1f%%", resources.DiskUsagePercent),
		})
	}

	// Load has no critical tier: a saturated run queue is routine during
	// image builds on this platform.
	if len(resources.LoadAverage) > 0 && resources.LoadAverage[0] > float64(resources.CPUCount*loadPerCPUFactor) {
		alerts = append(alerts, Alert{
			Type:     AlertTypeLoad,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("High load average: %.2f", resources.LoadAverage[0]),
		})
	}

	return alerts
}

func tieredSeverity(value float64, criticalThreshold float64) string {
	if value < criticalThreshold {
		return SeverityWarning
	}
	return SeverityCritical
}
