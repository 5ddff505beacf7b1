package status

import (
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/teranos/cadence/errors"
)

const bytesPerGB = 1024 * 1024 * 1024

// HostStats is host resource usage.
type HostStats struct {
	MemoryUsedGB  float64 `json:"memory_used_gb"`
	MemoryTotalGB float64 `json:"memory_total_gb"`
	MemoryPercent float64 `json:"memory_percent"`
	CPUCount      int     `json:"cpu_count"`
}

// ReadHost samples host memory through gopsutil.
func ReadHost() (HostStats, error) {
	v, err := mem.VirtualMemory()
	if err != nil {
		return HostStats{}, errors.Wrap(err, "failed to get memory stats")
	}

	stats := HostStats{
		MemoryTotalGB: float64(v.Total) / bytesPerGB,
		MemoryUsedGB:  float64(v.Total-v.Available) / bytesPerGB,
	}
	if v.Total > 0 {
		stats.MemoryPercent = float64(v.Total-v.Available) / float64(v.Total) * 100
	}

	if n, err := cpu.Counts(true); err == nil {
		stats.CPUCount = n
	}
	return stats, nil
}
