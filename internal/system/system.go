package system

import (
	"fmt"
	"os/exec"
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// LookupTools returns the names of binaries that are not on PATH
func LookupTools(names ...string) []string {
	var missing []string
	for _, name := range names {
		if name == "" {
			continue
		}
		if _, err := exec.LookPath(name); err != nil {
			missing = append(missing, name)
		}
	}
	return missing
}

// Host describes the machine a run executed on
type Host struct {
	LogicalCPUs     int
	TotalMemory     uint64
	AvailableMemory uint64
}

// HostSummary collects CPU and memory figures; missing values stay zero
func HostSummary() Host {
	var h Host
	if n, err := cpu.Counts(true); err == nil {
		h.LogicalCPUs = n
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		h.TotalMemory = vm.Total
		h.AvailableMemory = vm.Available
	}
	return h
}

func (h Host) String() string {
	return fmt.Sprintf("CPU: %d | RAM: %.1f/%.1f GiB свободно",
		h.LogicalCPUs, gib(h.AvailableMemory), gib(h.TotalMemory))
}

// DefaultWorkers returns the worker count for CPU-bound external tools
func DefaultWorkers() int {
	if n, err := cpu.Counts(true); err == nil && n > 0 {
		return n
	}
	return runtime.NumCPU()
}

func gib(b uint64) float64 {
	return float64(b) / (1 << 30)
}
