// Package sysinfo collects host and process metrics for /utils stats and
// the web API.
package sysinfo

import (
	"context"
	"os"
	"runtime"
	"strings"

	"github.com/PancyStudios/PancyModGo/pkg/logger"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// Snapshot is a point-in-time view of the machine running the bot. Fields
// that could not be read are left at their zero value.
type Snapshot struct {
	GoVersion  string `json:"goVersion"`
	Goroutines int    `json:"goroutines"`
	HeapAlloc  uint64 `json:"heapAlloc"`

	ProcessRSS uint64  `json:"processRss"`
	ProcessCPU float64 `json:"processCpu"`

	CPUs        int     `json:"cpus"`
	CPUPercent  float64 `json:"cpuPercent"`
	MemTotal    uint64  `json:"memTotal"`
	MemUsed     uint64  `json:"memUsed"`
	MemPercent  float64 `json:"memPercent"`
	Platform    string  `json:"platform"`
	Kernel      string  `json:"kernel"`
	HostUptimeS uint64  `json:"hostUptime"`
}

// Collect reads the current metrics. Failures of individual probes are
// logged at debug level and do not fail the snapshot.
func Collect(ctx context.Context) Snapshot {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	snap := Snapshot{
		GoVersion:  strings.TrimPrefix(runtime.Version(), "go"),
		Goroutines: runtime.NumGoroutine(),
		HeapAlloc:  ms.Alloc,
		CPUs:       runtime.NumCPU(),
	}

	if n, err := cpu.CountsWithContext(ctx, true); err == nil {
		snap.CPUs = n
	} else {
		probeFailed("cpu.Counts", err)
	}
	if pct, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(pct) > 0 {
		snap.CPUPercent = pct[0]
	} else if err != nil {
		probeFailed("cpu.Percent", err)
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		snap.MemTotal = vm.Total
		snap.MemUsed = vm.Used
		snap.MemPercent = vm.UsedPercent
	} else {
		probeFailed("mem.VirtualMemory", err)
	}

	if info, err := host.InfoWithContext(ctx); err == nil {
		snap.Platform = strings.TrimSpace(info.Platform + " " + info.PlatformVersion)
		snap.Kernel = info.KernelVersion
		snap.HostUptimeS = info.Uptime
	} else {
		probeFailed("host.Info", err)
	}

	if p, err := process.NewProcessWithContext(ctx, int32(os.Getpid())); err == nil {
		if mi, err := p.MemoryInfoWithContext(ctx); err == nil {
			snap.ProcessRSS = mi.RSS
		}
		if pct, err := p.CPUPercentWithContext(ctx); err == nil {
			snap.ProcessCPU = pct
		}
	} else {
		probeFailed("process", err)
	}

	return snap
}

func probeFailed(probe string, err error) {
	logger.Debug("sysinfo: "+probe+": "+err.Error(), "SysInfo")
}

// MB converts bytes to mebibytes.
func MB(b uint64) float64 {
	return float64(b) / 1024 / 1024
}
