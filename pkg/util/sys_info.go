package util

import (
	"runtime"

	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
)

// SysInfo is the host summary exposed by the status endpoint.
type SysInfo struct {
	OS            string `json:"os"`
	Platform      string `json:"platform"`
	Hostname      string `json:"hostname"`
	Arch          string `json:"arch"`
	NumCPU        int    `json:"numCpu"`
	NumGoroutine  int    `json:"numGoroutine"`
	UptimeSeconds uint64 `json:"uptimeSeconds"`
	MemTotal      uint64 `json:"memTotal"`
	MemUsed       uint64 `json:"memUsed"`
	GoVersion     string `json:"goVersion"`
}

// GetSysInfo collects host and runtime information. Collection failures
// leave the affected fields at their zero values.
func GetSysInfo() *SysInfo {
	info := &SysInfo{
		OS:           runtime.GOOS,
		Arch:         runtime.GOARCH,
		NumCPU:       runtime.NumCPU(),
		NumGoroutine: runtime.NumGoroutine(),
		GoVersion:    runtime.Version(),
	}

	if h, err := host.Info(); err == nil {
		info.Platform = h.Platform + " " + h.PlatformVersion
		info.Hostname = h.Hostname
		info.UptimeSeconds = h.Uptime
	}

	if m, err := mem.VirtualMemory(); err == nil {
		info.MemTotal = m.Total
		info.MemUsed = m.Used
	}

	return info
}
