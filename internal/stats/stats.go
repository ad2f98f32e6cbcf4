package stats

import (
	"log/slog"

	linuxproc "github.com/c9s/goprocinfo/linux"
)

// Stats is a snapshot of host health used to decide whether there is
// headroom to dispatch more work.
type Stats struct {
	MemStats  *linuxproc.MemInfo
	DiskStats *linuxproc.Disk
	CpuStats  *linuxproc.CPUStat
	LoadStats *linuxproc.LoadAvg
	TaskCount int
}

func (s *Stats) MemUsedKb() uint64 {
	if s.MemStats == nil {
		return 0
	}
	return s.MemStats.MemTotal - s.MemStats.MemAvailable
}

func (s *Stats) MemAvailableKb() uint64 {
	if s.MemStats == nil {
		return 0
	}
	return s.MemStats.MemAvailable
}

func (s *Stats) MemTotalKb() uint64 {
	if s.MemStats == nil {
		return 0
	}
	return s.MemStats.MemTotal
}

func (s *Stats) MemUsedPercent() uint64 {
	if s.MemStats == nil || s.MemStats.MemTotal == 0 {
		return 0
	}
	return 100 * (s.MemStats.MemTotal - s.MemStats.MemAvailable) / s.MemStats.MemTotal
}

func (s *Stats) DiskTotal() uint64 {
	if s.DiskStats == nil {
		return 0
	}
	return s.DiskStats.All
}

func (s *Stats) DiskFree() uint64 {
	if s.DiskStats == nil {
		return 0
	}
	return s.DiskStats.Free
}

func (s *Stats) DiskUsed() uint64 {
	if s.DiskStats == nil {
		return 0
	}
	return s.DiskStats.Used
}

func (s *Stats) CpuUsage() float64 {
	if s.CpuStats == nil {
		return 0.0
	}

	idle := s.CpuStats.Idle + s.CpuStats.IOWait
	nonIdle := s.CpuStats.User + s.CpuStats.Nice + s.CpuStats.System + s.CpuStats.IRQ + s.CpuStats.SoftIRQ + s.CpuStats.Steal
	total := idle + nonIdle

	if total == 0 {
		return 0.0
	}
	return (float64(total) - float64(idle)) / float64(total)
}

// Headroom reports whether the one-minute load average is under maxLoad.
// Missing load data counts as headroom, so the scheduler is never stalled by
// an unreadable /proc.
func (s *Stats) Headroom(maxLoad float64) bool {
	if s.LoadStats == nil || maxLoad <= 0 {
		return true
	}
	return s.LoadStats.Last1Min < maxLoad
}

// GetStats samples /proc. Unreadable files are logged and left nil; the
// accessors above tolerate that.
func GetStats() *Stats {
	return &Stats{
		MemStats:  GetMemoryInfo(),
		DiskStats: GetDiskInfo(),
		CpuStats:  GetCpuStats(),
		LoadStats: GetLoadAvg(),
	}
}

func GetMemoryInfo() *linuxproc.MemInfo {
	memstats, err := linuxproc.ReadMemInfo("/proc/meminfo")
	if err != nil {
		slog.Error("error reading from /proc/meminfo", "error", err)
		return nil
	}
	return memstats
}

func GetDiskInfo() *linuxproc.Disk {
	diskstats, err := linuxproc.ReadDisk("/")
	if err != nil {
		slog.Error("error reading disk info", "error", err)
		return nil
	}
	return diskstats
}

func GetCpuStats() *linuxproc.CPUStat {
	stats, err := linuxproc.ReadStat("/proc/stat")
	if err != nil {
		slog.Error("error reading from /proc/stat", "error", err)
		return nil
	}
	return &stats.CPUStatAll
}

func GetLoadAvg() *linuxproc.LoadAvg {
	loadavg, err := linuxproc.ReadLoadAvg("/proc/loadavg")
	if err != nil {
		slog.Error("error reading from /proc/loadavg", "error", err)
		return nil
	}
	return loadavg
}
