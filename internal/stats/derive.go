package stats

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// CPUPercent applies the docker CLI formula to a pair of cumulative counter
// readings. Counter resets and first samples yield 0.
func CPUPercent(cpuDelta, systemDelta float64, onlineCPUs uint32) float64 {
	if systemDelta <= 0 || cpuDelta <= 0 {
		return 0
	}
	return (cpuDelta / systemDelta) * float64(onlineCPUs) * 100.0
}

func snapshotCPUPercent(snap *ResourceSnapshot) float64 {
	cpuDelta := float64(snap.CPUTotalUsage) - float64(snap.PreCPUTotalUsage)
	systemDelta := float64(snap.SystemCPUUsage) - float64(snap.PreSystemCPUUsage)
	return CPUPercent(cpuDelta, systemDelta, snap.OnlineCPUs)
}

// MemoryPercent returns usage as a share of limit clamped to [0, 100]. A zero
// limit must be resolved by the caller before getting here.
func MemoryPercent(usage, limit uint64) float64 {
	if limit == 0 {
		return 0
	}
	percent := float64(usage) / float64(limit) * 100.0
	return math.Max(0, math.Min(100, percent))
}

func FormatMB(bytes uint64) string {
	return fmt.Sprintf("%d MB", int64(math.Round(float64(bytes)/1024/1024)))
}

func FormatKB(bytes uint64) string {
	return fmt.Sprintf("%d KB", int64(math.Round(float64(bytes)/1024)))
}

func FormatNetIO(n *NetworkCounters) string {
	if n == nil {
		return Placeholder
	}
	return FormatKB(n.RxBytes) + " / " + FormatKB(n.TxBytes)
}

func FormatBlockIO(b BlockIOCounters) string {
	return FormatKB(b.ReadBytes) + " / " + FormatKB(b.WriteBytes)
}

func FormatPercent(percent float64) string {
	return fmt.Sprintf("%.2f%%", percent)
}

// NormalizeName strips the single leading "/" docker prefixes names with.
func NormalizeName(name string) string {
	return strings.TrimPrefix(name, "/")
}

// IsUnhealthy reports whether the status text carries a failing health check.
func IsUnhealthy(status string) bool {
	return strings.Contains(status, "unhealthy")
}

// ClassifyState maps a runtime state and status text onto a lifecycle state.
// A running container whose health check fails counts as unhealthy, not
// running.
func ClassifyState(rawState, status string) LifecycleState {
	switch strings.ToLower(rawState) {
	case "running":
		if IsUnhealthy(status) {
			return StateUnhealthy
		}
		return StateRunning
	case "exited":
		return StateExited
	case "restarting":
		return StateRestarting
	case "unhealthy":
		return StateUnhealthy
	default:
		return StateOther
	}
}

func (c *AggregateCounts) Add(state LifecycleState) {
	switch state {
	case StateRunning:
		c.Running++
	case StateExited:
		c.Stopped++
	case StateUnhealthy:
		c.Unhealthy++
	case StateRestarting:
		c.Restarting++
	}
}

func (c AggregateCounts) Total() int {
	return c.Running + c.Stopped + c.Unhealthy + c.Restarting
}

// Derive turns one snapshot into a display record. memLimit is the effective
// limit: the snapshot's own limit, or whatever fallback the caller resolved.
func Derive(desc ContainerDescriptor, snap *ResourceSnapshot, memLimit uint64) (DisplayRecord, Sample) {
	if snap == nil {
		return PlaceholderRecord(desc), placeholderSample(desc)
	}

	memPercent := MemoryPercent(snap.MemoryUsage, memLimit)
	cpuPercent := snapshotCPUPercent(snap)

	record := DisplayRecord{
		ID:         desc.ID,
		Name:       desc.Name,
		Status:     desc.RawState,
		Warning:    IsUnhealthy(desc.Status),
		MemUsage:   FormatMB(snap.MemoryUsage),
		MemLimit:   FormatMB(memLimit),
		MemPercent: FormatPercent(memPercent),
		NetIO:      FormatNetIO(snap.Network),
		BlockIO:    FormatBlockIO(snap.BlockIO),
		PIDs:       Placeholder,
		CPUPercent: FormatPercent(cpuPercent),
	}

	sample := Sample{
		Name:          desc.Name,
		State:         desc.State,
		Available:     true,
		CPUPercent:    cpuPercent,
		MemoryPercent: memPercent,
	}

	if snap.Network != nil {
		sample.NetworkRx = snap.Network.RxBytes
		sample.NetworkTx = snap.Network.TxBytes
	}

	if snap.PIDs != nil {
		record.PIDs = strconv.FormatUint(*snap.PIDs, 10)
		sample.PIDs = *snap.PIDs
	}

	return record, sample
}

// WithCPURate replaces the counter-derived CPU figure with a pre-computed
// percentage from the metrics source.
func WithCPURate(record DisplayRecord, sample Sample, percent float64) (DisplayRecord, Sample) {
	if !sample.Available {
		return record, sample
	}
	record.CPUPercent = FormatPercent(percent)
	sample.CPUPercent = percent
	return record, sample
}

func PlaceholderRecord(desc ContainerDescriptor) DisplayRecord {
	return DisplayRecord{
		ID:         desc.ID,
		Name:       desc.Name,
		Status:     desc.RawState,
		Warning:    IsUnhealthy(desc.Status),
		MemUsage:   Placeholder,
		MemLimit:   Placeholder,
		MemPercent: Placeholder,
		NetIO:      Placeholder,
		BlockIO:    Placeholder,
		PIDs:       Placeholder,
		CPUPercent: Placeholder,
	}
}

func placeholderSample(desc ContainerDescriptor) Sample {
	return Sample{
		Name:  desc.Name,
		State: desc.State,
	}
}
