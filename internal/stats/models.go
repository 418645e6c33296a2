package stats

import (
	"errors"
	"time"
)

// Placeholder is rendered for any field whose raw counter could not be read.
const Placeholder = "--"

var ErrStatsUnavailable = errors.New("container statistics unavailable")

type LifecycleState string

const (
	StateRunning    LifecycleState = "running"
	StateExited     LifecycleState = "exited"
	StateUnhealthy  LifecycleState = "unhealthy"
	StateRestarting LifecycleState = "restarting"
	StateOther      LifecycleState = "other"
)

type ContainerDescriptor struct {
	ID string
	// Name has the runtime's leading "/" already stripped.
	Name string
	// RawState is the runtime's own state word, e.g. "running" or "paused".
	RawState string
	State    LifecycleState
	// Status is the runtime's human status text, e.g. "Up 3 minutes (unhealthy)".
	Status string
}

type NetworkCounters struct {
	Interface string
	RxBytes   uint64
	TxBytes   uint64
}

type BlockIOCounters struct {
	ReadBytes  uint64
	WriteBytes uint64
}

// ResourceSnapshot is one read of a container's counters. CPU counters are
// cumulative; only the difference between the current and previous pair means
// anything.
type ResourceSnapshot struct {
	Read time.Time

	MemoryUsage uint64
	// MemoryLimit is 0 when the runtime reports no limit.
	MemoryLimit uint64

	CPUTotalUsage     uint64
	PreCPUTotalUsage  uint64
	SystemCPUUsage    uint64
	PreSystemCPUUsage uint64
	OnlineCPUs        uint32

	// Network is nil when the container has no network interfaces.
	Network *NetworkCounters
	BlockIO BlockIOCounters
	// PIDs is nil when the runtime did not report a process count.
	PIDs *uint64
}

type DisplayRecord struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Status     string `json:"status"`
	Warning    bool   `json:"warning"`
	MemUsage   string `json:"memUsage"`
	MemLimit   string `json:"memLimit"`
	MemPercent string `json:"memPercent"`
	NetIO      string `json:"netIO"`
	BlockIO    string `json:"blockIO"`
	PIDs       string `json:"pids"`
	CPUPercent string `json:"cpuPercent,omitempty"`
}

// Sample holds the numeric values behind a DisplayRecord for gauge export.
// Available is false when the record was degraded to placeholders.
type Sample struct {
	Name          string
	State         LifecycleState
	Available     bool
	CPUPercent    float64
	MemoryPercent float64
	NetworkRx     uint64
	NetworkTx     uint64
	PIDs          uint64
}

type AggregateCounts struct {
	Running    int `json:"running"`
	Stopped    int `json:"stopped"`
	Unhealthy  int `json:"unhealthy"`
	Restarting int `json:"restarting"`
}

type Response struct {
	Stats      AggregateCounts `json:"stats"`
	Containers []DisplayRecord `json:"containers"`
}
