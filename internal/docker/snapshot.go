package docker

import (
	"sort"
	"strings"

	"github.com/tech-arch1tect/berth-monitor/internal/stats"

	"github.com/docker/docker/api/types/container"
)

const primaryInterface = "eth0"

// toSnapshot flattens a docker stats response. Stopped containers come back
// with a zero read time and nothing else, which is reported as unavailable.
func toSnapshot(v *container.StatsResponse) (*stats.ResourceSnapshot, error) {
	if v.Read.IsZero() {
		return nil, stats.ErrStatsUnavailable
	}

	onlineCPUs := v.CPUStats.OnlineCPUs
	if onlineCPUs == 0 {
		onlineCPUs = uint32(len(v.CPUStats.CPUUsage.PercpuUsage))
	}

	snap := &stats.ResourceSnapshot{
		Read:              v.Read,
		MemoryUsage:       v.MemoryStats.Usage,
		MemoryLimit:       v.MemoryStats.Limit,
		CPUTotalUsage:     v.CPUStats.CPUUsage.TotalUsage,
		PreCPUTotalUsage:  v.PreCPUStats.CPUUsage.TotalUsage,
		SystemCPUUsage:    v.CPUStats.SystemUsage,
		PreSystemCPUUsage: v.PreCPUStats.SystemUsage,
		OnlineCPUs:        onlineCPUs,
		Network:           primaryNetwork(v.Networks),
		BlockIO:           blockIO(v.BlkioStats.IoServiceBytesRecursive),
	}

	if v.PidsStats.Current > 0 {
		pids := v.PidsStats.Current
		snap.PIDs = &pids
	}

	return snap, nil
}

// primaryNetwork picks eth0, or the first interface by name when there is no
// eth0.
func primaryNetwork(networks map[string]container.NetworkStats) *stats.NetworkCounters {
	if len(networks) == 0 {
		return nil
	}

	name := primaryInterface
	if _, ok := networks[name]; !ok {
		names := make([]string, 0, len(networks))
		for n := range networks {
			names = append(names, n)
		}
		sort.Strings(names)
		name = names[0]
	}

	nw := networks[name]
	return &stats.NetworkCounters{
		Interface: name,
		RxBytes:   nw.RxBytes,
		TxBytes:   nw.TxBytes,
	}
}

func blockIO(entries []container.BlkioStatEntry) stats.BlockIOCounters {
	var counters stats.BlockIOCounters
	for _, entry := range entries {
		switch strings.ToLower(entry.Op) {
		case "read":
			counters.ReadBytes += entry.Value
		case "write":
			counters.WriteBytes += entry.Value
		}
	}
	return counters
}
