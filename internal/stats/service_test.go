package stats

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRuntime struct {
	containers []ContainerDescriptor
	listErr    error
	snapshots  map[string]*ResourceSnapshot
	statsErr   map[string]error
	limits     map[string]uint64
	delay      time.Duration

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func (f *fakeRuntime) ListContainers(_ context.Context, all bool) ([]ContainerDescriptor, error) {
	if !all {
		return nil, errors.New("expected stopped containers to be included")
	}
	return f.containers, f.listErr
}

func (f *fakeRuntime) ContainerStats(ctx context.Context, id string) (*ResourceSnapshot, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		cur := f.maxInFlight.Load()
		if n <= cur || f.maxInFlight.CompareAndSwap(cur, n) {
			break
		}
	}

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err := f.statsErr[id]; err != nil {
		return nil, err
	}
	if snap, ok := f.snapshots[id]; ok {
		return snap, nil
	}
	return nil, ErrStatsUnavailable
}

func (f *fakeRuntime) MemoryLimit(_ context.Context, id string) (uint64, error) {
	return f.limits[id], nil
}

type fakeRates struct {
	rates map[string]float64
	err   error
}

func (f *fakeRates) ContainerCPURates(context.Context) (map[string]float64, error) {
	return f.rates, f.err
}

type fakeRecorder struct {
	mu      sync.Mutex
	calls   int
	samples []Sample
}

func (f *fakeRecorder) Record(_ *Response, samples []Sample) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.samples = samples
}

func runningSnapshot() *ResourceSnapshot {
	pids := uint64(3)
	return &ResourceSnapshot{
		Read:              time.Now(),
		MemoryUsage:       32 * 1024 * 1024,
		MemoryLimit:       128 * 1024 * 1024,
		CPUTotalUsage:     2000,
		PreCPUTotalUsage:  1000,
		SystemCPUUsage:    20000,
		PreSystemCPUUsage: 10000,
		OnlineCPUs:        1,
		Network:           &NetworkCounters{Interface: "eth0", RxBytes: 4096, TxBytes: 2048},
		BlockIO:           BlockIOCounters{ReadBytes: 1024},
		PIDs:              &pids,
	}
}

func descriptor(id, name, state, status string) ContainerDescriptor {
	return ContainerDescriptor{
		ID:       id,
		Name:     name,
		RawState: state,
		State:    ClassifyState(state, status),
		Status:   status,
	}
}

func TestFetchContainerStatsDegradesSingleFailure(t *testing.T) {
	runtime := &fakeRuntime{
		containers: []ContainerDescriptor{
			descriptor("1", "api", "running", "Up 1 hour"),
			descriptor("2", "worker", "running", "Up 1 hour"),
			descriptor("3", "migrate", "exited", "Exited (0) 1 hour ago"),
		},
		snapshots: map[string]*ResourceSnapshot{"1": runningSnapshot()},
		statsErr:  map[string]error{"2": errors.New("stats stream broke")},
	}
	recorder := &fakeRecorder{}
	svc := NewService(Options{
		Runtime:       runtime,
		HostMemory:    FixedHostMemory(1 << 30),
		Recorder:      recorder,
		StatsTimeout:  time.Second,
		MaxConcurrent: 4,
	})

	resp, err := svc.FetchContainerStats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, AggregateCounts{Running: 2, Stopped: 1}, resp.Stats)
	require.Len(t, resp.Containers, 3)

	api := resp.Containers[0]
	assert.Equal(t, "api", api.Name)
	assert.Equal(t, "32 MB", api.MemUsage)
	assert.Equal(t, "128 MB", api.MemLimit)
	assert.Equal(t, "4 KB / 2 KB", api.NetIO)
	assert.Equal(t, "1 KB / 0 KB", api.BlockIO)
	assert.Equal(t, "3", api.PIDs)
	assert.Equal(t, "10.00%", api.CPUPercent)

	worker := resp.Containers[1]
	assert.Equal(t, "worker", worker.Name)
	assert.Equal(t, PlaceholderRecord(runtime.containers[1]), worker)

	migrate := resp.Containers[2]
	assert.Equal(t, "migrate", migrate.Name)
	assert.Equal(t, "exited", migrate.Status)
	assert.Equal(t, Placeholder, migrate.MemUsage)

	assert.Equal(t, 1, recorder.calls)
	require.Len(t, recorder.samples, 3)
	assert.True(t, recorder.samples[0].Available)
	assert.False(t, recorder.samples[1].Available)
}

func TestFetchContainerStatsListFailure(t *testing.T) {
	recorder := &fakeRecorder{}
	svc := NewService(Options{
		Runtime:  &fakeRuntime{listErr: errors.New("cannot connect to the Docker daemon")},
		Recorder: recorder,
	})

	resp, err := svc.FetchContainerStats(context.Background())
	assert.Nil(t, resp)
	assert.ErrorContains(t, err, "failed to list containers")
	assert.Zero(t, recorder.calls)
}

func TestFetchContainerStatsEmpty(t *testing.T) {
	svc := NewService(Options{Runtime: &fakeRuntime{}})

	resp, err := svc.FetchContainerStats(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, resp.Containers)
	assert.Empty(t, resp.Containers)
}

func TestFetchContainerStatsPreservesOrderAndBoundsConcurrency(t *testing.T) {
	runtime := &fakeRuntime{
		snapshots: map[string]*ResourceSnapshot{},
		delay:     20 * time.Millisecond,
	}
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		runtime.containers = append(runtime.containers, descriptor(id, "ctr-"+id, "running", "Up"))
		runtime.snapshots[id] = runningSnapshot()
	}

	svc := NewService(Options{
		Runtime:       runtime,
		HostMemory:    FixedHostMemory(1 << 30),
		StatsTimeout:  time.Second,
		MaxConcurrent: 3,
	})

	resp, err := svc.FetchContainerStats(context.Background())
	require.NoError(t, err)

	for i, c := range runtime.containers {
		assert.Equal(t, c.Name, resp.Containers[i].Name)
		assert.NotEqual(t, Placeholder, resp.Containers[i].MemUsage)
	}
	assert.LessOrEqual(t, runtime.maxInFlight.Load(), int32(3))
}

func TestFetchContainerStatsTimeoutDegrades(t *testing.T) {
	runtime := &fakeRuntime{
		containers: []ContainerDescriptor{descriptor("slow", "slow", "running", "Up")},
		snapshots:  map[string]*ResourceSnapshot{"slow": runningSnapshot()},
		delay:      time.Second,
	}
	svc := NewService(Options{
		Runtime:      runtime,
		StatsTimeout: 10 * time.Millisecond,
	})

	resp, err := svc.FetchContainerStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Placeholder, resp.Containers[0].MemUsage)
	assert.Equal(t, 1, resp.Stats.Running)
}

func TestFetchContainerStatsMemoryLimitFallback(t *testing.T) {
	unlimited := runningSnapshot()
	unlimited.MemoryLimit = 0
	configured := runningSnapshot()
	configured.MemoryLimit = 0

	runtime := &fakeRuntime{
		containers: []ContainerDescriptor{
			descriptor("u", "unlimited", "running", "Up"),
			descriptor("c", "configured", "running", "Up"),
		},
		snapshots: map[string]*ResourceSnapshot{"u": unlimited, "c": configured},
		limits:    map[string]uint64{"c": 64 * 1024 * 1024},
	}
	svc := NewService(Options{
		Runtime:    runtime,
		HostMemory: FixedHostMemory(512 * 1024 * 1024),
	})

	resp, err := svc.FetchContainerStats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "512 MB", resp.Containers[0].MemLimit)
	assert.Equal(t, "6.25%", resp.Containers[0].MemPercent)
	assert.Equal(t, "64 MB", resp.Containers[1].MemLimit)
	assert.Equal(t, "50.00%", resp.Containers[1].MemPercent)
}

func TestFetchContainerStatsUsesMetricsCPURates(t *testing.T) {
	runtime := &fakeRuntime{
		containers: []ContainerDescriptor{
			descriptor("1", "api", "running", "Up"),
			descriptor("2", "worker", "running", "Up"),
		},
		snapshots: map[string]*ResourceSnapshot{"1": runningSnapshot(), "2": runningSnapshot()},
	}
	svc := NewService(Options{
		Runtime:    runtime,
		HostMemory: FixedHostMemory(1 << 30),
		CPURates:   &fakeRates{rates: map[string]float64{"api": 73.456}},
	})

	resp, err := svc.FetchContainerStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "73.46%", resp.Containers[0].CPUPercent)
	assert.Equal(t, "10.00%", resp.Containers[1].CPUPercent)
}

func TestFetchContainerStatsMetricsFailureFallsBack(t *testing.T) {
	runtime := &fakeRuntime{
		containers: []ContainerDescriptor{descriptor("1", "api", "running", "Up")},
		snapshots:  map[string]*ResourceSnapshot{"1": runningSnapshot()},
	}
	svc := NewService(Options{
		Runtime:    runtime,
		HostMemory: FixedHostMemory(1 << 30),
		CPURates:   &fakeRates{err: errors.New("prometheus unreachable")},
	})

	resp, err := svc.FetchContainerStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "10.00%", resp.Containers[0].CPUPercent)
}

type panickingRuntime struct {
	fakeRuntime
}

func (p *panickingRuntime) ContainerStats(context.Context, string) (*ResourceSnapshot, error) {
	panic("unexpected nil field")
}

func TestFetchContainerStatsRecoversPanics(t *testing.T) {
	runtime := &panickingRuntime{fakeRuntime{
		containers: []ContainerDescriptor{descriptor("1", "api", "running", "Up")},
	}}
	svc := NewService(Options{Runtime: runtime})

	resp, err := svc.FetchContainerStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Placeholder, resp.Containers[0].MemUsage)
}
