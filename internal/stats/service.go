package stats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tech-arch1tect/berth-monitor/internal/logging"

	"github.com/docker/go-units"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// RuntimeSource is the container runtime's administrative API.
type RuntimeSource interface {
	ListContainers(ctx context.Context, all bool) ([]ContainerDescriptor, error)
	ContainerStats(ctx context.Context, containerID string) (*ResourceSnapshot, error)
	MemoryLimit(ctx context.Context, containerID string) (uint64, error)
}

// CPURateSource supplies pre-computed CPU percentages keyed by container name.
type CPURateSource interface {
	ContainerCPURates(ctx context.Context) (map[string]float64, error)
}

// Recorder receives every aggregate after it is computed.
type Recorder interface {
	Record(resp *Response, samples []Sample)
}

type Options struct {
	Runtime       RuntimeSource
	HostMemory    HostMemory
	CPURates      CPURateSource
	Recorder      Recorder
	StatsTimeout  time.Duration
	MaxConcurrent int
	Logger        *logging.Logger
}

type Service struct {
	runtime       RuntimeSource
	hostMemory    HostMemory
	cpuRates      CPURateSource
	recorder      Recorder
	statsTimeout  time.Duration
	maxConcurrent int
	logger        *logging.Logger
}

func NewService(opts Options) *Service {
	if opts.HostMemory == nil {
		opts.HostMemory = NewHostMemory()
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 1
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}

	return &Service{
		runtime:       opts.Runtime,
		hostMemory:    opts.HostMemory,
		cpuRates:      opts.CPURates,
		recorder:      opts.Recorder,
		statsTimeout:  opts.StatsTimeout,
		maxConcurrent: opts.MaxConcurrent,
		logger:        opts.Logger.Component("stats"),
	}
}

// FetchContainerStats lists every container, stopped ones included, and
// derives a display record for each. Only a listing failure is returned as an
// error; a container whose statistics cannot be read gets a placeholder
// record instead.
func (s *Service) FetchContainerStats(ctx context.Context) (*Response, error) {
	containers, err := s.runtime.ListContainers(ctx, true)
	if err != nil {
		s.logger.Error("Failed to list containers", zap.Error(err))
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}

	resp := &Response{
		Containers: make([]DisplayRecord, len(containers)),
	}
	samples := make([]Sample, len(containers))

	for _, c := range containers {
		resp.Stats.Add(c.State)
	}

	var rates map[string]float64
	if s.cpuRates != nil {
		rates = s.fetchCPURates(ctx)
	}

	var g errgroup.Group
	g.SetLimit(s.maxConcurrent)

	for i, c := range containers {
		g.Go(func() error {
			record, sample := s.deriveContainer(ctx, c)
			if rate, ok := rates[c.Name]; ok {
				record, sample = WithCPURate(record, sample, rate)
			}
			resp.Containers[i] = record
			samples[i] = sample
			return nil
		})
	}
	_ = g.Wait()

	s.logger.Debug("Container stats collected",
		zap.Int("containers", len(containers)),
		zap.Int("running", resp.Stats.Running),
		zap.Int("stopped", resp.Stats.Stopped),
	)

	if s.recorder != nil {
		s.recorder.Record(resp, samples)
	}

	return resp, nil
}

func (s *Service) deriveContainer(ctx context.Context, c ContainerDescriptor) (record DisplayRecord, sample Sample) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Panic while deriving container stats",
				zap.String("container", c.Name),
				zap.Any("panic", r),
			)
			record, sample = PlaceholderRecord(c), placeholderSample(c)
		}
	}()

	fetchCtx := ctx
	if s.statsTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, s.statsTimeout)
		defer cancel()
	}

	snap, err := s.runtime.ContainerStats(fetchCtx, c.ID)
	if err != nil {
		if errors.Is(err, ErrStatsUnavailable) {
			s.logger.Debug("No statistics for container",
				zap.String("container", c.Name),
				zap.String("state", c.RawState),
			)
		} else {
			s.logger.Warn("Failed to fetch container stats",
				zap.String("container", c.Name),
				zap.String("id", c.ID),
				zap.Error(err),
			)
		}
		return PlaceholderRecord(c), placeholderSample(c)
	}

	return Derive(c, snap, s.resolveMemoryLimit(fetchCtx, c, snap))
}

// resolveMemoryLimit falls back from the snapshot to the container's
// configured limit and finally to total host memory.
func (s *Service) resolveMemoryLimit(ctx context.Context, c ContainerDescriptor, snap *ResourceSnapshot) uint64 {
	if snap.MemoryLimit > 0 {
		return snap.MemoryLimit
	}

	limit, err := s.runtime.MemoryLimit(ctx, c.ID)
	if err != nil {
		s.logger.Debug("Failed to inspect container memory limit",
			zap.String("container", c.Name),
			zap.Error(err),
		)
	} else if limit > 0 {
		return limit
	}

	host := s.hostMemory.Total()
	s.logger.Warn("Container has no memory limit, using host memory",
		zap.String("container", c.Name),
		zap.String("host_memory", units.BytesSize(float64(host))),
	)
	return host
}

func (s *Service) fetchCPURates(ctx context.Context) map[string]float64 {
	rates, err := s.cpuRates.ContainerCPURates(ctx)
	if err != nil {
		s.logger.Warn("Failed to fetch CPU rates from metrics source, using runtime counters",
			zap.Error(err),
		)
		return nil
	}
	return rates
}
