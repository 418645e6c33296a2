package stats

import (
	"github.com/tech-arch1tect/berth-monitor/config"
	"github.com/tech-arch1tect/berth-monitor/internal/logging"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

type ServiceParams struct {
	fx.In

	Config     *config.Config
	Runtime    RuntimeSource
	HostMemory HostMemory
	Logger     *logging.Logger
	CPURates   CPURateSource `optional:"true"`
	Recorder   Recorder      `optional:"true"`
}

func NewServiceFromConfig(p ServiceParams) *Service {
	opts := Options{
		Runtime:       p.Runtime,
		HostMemory:    p.HostMemory,
		Recorder:      p.Recorder,
		StatsTimeout:  p.Config.StatsTimeout,
		MaxConcurrent: p.Config.MaxConcurrentFetches,
		Logger:        p.Logger,
	}
	if p.Config.CPUFromMetrics {
		if p.CPURates == nil {
			p.Logger.Warn("CPU_FROM_METRICS is set but no metrics source is configured, using runtime counters")
		}
		opts.CPURates = p.CPURates
	}

	p.Logger.Info("Stats service initialized",
		zap.Duration("stats_timeout", p.Config.StatsTimeout),
		zap.Int("max_concurrent_fetches", p.Config.MaxConcurrentFetches),
		zap.Bool("cpu_from_metrics", opts.CPURates != nil),
	)

	return NewService(opts)
}

var Module = fx.Options(
	fx.Provide(NewHostMemory),
	fx.Provide(NewServiceFromConfig),
	fx.Provide(NewHandler),
)
