package metrics

import (
	"context"

	"github.com/tech-arch1tect/berth-monitor/config"
	"github.com/tech-arch1tect/berth-monitor/internal/logging"
	"github.com/tech-arch1tect/berth-monitor/internal/stats"

	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(NewExporter),
	fx.Provide(func(e *Exporter) stats.Recorder {
		return e
	}),
	fx.Provide(NewHandler),
	fx.Provide(func(service *stats.Service, cfg *config.Config, logger *logging.Logger) *Collector {
		return NewCollector(service, cfg.MetricsCollectInterval, logger)
	}),
	fx.Invoke(registerCollector),
)

func registerCollector(lc fx.Lifecycle, collector *Collector) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			collector.Start()
			return nil
		},
		OnStop: func(context.Context) error {
			collector.Stop()
			return nil
		},
	})
}
