package websocket

import (
	"context"

	"github.com/tech-arch1tect/berth-monitor/config"
	"github.com/tech-arch1tect/berth-monitor/internal/logging"
	"github.com/tech-arch1tect/berth-monitor/internal/promquery"
	"github.com/tech-arch1tect/berth-monitor/internal/stats"

	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(func(cfg *config.Config, statsService *stats.Service, promService *promquery.Service, logger *logging.Logger) *Handler {
		return NewHandler(Options{
			Stats:          statsService,
			CPU:            promService,
			Interval:       cfg.StreamInterval,
			ComputeTimeout: 2 * cfg.StatsTimeout,
			AllowedOrigin:  cfg.AllowedOrigin,
			Logger:         logger,
		})
	}),
	fx.Invoke(func(lc fx.Lifecycle, h *Handler) {
		lc.Append(fx.Hook{
			OnStop: func(context.Context) error {
				h.Close()
				return nil
			},
		})
	}),
)
