package docker

import (
	"context"
	"time"

	"github.com/tech-arch1tect/berth-monitor/internal/logging"
	"github.com/tech-arch1tect/berth-monitor/internal/stats"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

const readyTimeout = 30 * time.Second

var Module = fx.Options(
	fx.Provide(NewClient),
	fx.Provide(func(c *Client) stats.RuntimeSource {
		return c
	}),
	fx.Invoke(registerLifecycle),
)

func registerLifecycle(lc fx.Lifecycle, c *Client, logger *logging.Logger) {
	ctx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				if err := c.WaitReady(ctx, readyTimeout); err != nil && ctx.Err() == nil {
					logger.Warn("Docker daemon unreachable, container stats will report errors until it is up",
						zap.Error(err),
					)
				}
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return c.Close()
		},
	})
}
