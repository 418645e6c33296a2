package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/tech-arch1tect/berth-monitor/config"
	"github.com/tech-arch1tect/berth-monitor/internal/docker"
	"github.com/tech-arch1tect/berth-monitor/internal/health"
	"github.com/tech-arch1tect/berth-monitor/internal/logging"
	"github.com/tech-arch1tect/berth-monitor/internal/metrics"
	"github.com/tech-arch1tect/berth-monitor/internal/promquery"
	"github.com/tech-arch1tect/berth-monitor/internal/stats"
	"github.com/tech-arch1tect/berth-monitor/internal/websocket"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	fx.New(
		config.Module,
		logging.Module,
		docker.Module,
		promquery.Module,
		metrics.Module,
		stats.Module,
		websocket.Module,
		health.Module,
		fx.WithLogger(func(logger *logging.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger.GetZap().Named("fx")}
		}),
		fx.Provide(NewEcho),
		fx.Invoke(RegisterRoutes),
		fx.Invoke(StartServer),
	).Run()
}

func NewEcho(cfg *config.Config, logger *logging.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: []string{cfg.AllowedOrigin},
		AllowMethods: []string{http.MethodGet, http.MethodOptions},
	}))
	e.Use(logging.RequestLoggingMiddleware(logger, cfg.RequestLogEnabled))
	return e
}

func RegisterRoutes(
	e *echo.Echo,
	statsHandler *stats.Handler,
	metricsHandler *metrics.Handler,
	promHandler *promquery.Handler,
	wsHandler *websocket.Handler,
	healthHandler *health.Handler,
) {
	e.GET("/", healthHandler.Health)
	e.GET("/health", healthHandler.Health)

	api := e.Group("/api")
	api.GET("/container-stats", statsHandler.GetContainerStats)
	api.GET("/container-stats-stream", wsHandler.ContainerStatsStream)
	api.GET("/metrics", metricsHandler.Metrics)
	api.GET("/metrics/advanced", promHandler.GetAdvanced)
	api.GET("/metrics-stream", wsHandler.MetricsStream)
}

func StartServer(lc fx.Lifecycle, shutdowner fx.Shutdowner, e *echo.Echo, cfg *config.Config, logger *logging.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				logger.Info("Server listening", zap.String("port", cfg.Port))
				if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("Server failed to start", zap.Error(err))
					_ = shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return e.Shutdown(ctx)
		},
	})
}
