package logging

import (
	"context"

	"github.com/tech-arch1tect/berth-monitor/config"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Options(
	fx.Provide(NewLoggerFromConfig),
	fx.Invoke(RegisterLoggerShutdown),
)

func NewLoggerFromConfig(cfg *config.Config) (*Logger, error) {
	logger, err := NewLogger(cfg.LogLevel)
	if err != nil {
		// unknown level: keep running at info rather than refusing to start
		fallback, fallbackErr := NewLogger("info")
		if fallbackErr != nil {
			return nil, fallbackErr
		}
		fallback.Warn("Invalid log level, using info", zap.String("log_level", cfg.LogLevel))
		return fallback, nil
	}
	return logger, nil
}

func RegisterLoggerShutdown(lc fx.Lifecycle, logger *Logger) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			// stdout sync returns EINVAL on some platforms
			_ = logger.Sync()
			return nil
		},
	})
}
