package promquery

import (
	"github.com/tech-arch1tect/berth-monitor/config"
	"github.com/tech-arch1tect/berth-monitor/internal/logging"
	"github.com/tech-arch1tect/berth-monitor/internal/stats"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Options(
	fx.Provide(NewServiceFromConfig),
	fx.Provide(NewCPURateSource),
	fx.Provide(NewHandler),
)

func NewServiceFromConfig(cfg *config.Config, logger *logging.Logger) (*Service, error) {
	if cfg.PrometheusURL == "" {
		logger.Info("Metrics source disabled, /api/metrics/advanced will report unavailable")
		return NewService(nil, cfg.CPUQuery, logger), nil
	}

	client, err := NewClient(cfg.PrometheusURL, logger)
	if err != nil {
		return nil, err
	}

	logger.Info("Metrics source configured",
		zap.String("prometheus_url", cfg.PrometheusURL),
		zap.String("cpu_query", cfg.CPUQuery),
	)
	return NewService(client, cfg.CPUQuery, logger), nil
}

// NewCPURateSource exposes the service to the aggregator only when a metrics
// source is configured.
func NewCPURateSource(s *Service) stats.CPURateSource {
	if !s.Configured() {
		return nil
	}
	return s
}
