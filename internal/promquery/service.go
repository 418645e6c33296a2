package promquery

import (
	"context"
	"errors"

	"github.com/tech-arch1tect/berth-monitor/internal/logging"

	"go.uber.org/zap"
)

var ErrNotConfigured = errors.New("metrics source not configured")

const unknownContainer = "unknown"

type ContainerCPU struct {
	Container  string  `json:"container"`
	CPUPercent float64 `json:"cpuPercent"`
}

type Response struct {
	Containers []ContainerCPU `json:"containers"`
}

type Service struct {
	querier      Querier
	defaultQuery string
	logger       *logging.Logger
}

// NewService wraps querier; a nil querier yields a service that reports
// ErrNotConfigured for every call.
func NewService(querier Querier, defaultQuery string, logger *logging.Logger) *Service {
	return &Service{
		querier:      querier,
		defaultQuery: defaultQuery,
		logger:       logger.Component("promquery"),
	}
}

func (s *Service) Configured() bool {
	return s.querier != nil
}

// ContainerCPU runs expr (or the default CPU rate query) and turns each
// series into a container/percentage pair. Values are fractions of a core and
// are scaled by 100.
func (s *Service) ContainerCPU(ctx context.Context, expr string) (*Response, error) {
	if !s.Configured() {
		return nil, ErrNotConfigured
	}
	if expr == "" {
		expr = s.defaultQuery
	}

	samples, err := s.querier.InstantQuery(ctx, expr)
	if err != nil {
		s.logger.Error("Metrics query failed", zap.String("query", expr), zap.Error(err))
		return nil, err
	}

	resp := &Response{Containers: make([]ContainerCPU, 0, len(samples))}
	for _, sample := range samples {
		resp.Containers = append(resp.Containers, ContainerCPU{
			Container:  containerLabel(sample.Labels),
			CPUPercent: sample.Value * 100,
		})
	}

	return resp, nil
}

// ContainerCPURates returns the default query's percentages keyed by
// container name. Series without a container label are skipped.
func (s *Service) ContainerCPURates(ctx context.Context) (map[string]float64, error) {
	resp, err := s.ContainerCPU(ctx, "")
	if err != nil {
		return nil, err
	}

	rates := make(map[string]float64, len(resp.Containers))
	for _, c := range resp.Containers {
		if c.Container == unknownContainer {
			continue
		}
		rates[c.Container] += c.CPUPercent
	}
	return rates, nil
}

// containerLabel prefers the "container" label and falls back to cAdvisor's
// "name" label for plain docker containers.
func containerLabel(labels map[string]string) string {
	if name := labels["container"]; name != "" {
		return name
	}
	if name := labels["name"]; name != "" {
		return name
	}
	return unknownContainer
}
