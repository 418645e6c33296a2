package promquery

import (
	"context"
	"fmt"
	"time"

	"github.com/tech-arch1tect/berth-monitor/internal/logging"

	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
	"go.uber.org/zap"
)

// Sample is one instantaneous result of a query.
type Sample struct {
	Labels    map[string]string
	Timestamp time.Time
	Value     float64
}

type Querier interface {
	InstantQuery(ctx context.Context, expr string) ([]Sample, error)
}

type Client struct {
	api    v1.API
	logger *logging.Logger
}

func NewClient(address string, logger *logging.Logger) (*Client, error) {
	c, err := api.NewClient(api.Config{Address: address})
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus client for %s: %w", address, err)
	}

	return &Client{
		api:    v1.NewAPI(c),
		logger: logger.Component("promquery"),
	}, nil
}

func (c *Client) InstantQuery(ctx context.Context, expr string) ([]Sample, error) {
	c.logger.Debug("Executing Prometheus query", zap.String("query", expr))

	result, warnings, err := c.api.Query(ctx, expr, time.Now())
	if err != nil {
		return nil, fmt.Errorf("prometheus query %q failed: %w", expr, err)
	}

	for _, w := range warnings {
		c.logger.Warn("Prometheus query warning",
			zap.String("query", expr),
			zap.String("warning", w),
		)
	}

	return toSamples(result)
}

func toSamples(result model.Value) ([]Sample, error) {
	switch v := result.(type) {
	case model.Vector:
		samples := make([]Sample, 0, len(v))
		for _, s := range v {
			labels := make(map[string]string, len(s.Metric))
			for name, value := range s.Metric {
				labels[string(name)] = string(value)
			}
			samples = append(samples, Sample{
				Labels:    labels,
				Timestamp: s.Timestamp.Time(),
				Value:     float64(s.Value),
			})
		}
		return samples, nil
	case *model.Scalar:
		return []Sample{{
			Labels:    map[string]string{},
			Timestamp: v.Timestamp.Time(),
			Value:     float64(v.Value),
		}}, nil
	case nil:
		return []Sample{}, nil
	default:
		return nil, fmt.Errorf("unsupported result type %s for instant query", result.Type())
	}
}
