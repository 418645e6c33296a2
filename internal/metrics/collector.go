package metrics

import (
	"context"
	"time"

	"github.com/tech-arch1tect/berth-monitor/internal/logging"
	"github.com/tech-arch1tect/berth-monitor/internal/stats"

	"go.uber.org/zap"
)

type StatsFetcher interface {
	FetchContainerStats(ctx context.Context) (*stats.Response, error)
}

// Collector re-runs the aggregate on a fixed interval so the exported gauges
// stay current when no dashboard is connected.
type Collector struct {
	fetcher  StatsFetcher
	interval time.Duration
	logger   *logging.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewCollector(fetcher StatsFetcher, interval time.Duration, logger *logging.Logger) *Collector {
	ctx, cancel := context.WithCancel(context.Background())
	return &Collector{
		fetcher:  fetcher,
		interval: interval,
		logger:   logger.Component("collector"),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

func (c *Collector) Start() {
	if c.interval <= 0 {
		c.logger.Info("Background metrics collection disabled")
		close(c.done)
		return
	}

	c.logger.Info("Starting background metrics collection", zap.Duration("interval", c.interval))
	go c.run()
}

func (c *Collector) Stop() {
	c.cancel()
	<-c.done
	c.logger.Info("Background metrics collection stopped")
}

func (c *Collector) run() {
	defer close(c.done)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.collect()
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.collect()
		}
	}
}

func (c *Collector) collect() {
	if _, err := c.fetcher.FetchContainerStats(c.ctx); err != nil && c.ctx.Err() == nil {
		c.logger.Warn("Background collection failed", zap.Error(err))
	}
}
