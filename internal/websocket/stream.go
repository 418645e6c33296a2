package websocket

import (
	"context"
	"fmt"
	"time"

	"github.com/tech-arch1tect/berth-monitor/internal/logging"

	"go.uber.org/zap"
)

const defaultComputeTimeout = 10 * time.Second

// Stream pushes one computed frame immediately and then one per tick until
// its context is cancelled. Every connection runs its own Stream.
type Stream struct {
	name           string
	compute        ComputeFunc
	interval       time.Duration
	computeTimeout time.Duration
	newTicker      TickerFactory
	logger         *logging.Logger
}

type frameResult struct {
	payload any
	err     error
}

func NewStream(name string, compute ComputeFunc, interval, computeTimeout time.Duration, newTicker TickerFactory, logger *logging.Logger) *Stream {
	if newTicker == nil {
		newTicker = NewTimeTicker
	}
	if interval <= 0 {
		interval = time.Second
	}
	if computeTimeout <= 0 {
		computeTimeout = defaultComputeTimeout
	}

	return &Stream{
		name:           name,
		compute:        compute,
		interval:       interval,
		computeTimeout: computeTimeout,
		newTicker:      newTicker,
		logger:         logger.With(zap.String("stream", name)),
	}
}

// Run blocks until ctx is cancelled. The ticker is stopped before Run
// returns, even while a computation is still outstanding.
func (s *Stream) Run(ctx context.Context, w FrameWriter) {
	ticker := s.newTicker(s.interval)
	defer ticker.Stop()

	s.push(ctx, w)

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("Stream stopped")
			return
		case <-ticker.C():
			s.push(ctx, w)
		}
	}
}

func (s *Stream) push(ctx context.Context, w FrameWriter) {
	if ctx.Err() != nil {
		return
	}

	// The computation outlives a closed connection but not computeTimeout.
	computeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.computeTimeout)
	result := make(chan frameResult, 1)

	go func() {
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				result <- frameResult{err: fmt.Errorf("panic while computing frame: %v", r)}
			}
		}()

		payload, err := s.compute(computeCtx)
		result <- frameResult{payload: payload, err: err}
	}()

	var res frameResult
	select {
	case <-ctx.Done():
		s.logger.Debug("Connection closed while computing frame, result will be discarded")
		return
	case res = <-result:
	}

	if ctx.Err() != nil {
		s.logger.Debug("Discarding frame computed after close")
		return
	}

	payload := res.payload
	if res.err != nil {
		s.logger.Warn("Failed to compute frame", zap.Error(res.err))
		payload = ErrorFrame{Error: res.err.Error()}
	}

	if err := w.WriteJSON(payload); err != nil {
		s.logger.Warn("Failed to send frame", zap.Error(err))
	}
}
