package websocket

import (
	"context"
	"time"
)

// ErrorFrame is pushed in place of a payload when a tick's computation
// fails. The stream keeps running afterwards.
type ErrorFrame struct {
	Error string `json:"error"`
}

// ComputeFunc produces one frame. The returned value is marshalled as JSON.
type ComputeFunc func(ctx context.Context) (any, error)

type FrameWriter interface {
	WriteJSON(v any) error
}

type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type TickerFactory func(d time.Duration) Ticker

type timeTicker struct {
	ticker *time.Ticker
}

func NewTimeTicker(d time.Duration) Ticker {
	return &timeTicker{ticker: time.NewTicker(d)}
}

func (t *timeTicker) C() <-chan time.Time {
	return t.ticker.C
}

func (t *timeTicker) Stop() {
	t.ticker.Stop()
}
