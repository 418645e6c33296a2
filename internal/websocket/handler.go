package websocket

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/tech-arch1tect/berth-monitor/internal/common"
	"github.com/tech-arch1tect/berth-monitor/internal/logging"
	"github.com/tech-arch1tect/berth-monitor/internal/promquery"
	"github.com/tech-arch1tect/berth-monitor/internal/stats"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const writeWait = 10 * time.Second

type StatsSource interface {
	FetchContainerStats(ctx context.Context) (*stats.Response, error)
}

type CPUSource interface {
	Configured() bool
	ContainerCPU(ctx context.Context, expr string) (*promquery.Response, error)
}

type Options struct {
	Stats    StatsSource
	CPU      CPUSource
	Interval time.Duration
	// ComputeTimeout bounds a single frame's computation.
	ComputeTimeout time.Duration
	AllowedOrigin  string
	NewTicker      TickerFactory
	Logger         *logging.Logger
}

type Handler struct {
	upgrader       websocket.Upgrader
	stats          StatsSource
	cpu            CPUSource
	interval       time.Duration
	computeTimeout time.Duration
	newTicker      TickerFactory
	logger         *logging.Logger
	ctx            context.Context
	cancel         context.CancelFunc
}

func NewHandler(opts Options) *Handler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Handler{
		upgrader: websocket.Upgrader{
			CheckOrigin: originChecker(opts.AllowedOrigin),
		},
		stats:          opts.Stats,
		cpu:            opts.CPU,
		interval:       opts.Interval,
		computeTimeout: opts.ComputeTimeout,
		newTicker:      opts.NewTicker,
		logger:         opts.Logger.Component("websocket"),
		ctx:            ctx,
		cancel:         cancel,
	}
}

// originChecker accepts requests without an Origin header, which browsers
// always send, so CLI clients are not rejected.
func originChecker(allowed string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || allowed == "*" {
			return true
		}
		return strings.EqualFold(origin, allowed)
	}
}

func (h *Handler) ContainerStatsStream(c echo.Context) error {
	compute := func(ctx context.Context) (any, error) {
		return h.stats.FetchContainerStats(ctx)
	}
	return h.serve(c, "container-stats", compute)
}

func (h *Handler) MetricsStream(c echo.Context) error {
	if !h.cpu.Configured() {
		return common.SendUnavailable(c, promquery.ErrNotConfigured.Error())
	}

	query := c.QueryParam("query")
	compute := func(ctx context.Context) (any, error) {
		return h.cpu.ContainerCPU(ctx, query)
	}
	return h.serve(c, "metrics", compute)
}

// Close ends every open stream.
func (h *Handler) Close() {
	h.cancel()
}

func (h *Handler) serve(c echo.Context, name string, compute ComputeFunc) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed",
			zap.String("stream", name),
			zap.Error(err))
		return nil
	}
	defer func() { _ = conn.Close() }()

	connID := uuid.NewString()
	logger := h.logger.With(zap.String("connection_id", connID))
	logger.Info("WebSocket client connected",
		zap.String("stream", name),
		zap.String("remote_addr", c.RealIP()))

	ctx, cancel := context.WithCancel(h.ctx)
	defer cancel()

	go readPump(conn, cancel, logger)

	NewStream(name, compute, h.interval, h.computeTimeout, h.newTicker, logger).Run(ctx, &connWriter{conn: conn})

	logger.Info("WebSocket client disconnected", zap.String("stream", name))
	return nil
}

// readPump drains client frames and cancels the stream once the
// connection is closed from either side.
func readPump(conn *websocket.Conn, cancel context.CancelFunc, logger *logging.Logger) {
	defer cancel()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logger.Warn("Unexpected WebSocket close error", zap.Error(err))
			}
			return
		}
	}
}

type connWriter struct {
	conn *websocket.Conn
}

func (w *connWriter) WriteJSON(v any) error {
	_ = w.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return w.conn.WriteJSON(v)
}
