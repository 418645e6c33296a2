package logging

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const RequestIDHeader = "X-Request-ID"

// quietPaths are polled constantly or held open for minutes; logging them
// would drown everything else.
var quietPaths = map[string]bool{
	"/":                           true,
	"/health":                     true,
	"/api/container-stats-stream": true,
	"/api/metrics-stream":         true,
}

func RequestLoggingMiddleware(logger *Logger, enabled bool) echo.MiddlewareFunc {
	log := logger.Component("http")

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			requestID := c.Request().Header.Get(RequestIDHeader)
			if requestID == "" {
				requestID = uuid.New().String()
				c.Request().Header.Set(RequestIDHeader, requestID)
			}
			c.Response().Header().Set(RequestIDHeader, requestID)

			if !enabled {
				return next(c)
			}

			start := time.Now()
			err := next(c)

			path := c.Request().URL.Path
			if quietPaths[path] && err == nil {
				return nil
			}

			status := c.Response().Status
			fields := []zap.Field{
				zap.String("request_id", requestID),
				zap.String("method", c.Request().Method),
				zap.String("path", path),
				zap.String("source_ip", c.RealIP()),
				zap.Int("status_code", status),
				zap.Int64("response_size", c.Response().Size),
				zap.Float64("latency_ms", float64(time.Since(start).Microseconds())/1000.0),
			}

			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok && status == 0 {
					fields = append(fields, zap.Int("http_error_code", he.Code))
				}
				fields = append(fields, zap.Error(err))
				log.Warn("Request failed", fields...)
				return err
			}

			if status >= http.StatusInternalServerError {
				log.Warn("Request completed with server error", fields...)
				return nil
			}

			log.Info("Request completed", fields...)
			return nil
		}
	}
}
