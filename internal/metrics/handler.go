package metrics

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type Handler struct {
	exposition http.Handler
}

func NewHandler(exporter *Exporter) *Handler {
	return &Handler{
		exposition: exporter.HTTPHandler(),
	}
}

func (h *Handler) Metrics(c echo.Context) error {
	h.exposition.ServeHTTP(c.Response(), c.Request())
	return nil
}
