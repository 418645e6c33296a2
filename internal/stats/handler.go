package stats

import (
	"github.com/tech-arch1tect/berth-monitor/internal/common"

	"github.com/labstack/echo/v4"
)

type Handler struct {
	statsService *Service
}

func NewHandler(statsService *Service) *Handler {
	return &Handler{
		statsService: statsService,
	}
}

func (h *Handler) GetContainerStats(c echo.Context) error {
	stats, err := h.statsService.FetchContainerStats(c.Request().Context())
	if err != nil {
		return common.SendServiceError(c, "Error fetching container stats")
	}

	return common.SendSuccess(c, stats)
}
