package promquery

import (
	"github.com/tech-arch1tect/berth-monitor/internal/common"

	"github.com/labstack/echo/v4"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service: service,
	}
}

func (h *Handler) GetAdvanced(c echo.Context) error {
	if !h.service.Configured() {
		return common.SendUnavailable(c, ErrNotConfigured.Error())
	}

	resp, err := h.service.ContainerCPU(c.Request().Context(), c.QueryParam("query"))
	if err != nil {
		return common.SendInternalError(c, err.Error())
	}

	return common.SendSuccess(c, resp)
}
