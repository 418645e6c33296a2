package health

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

type Response struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, Response{
		Status:  "ok",
		Message: "Container monitor is running",
	})
}

var Module = fx.Options(
	fx.Provide(NewHandler),
)
