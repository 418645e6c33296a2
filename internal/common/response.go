package common

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func SendSuccess(c echo.Context, data any) error {
	return c.JSON(http.StatusOK, data)
}

func SendError(c echo.Context, statusCode int, message string) error {
	return c.JSON(statusCode, map[string]string{
		"error": message,
	})
}

func SendInternalError(c echo.Context, message string) error {
	return SendError(c, http.StatusInternalServerError, message)
}

func SendUnavailable(c echo.Context, message string) error {
	return SendError(c, http.StatusServiceUnavailable, message)
}

// SendServiceError reports an aggregate-level failure in the shape the
// dashboard expects: {"message": "..."}.
func SendServiceError(c echo.Context, message string) error {
	return c.JSON(http.StatusInternalServerError, map[string]string{
		"message": message,
	})
}
