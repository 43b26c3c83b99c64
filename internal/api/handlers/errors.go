package handlers

import (
	"errors"
	"net/http"

	"auction-house/internal/domain"

	"github.com/labstack/echo/v4"
)

// mapError maps service errors to an HTTP status and the message shown to
// the client. Persistence and unknown errors are not echoed back.
func mapError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, domain.ErrStateConflict):
		return http.StatusConflict, err.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func (h *AuctionHandler) respondError(c echo.Context, op string, err error) error {
	status, message := mapError(err)
	if status == http.StatusInternalServerError {
		h.log.Error("Request failed", "op", op, "path", c.Request().URL.Path, "error", err)
	} else {
		h.log.Debug("Request rejected", "op", op, "status", status, "error", err)
	}
	return c.JSON(status, map[string]string{"error": message})
}

func badRequest(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, map[string]string{"error": message})
}
