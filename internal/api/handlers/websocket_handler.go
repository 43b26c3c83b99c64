package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// MountWebSocket hands /ws and everything below it to the websocket router,
// which does its own authentication during the handshake.
func MountWebSocket(e *echo.Echo, ws http.Handler) {
	handler := echo.WrapHandler(ws)
	e.GET("/ws", handler)
	e.GET("/ws/*", handler)
}

// Health reports liveness.
func Health(service string) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":    "ok",
			"service":   service,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}
