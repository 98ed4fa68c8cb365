// Package http exposes the intake pipeline over echo handlers. Binding and
// validation happen here; all behavior lives in the usecase layer.
package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Handler serves the endpoints that belong to no single pipeline stage.
type Handler struct {
	storeBackend string
}

func NewHandler(storeBackend string) *Handler {
	return &Handler{storeBackend: storeBackend}
}

// Health reports liveness plus the configured durable-store backend, so an
// operator can tell a redis profile from an embedded-sqlite one at a glance.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":        "ok",
		"store_backend": h.storeBackend,
		"time":          time.Now().UTC().Format(time.RFC3339Nano),
	})
}
