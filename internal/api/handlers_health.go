// handlers_health.go - Liveness endpoint for the import daemon
package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// HealthHandlerImpl implements the HealthHandler interface
type HealthHandlerImpl struct {
	version   string
	startedAt time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(version string) HealthHandler {
	return &HealthHandlerImpl{
		version:   version,
		startedAt: time.Now(),
	}
}

// HandleHealth reports liveness, the running version and how long the
// daemon has been up. The dashboard polls this to decide whether the
// importer sidecar is reachable before offering the import view.
func (h *HealthHandlerImpl) HandleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":        "ok",
		"service":       "portfolio-importer",
		"version":       h.version,
		"uptimeSeconds": int64(time.Since(h.startedAt).Seconds()),
	})
}
