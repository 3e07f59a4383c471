package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"mcw-proxy/internal/config"
)

// Version is a string type for dependency injection of the build version.
type Version string

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves health and status endpoints.
type HealthHandler struct {
	cfg     *config.Config
	version Version
	db      Pinger
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(cfg *config.Config, v Version, db Pinger) *HealthHandler {
	return &HealthHandler{cfg: cfg, version: v, db: db}
}

// Healthz returns a simple OK response for liveness probes.
func (h *HealthHandler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Status reports the build, the upstream target and database reachability.
// An unreachable database degrades the status to 503.
func (h *HealthHandler) Status(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	code, status, database := http.StatusOK, "ok", "ok"
	if err := h.db.Ping(ctx); err != nil {
		code, status, database = http.StatusServiceUnavailable, "degraded", "unreachable"
	}

	return c.JSON(code, map[string]string{
		"status":       status,
		"version":      string(h.version),
		"upstream_url": h.cfg.Upstream.Target,
		"database":     database,
	})
}
