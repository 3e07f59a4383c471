package handler

import (
	"errors"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"mcw-proxy/internal/snapshot"
	"mcw-proxy/internal/store"
)

// LocalHandler answers the client info endpoints without calling upstream:
// the ping probe, the snapshot files and their database-backed v2 forms.
type LocalHandler struct {
	snapshots *snapshot.Store
	db        *store.Store
	logger    *slog.Logger
}

// NewLocalHandler creates a LocalHandler.
func NewLocalHandler(snapshots *snapshot.Store, db *store.Store, logger *slog.Logger) *LocalHandler {
	return &LocalHandler{
		snapshots: snapshots,
		db:        db,
		logger:    logger.With("component", "local_handler"),
	}
}

type pingResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Ping is the client reachability probe.
func (h *LocalHandler) Ping(c echo.Context) error {
	return c.JSON(http.StatusOK, pingResponse{Code: 0, Message: "Hello world!"})
}

// Update serves update.json.
func (h *LocalHandler) Update(c echo.Context) error {
	return h.serveSnapshot(c, snapshot.UpdateFile, "Failed to load update details")
}

// Game serves game.json.
func (h *LocalHandler) Game(c echo.Context) error {
	return h.serveSnapshot(c, snapshot.GameFile, "Failed to load game categories")
}

// Maintenance serves maintenance.json.
func (h *LocalHandler) Maintenance(c echo.Context) error {
	return h.serveSnapshot(c, snapshot.MaintenanceFile, "Failed to load maintenance data")
}

func (h *LocalHandler) serveSnapshot(c echo.Context, name, readFailure string) error {
	data, err := h.snapshots.Read(name)
	switch {
	case err == nil:
		return c.JSONBlob(http.StatusOK, data)
	case errors.Is(err, snapshot.ErrInvalid):
		return fail(http.StatusInternalServerError, "Invalid JSON format in "+name, err)
	default:
		if errors.Is(err, fs.ErrNotExist) {
			h.logger.Warn("snapshot missing", "file", name)
		}
		return fail(http.StatusInternalServerError, readFailure, err)
	}
}

// UpdateV2 returns the newest app update from the database.
func (h *LocalHandler) UpdateV2(c echo.Context) error {
	u, err := h.db.LatestUpdate(c.Request().Context())
	if errors.Is(err, store.ErrNotFound) {
		return fail(http.StatusNotFound, "No update info found", nil)
	}
	if err != nil {
		return fail(http.StatusInternalServerError, "Failed to load update details", err)
	}
	return c.JSON(http.StatusOK, snapshot.FromUpdate(u))
}

// GameV2 returns the game categories from the database in display order.
func (h *LocalHandler) GameV2(c echo.Context) error {
	games, err := h.db.ListGames(c.Request().Context())
	if err != nil {
		return fail(http.StatusInternalServerError, "Failed to load game categories", err)
	}
	return c.JSON(http.StatusOK, snapshot.FromGames(games))
}

// MaintenanceV2 returns the newest maintenance window from the database.
func (h *LocalHandler) MaintenanceV2(c echo.Context) error {
	m, err := h.db.LatestMaintenance(c.Request().Context())
	if errors.Is(err, store.ErrNotFound) {
		return fail(http.StatusNotFound, "No maintenance config found", nil)
	}
	if err != nil {
		return fail(http.StatusInternalServerError, "Failed to load maintenance data", err)
	}
	return c.JSON(http.StatusOK, snapshot.FromMaintenance(m))
}
