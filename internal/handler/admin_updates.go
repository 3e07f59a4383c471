package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"mcw-proxy/internal/snapshot"
	"mcw-proxy/internal/store"
)

type updateRequest struct {
	ID             flexInt  `json:"id"`
	UpdateRequired flexBool `json:"update_required"`
	LatestVersion  string   `json:"latest_version"`
	MinimumVersion string   `json:"minimum_version"`
	UpdateType     string   `json:"update_type"`
	UpdateMessage  string   `json:"update_message"`
	UpdateURL      string   `json:"update_url"`
	Changelog      string   `json:"changelog"`
}

func (r updateRequest) row() store.AppUpdate {
	return store.AppUpdate{
		ID:             int64(r.ID),
		UpdateRequired: bool(r.UpdateRequired),
		LatestVersion:  r.LatestVersion,
		MinimumVersion: r.MinimumVersion,
		UpdateType:     r.UpdateType,
		UpdateMessage:  r.UpdateMessage,
		UpdateURL:      r.UpdateURL,
		Changelog:      r.Changelog,
	}
}

// ListUpdates returns every app update, newest first.
func (h *AdminHandler) ListUpdates(c echo.Context) error {
	updates, err := h.db.ListUpdates(c.Request().Context())
	if err != nil {
		return fail(http.StatusInternalServerError, "Failed to fetch updates", err)
	}
	return c.JSON(http.StatusOK, map[string][]store.AppUpdate{"updates": updates})
}

// CreateUpdate records a new app update.
func (h *AdminHandler) CreateUpdate(c echo.Context) error {
	var req updateRequest
	if err := decodeBody(c, &req); err != nil {
		return err
	}
	id, err := h.db.CreateUpdate(c.Request().Context(), req.row())
	if err != nil {
		return fail(http.StatusInternalServerError, "Failed to create update", err)
	}
	return c.JSON(http.StatusCreated, messageResponse{Message: "Update created successfully", ID: id})
}

// UpdateUpdate overwrites an app update.
func (h *AdminHandler) UpdateUpdate(c echo.Context) error {
	var req updateRequest
	if err := decodeBody(c, &req); err != nil {
		return err
	}
	if req.ID <= 0 {
		return fail(http.StatusBadRequest, "Missing ID", nil)
	}
	if err := h.db.SaveUpdate(c.Request().Context(), req.row()); err != nil {
		return fail(http.StatusInternalServerError, "Failed to update update", err)
	}
	return message(c, http.StatusOK, "Update modified successfully")
}

// GetUpdate returns one app update.
func (h *AdminHandler) GetUpdate(c echo.Context) error {
	id, err := requireID(c)
	if err != nil {
		return err
	}
	u, err := h.db.UpdateByID(c.Request().Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		return fail(http.StatusNotFound, "Not found", nil)
	}
	if err != nil {
		return fail(http.StatusInternalServerError, "Failed to fetch record", err)
	}
	return c.JSON(http.StatusOK, u)
}

// ActivateUpdate makes one update the active one and exports it to
// update.json. An activated update is always exported as required.
func (h *AdminHandler) ActivateUpdate(c echo.Context) error {
	id, err := requireID(c)
	if err != nil {
		return err
	}

	u, err := h.db.ActivateUpdate(c.Request().Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		return fail(http.StatusNotFound, "Record not found", nil)
	}
	if err != nil {
		return fail(http.StatusInternalServerError, "Failed to activate update", err)
	}

	snap := snapshot.FromUpdate(u)
	snap.UpdateRequired = true
	if err := h.snapshots.Write(snapshot.UpdateFile, snap); err != nil {
		return fail(http.StatusInternalServerError, "Failed to activate update", err)
	}

	h.logger.Info("update activated", "id", id, "version", u.LatestVersion)
	return message(c, http.StatusOK, "Activated and exported successfully")
}
