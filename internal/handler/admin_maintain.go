package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"mcw-proxy/internal/snapshot"
	"mcw-proxy/internal/store"
)

// maintenanceRequest carries window times as GMT+8 wall time.
type maintenanceRequest struct {
	ID              flexInt  `json:"id"`
	MaintenanceMode flexBool `json:"maintenance_mode"`
	Title           string   `json:"title"`
	Subtitle        string   `json:"subtitle"`
	Message         string   `json:"message"`
	StartTime       string   `json:"start_time"`
	EndTime         string   `json:"end_time"`
	Timezone        string   `json:"timezone"`
	Icon            string   `json:"icon"`
	TextAlign       string   `json:"text_align"`
	ThemeColor      string   `json:"theme_color"`
	BackgroundColor string   `json:"background_color"`
}

func (r maintenanceRequest) row() (store.Maintenance, error) {
	start, err := store.AdminToUTC(r.StartTime)
	if err != nil {
		return store.Maintenance{}, fail(http.StatusBadRequest, "Invalid start_time", err)
	}
	end, err := store.AdminToUTC(r.EndTime)
	if err != nil {
		return store.Maintenance{}, fail(http.StatusBadRequest, "Invalid end_time", err)
	}
	if end < start {
		return store.Maintenance{}, fail(http.StatusBadRequest, "end_time is before start_time", nil)
	}
	return store.Maintenance{
		ID:              int64(r.ID),
		MaintenanceMode: bool(r.MaintenanceMode),
		Title:           r.Title,
		Subtitle:        r.Subtitle,
		Message:         r.Message,
		StartTime:       start,
		EndTime:         end,
		Timezone:        r.Timezone,
		Icon:            r.Icon,
		TextAlign:       r.TextAlign,
		ThemeColor:      r.ThemeColor,
		BackgroundColor: r.BackgroundColor,
	}, nil
}

// adminView renders stored UTC times as GMT+8 wall time.
func adminView(m store.Maintenance) store.Maintenance {
	m.StartTime = store.UTCToAdmin(m.StartTime)
	m.EndTime = store.UTCToAdmin(m.EndTime)
	return m
}

// ListMaintenance returns every window, newest first, in GMT+8.
func (h *AdminHandler) ListMaintenance(c echo.Context) error {
	rows, err := h.db.ListMaintenance(c.Request().Context())
	if err != nil {
		return fail(http.StatusInternalServerError, "Failed to fetch maintenance records", err)
	}
	for i := range rows {
		rows[i] = adminView(rows[i])
	}
	return c.JSON(http.StatusOK, map[string][]store.Maintenance{"maintenance": rows})
}

// CreateMaintenance records a new window.
func (h *AdminHandler) CreateMaintenance(c echo.Context) error {
	var req maintenanceRequest
	if err := decodeBody(c, &req); err != nil {
		return err
	}
	m, err := req.row()
	if err != nil {
		return err
	}
	id, err := h.db.CreateMaintenance(c.Request().Context(), m)
	if err != nil {
		return fail(http.StatusInternalServerError, "Failed to create maintenance config", err)
	}
	return c.JSON(http.StatusCreated, messageResponse{Message: "Maintenance setting created", ID: id})
}

// GetMaintenance returns one window in GMT+8.
func (h *AdminHandler) GetMaintenance(c echo.Context) error {
	id, err := requireID(c)
	if err != nil {
		return err
	}
	m, err := h.db.MaintenanceByID(c.Request().Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		return fail(http.StatusNotFound, "Not found", nil)
	}
	if err != nil {
		return fail(http.StatusInternalServerError, "Failed to fetch record", err)
	}
	return c.JSON(http.StatusOK, adminView(m))
}

// UpdateMaintenance overwrites a window.
func (h *AdminHandler) UpdateMaintenance(c echo.Context) error {
	var req maintenanceRequest
	if err := decodeBody(c, &req); err != nil {
		return err
	}
	if req.ID <= 0 {
		return fail(http.StatusBadRequest, "Missing ID", nil)
	}
	m, err := req.row()
	if err != nil {
		return err
	}
	if err := h.db.SaveMaintenance(c.Request().Context(), m); err != nil {
		return fail(http.StatusInternalServerError, "Failed to update maintenance entry", err)
	}
	return message(c, http.StatusOK, "Maintenance entry updated successfully")
}

// ActivateMaintenance switches maintenance mode on for one window and
// exports it to maintenance.json.
func (h *AdminHandler) ActivateMaintenance(c echo.Context) error {
	id, err := requireID(c)
	if err != nil {
		return err
	}

	m, err := h.db.ActivateMaintenance(c.Request().Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		return fail(http.StatusNotFound, "Record not found", nil)
	}
	if err != nil {
		return fail(http.StatusInternalServerError, "Failed to activate maintenance", err)
	}

	snap := snapshot.FromMaintenance(m)
	snap.MaintenanceMode = true
	if err := h.snapshots.Write(snapshot.MaintenanceFile, snap); err != nil {
		return fail(http.StatusInternalServerError, "Failed to activate maintenance", err)
	}

	h.logger.Info("maintenance activated", "id", id)
	return message(c, http.StatusOK, "Activated and exported successfully")
}
