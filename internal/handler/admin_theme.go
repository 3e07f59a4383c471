package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"mcw-proxy/internal/store"
)

type themeRequest struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// ListThemes maps each theme type to its active asset URL.
func (h *AdminHandler) ListThemes(c echo.Context) error {
	themes, err := h.db.ActiveThemes(c.Request().Context())
	if err != nil {
		return fail(http.StatusInternalServerError, "Failed to fetch theme settings", err)
	}
	return c.JSON(http.StatusOK, map[string]map[string]string{"theme": themes})
}

// SaveTheme replaces the active asset of one theme type.
func (h *AdminHandler) SaveTheme(c echo.Context) error {
	var req themeRequest
	if err := decodeBody(c, &req); err != nil {
		return err
	}
	if req.URL == "" || !store.ThemeTypes[req.Type] {
		return fail(http.StatusBadRequest, "Invalid type or url", nil)
	}
	if _, err := h.db.SaveTheme(c.Request().Context(), req.Type, req.URL); err != nil {
		return fail(http.StatusInternalServerError, "Failed to save theme setting", err)
	}
	return message(c, http.StatusOK, "Theme type saved successfully")
}

// GetTheme returns one theme row.
func (h *AdminHandler) GetTheme(c echo.Context) error {
	id, err := requireID(c)
	if err != nil {
		return err
	}
	t, err := h.db.ThemeByID(c.Request().Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		return fail(http.StatusNotFound, "Not found", nil)
	}
	if err != nil {
		return fail(http.StatusInternalServerError, "Failed to fetch record", err)
	}
	return c.JSON(http.StatusOK, t)
}
