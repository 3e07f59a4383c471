package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"mcw-proxy/internal/snapshot"
	"mcw-proxy/internal/store"
)

// gameRequest uses the camelCase keys the admin panel sends.
type gameRequest struct {
	ID           flexInt `json:"id"`
	CategoryID   flexInt `json:"categoryId"`
	DisplayOrder flexInt `json:"displayOrder"`
	Name         string  `json:"name"`
	DisplayName  string  `json:"displayName"`
}

func (r gameRequest) row() store.Game {
	return store.Game{
		ID:           int64(r.ID),
		CategoryID:   int64(r.CategoryID),
		DisplayOrder: int64(r.DisplayOrder),
		Name:         r.Name,
		DisplayName:  r.DisplayName,
	}
}

// ListGames returns every category in display order.
func (h *AdminHandler) ListGames(c echo.Context) error {
	games, err := h.db.ListGames(c.Request().Context())
	if err != nil {
		return fail(http.StatusInternalServerError, "Failed to fetch games", err)
	}
	return c.JSON(http.StatusOK, map[string][]store.Game{"games": games})
}

// CreateGame adds a category and refreshes game.json.
func (h *AdminHandler) CreateGame(c echo.Context) error {
	var req gameRequest
	if err := decodeBody(c, &req); err != nil {
		return err
	}
	id, err := h.db.CreateGame(c.Request().Context(), req.row())
	if err != nil {
		return fail(http.StatusInternalServerError, "Failed to create game", err)
	}
	h.exportGames(c.Request().Context())
	return c.JSON(http.StatusCreated, messageResponse{Message: "Game created successfully", ID: id})
}

// GetGame returns one category.
func (h *AdminHandler) GetGame(c echo.Context) error {
	id, err := requireID(c)
	if err != nil {
		return err
	}
	g, err := h.db.GameByID(c.Request().Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		return fail(http.StatusNotFound, "Not found", nil)
	}
	if err != nil {
		return fail(http.StatusInternalServerError, "Failed to fetch record", err)
	}
	return c.JSON(http.StatusOK, g)
}

// UpdateGame overwrites a category and refreshes game.json.
func (h *AdminHandler) UpdateGame(c echo.Context) error {
	var req gameRequest
	if err := decodeBody(c, &req); err != nil {
		return err
	}
	if req.ID <= 0 {
		return fail(http.StatusBadRequest, "Missing ID", nil)
	}
	if err := h.db.SaveGame(c.Request().Context(), req.row()); err != nil {
		return fail(http.StatusInternalServerError, "Failed to update game", err)
	}
	h.exportGames(c.Request().Context())
	return message(c, http.StatusOK, "Game updated successfully")
}

// exportGames rewrites game.json from the database. The change is already
// committed, so failures are only logged.
func (h *AdminHandler) exportGames(ctx context.Context) {
	games, err := h.db.ListGames(ctx)
	if err == nil {
		err = h.snapshots.Write(snapshot.GameFile, snapshot.FromGames(games))
	}
	if err != nil {
		h.logger.Error("export game snapshot", "err", err)
	}
}
