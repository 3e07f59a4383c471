package handler

import (
	"log/slog"

	"mcw-proxy/internal/auth"
	"mcw-proxy/internal/snapshot"
	"mcw-proxy/internal/store"
)

// AdminHandler serves the /mcw/api/v2 admin namespaces. Every operation
// except user login runs behind bearer authentication.
type AdminHandler struct {
	db        *store.Store
	tokens    *auth.Tokens
	snapshots *snapshot.Store
	logger    *slog.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(db *store.Store, tokens *auth.Tokens, snapshots *snapshot.Store, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		db:        db,
		tokens:    tokens,
		snapshots: snapshots,
		logger:    logger.With("component", "admin"),
	}
}
