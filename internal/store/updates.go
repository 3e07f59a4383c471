package store

import (
	"context"
	"fmt"
	"strings"
)

// AppUpdate describes a client release and whether it must be installed.
type AppUpdate struct {
	ID             int64  `db:"id" json:"id"`
	UpdateRequired bool   `db:"update_required" json:"update_required"`
	LatestVersion  string `db:"latest_version" json:"latest_version"`
	MinimumVersion string `db:"minimum_version" json:"minimum_version"`
	UpdateType     string `db:"update_type" json:"update_type"`
	UpdateMessage  string `db:"update_message" json:"update_message"`
	UpdateURL      string `db:"update_url" json:"update_url"`
	Changelog      string `db:"changelog" json:"changelog"`
	IsActive       bool   `db:"is_active" json:"is_active"`
	CreatedAt      string `db:"created_at" json:"created_at"`
}

// ChangelogLines splits the changelog into lines. Rows written by older
// tooling hold a literal backslash-n instead of a newline; both separate
// lines.
func (u AppUpdate) ChangelogLines() []string {
	if u.Changelog == "" {
		return []string{}
	}
	text := strings.ReplaceAll(u.Changelog, `\n`, "\n")
	return strings.Split(text, "\n")
}

const updateColumns = `id, update_required, COALESCE(latest_version, '') AS latest_version,
	COALESCE(minimum_version, '') AS minimum_version, COALESCE(update_type, '') AS update_type,
	COALESCE(update_message, '') AS update_message, COALESCE(update_url, '') AS update_url,
	COALESCE(changelog, '') AS changelog, is_active, COALESCE(created_at, '') AS created_at`

// ListUpdates returns all updates, newest first.
func (s *Store) ListUpdates(ctx context.Context) ([]AppUpdate, error) {
	updates := []AppUpdate{}
	if err := s.db.SelectContext(ctx, &updates, `SELECT `+updateColumns+` FROM app_updates ORDER BY id DESC`); err != nil {
		return nil, fmt.Errorf("list updates: %w", err)
	}
	return updates, nil
}

// UpdateByID returns one update.
func (s *Store) UpdateByID(ctx context.Context, id int64) (AppUpdate, error) {
	var u AppUpdate
	if err := s.db.GetContext(ctx, &u, `SELECT `+updateColumns+` FROM app_updates WHERE id = ?`, id); err != nil {
		return AppUpdate{}, fmt.Errorf("update %d: %w", id, notFound(err))
	}
	return u, nil
}

// LatestUpdate returns the most recently created update.
func (s *Store) LatestUpdate(ctx context.Context) (AppUpdate, error) {
	var u AppUpdate
	if err := s.db.GetContext(ctx, &u, `SELECT `+updateColumns+` FROM app_updates ORDER BY id DESC LIMIT 1`); err != nil {
		return AppUpdate{}, fmt.Errorf("latest update: %w", notFound(err))
	}
	return u, nil
}

// CreateUpdate inserts an update and returns its id.
func (s *Store) CreateUpdate(ctx context.Context, u AppUpdate) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO app_updates
		(update_required, latest_version, minimum_version, update_type, update_message, update_url, changelog, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?)`,
		u.UpdateRequired, u.LatestVersion, u.MinimumVersion, u.UpdateType,
		u.UpdateMessage, u.UpdateURL, u.Changelog, s.timestamp(),
	)
	if err != nil {
		return 0, fmt.Errorf("create update: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("create update: %w", err)
	}
	return id, nil
}

// SaveUpdate overwrites the editable fields of an update.
func (s *Store) SaveUpdate(ctx context.Context, u AppUpdate) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE app_updates SET
		update_required = ?, latest_version = ?, minimum_version = ?,
		update_type = ?, update_message = ?, update_url = ?, changelog = ?
		WHERE id = ?`,
		u.UpdateRequired, u.LatestVersion, u.MinimumVersion,
		u.UpdateType, u.UpdateMessage, u.UpdateURL, u.Changelog, u.ID,
	)
	if err != nil {
		return fmt.Errorf("save update %d: %w", u.ID, err)
	}
	return nil
}

// ActivateUpdate marks id as the only active update and returns it. The
// statements run without a transaction: a failure after the first leaves
// every row inactive.
func (s *Store) ActivateUpdate(ctx context.Context, id int64) (AppUpdate, error) {
	if _, err := s.db.ExecContext(ctx, `UPDATE app_updates SET is_active = 0`); err != nil {
		return AppUpdate{}, fmt.Errorf("deactivate updates: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE app_updates SET is_active = 1 WHERE id = ?`, id); err != nil {
		return AppUpdate{}, fmt.Errorf("activate update %d: %w", id, err)
	}
	return s.UpdateByID(ctx, id)
}
