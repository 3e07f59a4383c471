package store

import (
	"context"
	"fmt"
)

// Theme is one themed asset (logo, background, auth screen).
type Theme struct {
	ID        int64  `db:"id" json:"id"`
	Type      string `db:"type" json:"type"`
	URL       string `db:"url" json:"url"`
	IsActive  bool   `db:"is_active" json:"is_active"`
	UpdatedAt string `db:"updated_at" json:"updated_at"`
}

// ThemeTypes are the accepted values of Theme.Type.
var ThemeTypes = map[string]bool{"logo": true, "bg": true, "auth": true}

const themeColumns = `id, type, url, is_active, COALESCE(updated_at, '') AS updated_at`

// ActiveThemes maps each theme type to the URL of its active asset. When a
// type has several active rows the newest wins.
func (s *Store) ActiveThemes(ctx context.Context) (map[string]string, error) {
	var rows []Theme
	if err := s.db.SelectContext(ctx, &rows, `SELECT `+themeColumns+` FROM theme_settings WHERE is_active = 1 ORDER BY id ASC`); err != nil {
		return nil, fmt.Errorf("list themes: %w", err)
	}
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.Type] = r.URL
	}
	return out, nil
}

// ThemeByID returns one theme row.
func (s *Store) ThemeByID(ctx context.Context, id int64) (Theme, error) {
	var t Theme
	if err := s.db.GetContext(ctx, &t, `SELECT `+themeColumns+` FROM theme_settings WHERE id = ?`, id); err != nil {
		return Theme{}, fmt.Errorf("theme %d: %w", id, notFound(err))
	}
	return t, nil
}

// SaveTheme retires the active asset of themeType and records url as the
// new one. It returns the new row id.
func (s *Store) SaveTheme(ctx context.Context, themeType, url string) (int64, error) {
	if _, err := s.db.ExecContext(ctx, `UPDATE theme_settings SET is_active = 0 WHERE type = ?`, themeType); err != nil {
		return 0, fmt.Errorf("retire theme %s: %w", themeType, err)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO theme_settings (type, url, is_active, updated_at) VALUES (?, ?, 1, ?)`,
		themeType, url, s.timestamp(),
	)
	if err != nil {
		return 0, fmt.Errorf("save theme %s: %w", themeType, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("save theme %s: %w", themeType, err)
	}
	return id, nil
}
