package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// Maintenance is a scheduled maintenance window. StartTime and EndTime are
// UTC in the DateTime layout.
type Maintenance struct {
	ID              int64  `db:"id" json:"id"`
	MaintenanceMode bool   `db:"maintenance_mode" json:"maintenance_mode"`
	Title           string `db:"title" json:"title"`
	Subtitle        string `db:"subtitle" json:"subtitle"`
	Message         string `db:"message" json:"message"`
	StartTime       string `db:"start_time" json:"start_time"`
	EndTime         string `db:"end_time" json:"end_time"`
	Timezone        string `db:"timezone" json:"timezone"`
	Icon            string `db:"icon" json:"icon"`
	TextAlign       string `db:"text_align" json:"text_align"`
	ThemeColor      string `db:"theme_color" json:"theme_color"`
	BackgroundColor string `db:"background_color" json:"background_color"`
	IsActive        bool   `db:"is_active" json:"is_active"`
}

// Display defaults applied when a window is saved without them.
const (
	DefaultTextAlign       = "center"
	DefaultThemeColor      = "#000000"
	DefaultBackgroundColor = "#ffffff"
)

const maintenanceColumns = `id, maintenance_mode, COALESCE(title, '') AS title,
	COALESCE(subtitle, '') AS subtitle, COALESCE(message, '') AS message,
	start_time, end_time, COALESCE(timezone, '') AS timezone, COALESCE(icon, '') AS icon,
	COALESCE(text_align, '') AS text_align, COALESCE(theme_color, '') AS theme_color,
	COALESCE(background_color, '') AS background_color, is_active`

func (m *Maintenance) applyDefaults() {
	if m.TextAlign == "" {
		m.TextAlign = DefaultTextAlign
	}
	if m.ThemeColor == "" {
		m.ThemeColor = DefaultThemeColor
	}
	if m.BackgroundColor == "" {
		m.BackgroundColor = DefaultBackgroundColor
	}
}

// ListMaintenance returns all windows, newest first.
func (s *Store) ListMaintenance(ctx context.Context) ([]Maintenance, error) {
	rows := []Maintenance{}
	if err := s.db.SelectContext(ctx, &rows, `SELECT `+maintenanceColumns+` FROM maintenance_settings ORDER BY id DESC`); err != nil {
		return nil, fmt.Errorf("list maintenance: %w", err)
	}
	return rows, nil
}

// MaintenanceByID returns one window.
func (s *Store) MaintenanceByID(ctx context.Context, id int64) (Maintenance, error) {
	var m Maintenance
	if err := s.db.GetContext(ctx, &m, `SELECT `+maintenanceColumns+` FROM maintenance_settings WHERE id = ?`, id); err != nil {
		return Maintenance{}, fmt.Errorf("maintenance %d: %w", id, notFound(err))
	}
	return m, nil
}

// LatestMaintenance returns the most recently created window.
func (s *Store) LatestMaintenance(ctx context.Context) (Maintenance, error) {
	var m Maintenance
	if err := s.db.GetContext(ctx, &m, `SELECT `+maintenanceColumns+` FROM maintenance_settings ORDER BY id DESC LIMIT 1`); err != nil {
		return Maintenance{}, fmt.Errorf("latest maintenance: %w", notFound(err))
	}
	return m, nil
}

// CreateMaintenance inserts a window and returns its id. Times must already
// be converted to UTC.
func (s *Store) CreateMaintenance(ctx context.Context, m Maintenance) (int64, error) {
	m.applyDefaults()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO maintenance_settings
		(maintenance_mode, title, subtitle, message, start_time, end_time, timezone, icon, text_align, theme_color, background_color, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)`,
		m.MaintenanceMode, m.Title, m.Subtitle, m.Message, m.StartTime, m.EndTime,
		m.Timezone, m.Icon, m.TextAlign, m.ThemeColor, m.BackgroundColor,
	)
	if err != nil {
		return 0, fmt.Errorf("create maintenance: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("create maintenance: %w", err)
	}
	return id, nil
}

// SaveMaintenance overwrites the editable fields of a window.
func (s *Store) SaveMaintenance(ctx context.Context, m Maintenance) error {
	m.applyDefaults()
	_, err := s.db.ExecContext(ctx,
		`UPDATE maintenance_settings SET
		maintenance_mode = ?, title = ?, subtitle = ?, message = ?, start_time = ?, end_time = ?,
		timezone = ?, icon = ?, text_align = ?, theme_color = ?, background_color = ?
		WHERE id = ?`,
		m.MaintenanceMode, m.Title, m.Subtitle, m.Message, m.StartTime, m.EndTime,
		m.Timezone, m.Icon, m.TextAlign, m.ThemeColor, m.BackgroundColor, m.ID,
	)
	if err != nil {
		return fmt.Errorf("save maintenance %d: %w", m.ID, err)
	}
	return nil
}

// ActivateMaintenance switches maintenance mode on for id only and returns
// the row. Like ActivateUpdate it is not transactional.
func (s *Store) ActivateMaintenance(ctx context.Context, id int64) (Maintenance, error) {
	if _, err := s.db.ExecContext(ctx, `UPDATE maintenance_settings SET is_active = 0, maintenance_mode = 0`); err != nil {
		return Maintenance{}, fmt.Errorf("deactivate maintenance: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE maintenance_settings SET is_active = 1, maintenance_mode = 1 WHERE id = ?`, id); err != nil {
		return Maintenance{}, fmt.Errorf("activate maintenance %d: %w", id, err)
	}
	return s.MaintenanceByID(ctx, id)
}

// RefreshActiveWindows makes exactly the windows containing now active and
// returns them, newest first.
func (s *Store) RefreshActiveWindows(ctx context.Context, now time.Time) ([]Maintenance, error) {
	if _, err := s.db.ExecContext(ctx, `UPDATE maintenance_settings SET is_active = 0`); err != nil {
		return nil, fmt.Errorf("deactivate maintenance: %w", err)
	}

	ts := FormatUTC(now)
	rows := []Maintenance{}
	err := s.db.SelectContext(ctx, &rows,
		`SELECT `+maintenanceColumns+` FROM maintenance_settings WHERE ? BETWEEN start_time AND end_time ORDER BY id DESC`,
		ts,
	)
	if err != nil {
		return nil, fmt.Errorf("select active windows: %w", err)
	}
	if len(rows) == 0 {
		return rows, nil
	}

	ids := make([]int64, len(rows))
	for i := range rows {
		ids[i] = rows[i].ID
		rows[i].IsActive = true
	}
	query, args, err := sqlx.In(`UPDATE maintenance_settings SET is_active = 1 WHERE id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("build activate query: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("activate windows: %w", err)
	}
	return rows, nil
}
