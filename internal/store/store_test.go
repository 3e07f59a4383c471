package store

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcw-proxy/internal/config"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	cfg := &config.Config{
		Database: config.DatabaseConfig{
			Driver:     "sqlite",
			Path:       filepath.Join(t.TempDir(), "mcw.db"),
			InitSchema: true,
		},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := Open(context.Background(), cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestInitSchema_Idempotent(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.InitSchema(context.Background()))
	require.NoError(t, s.Ping(context.Background()))
}

func TestDataSource(t *testing.T) {
	driver, dsn := dataSource(&config.DatabaseConfig{
		Driver:   "mysql",
		Host:     "db.internal",
		Port:     3307,
		User:     "mcw",
		Password: "pw",
		Name:     "mcw",
	})
	assert.Equal(t, "mysql", driver)
	assert.Contains(t, dsn, "mcw:pw@tcp(db.internal:3307)/mcw")

	driver, dsn = dataSource(&config.DatabaseConfig{Driver: "SQLite", Path: "/tmp/x.db"})
	assert.Equal(t, "sqlite", driver)
	assert.Contains(t, dsn, "file:/tmp/x.db")
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	id, err := s.CreateUser(ctx, User{Username: "admin", Name: "Admin", PasswordHash: "hash"})
	require.NoError(t, err)
	_, err = s.CreateUser(ctx, User{Username: "ops", Name: "Ops", PasswordHash: "hash2", Role: "admin"})
	require.NoError(t, err)

	u, err := s.UserByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, id, u.ID)
	assert.Equal(t, DefaultRole, u.Role)
	assert.Equal(t, "hash", u.PasswordHash)
	assert.NotEmpty(t, u.CreatedAt)

	_, err = s.UserByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.CreateUser(ctx, User{Username: "admin", PasswordHash: "dup"})
	assert.Error(t, err, "username is unique")

	require.NoError(t, s.UpdateUser(ctx, id, "Renamed", "editor", ""))
	u, err = s.UserByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", u.Name)
	assert.Equal(t, "editor", u.Role)
	assert.Equal(t, "hash", u.PasswordHash, "empty hash keeps the password")

	require.NoError(t, s.UpdateUser(ctx, id, "Renamed", "editor", "newhash"))
	u, err = s.UserByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "newhash", u.PasswordHash)

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "ops", users[0].Username, "newest first")
}

func TestUpdates(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	_, err := s.LatestUpdate(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	first, err := s.CreateUpdate(ctx, AppUpdate{LatestVersion: "1.0.0", MinimumVersion: "0.9.0", UpdateType: "soft"})
	require.NoError(t, err)
	second, err := s.CreateUpdate(ctx, AppUpdate{
		UpdateRequired: true,
		LatestVersion:  "1.1.0",
		MinimumVersion: "1.0.0",
		UpdateType:     "force",
		UpdateURL:      "https://example.com/app",
		Changelog:      `Fix login\nNew lobby`,
	})
	require.NoError(t, err)

	latest, err := s.LatestUpdate(ctx)
	require.NoError(t, err)
	assert.Equal(t, second, latest.ID)
	assert.True(t, latest.UpdateRequired)
	assert.Equal(t, []string{"Fix login", "New lobby"}, latest.ChangelogLines())

	activated, err := s.ActivateUpdate(ctx, first)
	require.NoError(t, err)
	assert.True(t, activated.IsActive)

	_, err = s.ActivateUpdate(ctx, second)
	require.NoError(t, err)
	u, err := s.UpdateByID(ctx, first)
	require.NoError(t, err)
	assert.False(t, u.IsActive, "activating one deactivates the rest")

	_, err = s.ActivateUpdate(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)

	u.LatestVersion = "1.0.1"
	require.NoError(t, s.SaveUpdate(ctx, u))
	u, err = s.UpdateByID(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, "1.0.1", u.LatestVersion)

	list, err := s.ListUpdates(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestChangelogLines(t *testing.T) {
	assert.Equal(t, []string{}, AppUpdate{}.ChangelogLines())
	assert.Equal(t, []string{"a", "b", "c"}, AppUpdate{Changelog: "a\nb\\nc"}.ChangelogLines())
}

func TestMaintenance(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	id, err := s.CreateMaintenance(ctx, Maintenance{
		Title:     "Upgrade",
		StartTime: "2025-01-01 00:00:00",
		EndTime:   "2025-01-01 02:00:00",
	})
	require.NoError(t, err)

	m, err := s.MaintenanceByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, DefaultTextAlign, m.TextAlign)
	assert.Equal(t, DefaultThemeColor, m.ThemeColor)
	assert.Equal(t, DefaultBackgroundColor, m.BackgroundColor)
	assert.False(t, m.MaintenanceMode)

	m.Subtitle = "Back soon"
	require.NoError(t, s.SaveMaintenance(ctx, m))

	activated, err := s.ActivateMaintenance(ctx, id)
	require.NoError(t, err)
	assert.True(t, activated.IsActive)
	assert.True(t, activated.MaintenanceMode)
	assert.Equal(t, "Back soon", activated.Subtitle)

	latest, err := s.LatestMaintenance(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, latest.ID)

	_, err = s.MaintenanceByID(ctx, 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRefreshActiveWindows(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	past, err := s.CreateMaintenance(ctx, Maintenance{StartTime: "2025-01-01 00:00:00", EndTime: "2025-01-01 01:00:00"})
	require.NoError(t, err)
	current, err := s.CreateMaintenance(ctx, Maintenance{StartTime: "2025-03-01 00:00:00", EndTime: "2025-03-02 00:00:00"})
	require.NoError(t, err)
	overlapping, err := s.CreateMaintenance(ctx, Maintenance{StartTime: "2025-03-01 12:00:00", EndTime: "2025-03-01 13:00:00"})
	require.NoError(t, err)

	_, err = s.ActivateMaintenance(ctx, past)
	require.NoError(t, err)

	now := time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC)
	active, err := s.RefreshActiveWindows(ctx, now)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, overlapping, active[0].ID, "newest first")
	assert.Equal(t, current, active[1].ID)

	m, err := s.MaintenanceByID(ctx, past)
	require.NoError(t, err)
	assert.False(t, m.IsActive)
	m, err = s.MaintenanceByID(ctx, current)
	require.NoError(t, err)
	assert.True(t, m.IsActive)

	active, err = s.RefreshActiveWindows(ctx, now.Add(48*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestGames(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	slots, err := s.CreateGame(ctx, Game{CategoryID: 2, DisplayOrder: 2, Name: "slots", DisplayName: "Slots"})
	require.NoError(t, err)
	_, err = s.CreateGame(ctx, Game{CategoryID: 1, DisplayOrder: 1, Name: "live", DisplayName: "Live Casino"})
	require.NoError(t, err)

	games, err := s.ListGames(ctx)
	require.NoError(t, err)
	require.Len(t, games, 2)
	assert.Equal(t, "live", games[0].Name)

	g, err := s.GameByID(ctx, slots)
	require.NoError(t, err)
	g.DisplayOrder = 0
	require.NoError(t, s.SaveGame(ctx, g))

	games, err = s.ListGames(ctx)
	require.NoError(t, err)
	assert.Equal(t, "slots", games[0].Name)

	_, err = s.GameByID(ctx, 100)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestThemes(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	first, err := s.SaveTheme(ctx, "logo", "/images/a.png")
	require.NoError(t, err)
	_, err = s.SaveTheme(ctx, "logo", "/images/b.png")
	require.NoError(t, err)
	_, err = s.SaveTheme(ctx, "bg", "/images/bg.png")
	require.NoError(t, err)

	themes, err := s.ActiveThemes(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"logo": "/images/b.png", "bg": "/images/bg.png"}, themes)

	old, err := s.ThemeByID(ctx, first)
	require.NoError(t, err)
	assert.False(t, old.IsActive)
	assert.NotEmpty(t, old.UpdatedAt)
}

func TestTimeConversion(t *testing.T) {
	utc, err := AdminToUTC("2025-01-01 08:00:00")
	require.NoError(t, err)
	assert.Equal(t, "2025-01-01 00:00:00", utc)

	utc, err = AdminToUTC("2025-01-01T03:30")
	require.NoError(t, err)
	assert.Equal(t, "2024-12-31 19:30:00", utc)

	_, err = AdminToUTC("tomorrow")
	assert.Error(t, err)

	assert.Equal(t, "2025-01-01 08:00:00", UTCToAdmin("2025-01-01 00:00:00"))
	assert.Equal(t, "garbage", UTCToAdmin("garbage"))
	assert.Equal(t, "2025-01-01T00:00:00Z", UTCToRFC3339("2025-01-01 00:00:00"))
}
