// Package store persists the admin-managed settings: users, app updates,
// maintenance windows, game categories and theme assets.
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"go.uber.org/multierr"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"mcw-proxy/internal/config"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("store: not found")

//go:embed schema/*.sql
var schemaFS embed.FS

func init() {
	// modernc registers as "sqlite"; sqlx only knows "sqlite3" by default.
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// Store wraps the shared connection pool. All statements use "?"
// placeholders and avoid dialect functions so one query set serves both
// MySQL and SQLite.
type Store struct {
	db     *sqlx.DB
	driver string
	logger *slog.Logger
	now    func() time.Time
}

// Open connects using the database config and, when init_schema is set,
// creates missing tables.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Store, error) {
	driver, dsn := dataSource(&cfg.Database)

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", driver, err)
	}

	if driver == "sqlite" {
		// SQLite has a single writer.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(cfg.Database.PoolSize)
		db.SetMaxIdleConns(min(cfg.Database.PoolSize, 10))
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, multierr.Combine(fmt.Errorf("store: ping %s: %w", driver, err), db.Close())
	}

	s := New(db, driver, logger)
	if cfg.Database.InitSchema {
		if err := s.InitSchema(ctx); err != nil {
			return nil, multierr.Combine(err, db.Close())
		}
	}
	return s, nil
}

// New wraps an existing connection.
func New(db *sqlx.DB, driver string, logger *slog.Logger) *Store {
	return &Store{
		db:     db,
		driver: driver,
		logger: logger.With("component", "store"),
		now:    time.Now,
	}
}

func dataSource(cfg *config.DatabaseConfig) (driver, dsn string) {
	if strings.EqualFold(cfg.Driver, "sqlite") {
		return "sqlite", "file:" + cfg.Path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	mc.DBName = cfg.Name
	mc.Loc = time.UTC
	mc.Timeout = 10 * time.Second
	return "mysql", mc.FormatDSN()
}

// InitSchema applies the embedded schema for the active driver. Every
// statement is idempotent.
func (s *Store) InitSchema(ctx context.Context) error {
	data, err := schemaFS.ReadFile("schema/" + s.driver + ".sql")
	if err != nil {
		return fmt.Errorf("store: no schema for driver %q: %w", s.driver, err)
	}

	for _, stmt := range strings.Split(string(data), ";") {
		if stmt = strings.TrimSpace(stmt); stmt == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store: apply schema: %w", err)
		}
	}
	s.logger.Info("schema ready", "driver", s.driver)
	return nil
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// timestamp returns the current time in the stored layout.
func (s *Store) timestamp() string {
	return FormatUTC(s.now())
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
