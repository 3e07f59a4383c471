package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/fx"

	"mcw-proxy/internal/auth"
	"mcw-proxy/internal/client"
	"mcw-proxy/internal/config"
	"mcw-proxy/internal/handler"
	"mcw-proxy/internal/interceptor"
	"mcw-proxy/internal/metrics"
	"mcw-proxy/internal/middleware"
	"mcw-proxy/internal/scheduler"
	"mcw-proxy/internal/service"
	"mcw-proxy/internal/snapshot"
	"mcw-proxy/internal/store"
	"mcw-proxy/internal/transform"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	var cli config.CLI
	kong.Parse(&cli,
		kong.Name("mcw-proxy"),
		kong.Description("Reverse proxy and admin backend for the MCW game platform API."),
		kong.Vars{"version": fmt.Sprintf("%s (%s, %s)", version, commit, date)},
	)

	fx.New(
		fx.Provide(
			func() *config.CLI { return &cli },
			func() handler.Version { return handler.Version(version) },
			config.Load,
			newLogger,
			metrics.New,
			newEcho,
			newStore,
			newSnapshots,
			auth.NewTokens,
			transform.DefaultTable,
			interceptor.New,
			client.NewUpstreamClient,
			service.NewProxyService,
			handler.NewProxyHandler,
			handler.NewLocalHandler,
			handler.NewImageHandler,
			handler.NewAdminHandler,
			newHealthHandler,
			newMaintenanceJob,
		),
		fx.Invoke(handler.RegisterRoutes, warnConfigPermissions, startMaintenanceJob, startServer),
	).Run()
}

func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	switch strings.ToLower(cfg.Log.Format) {
	case "text":
		h = slog.NewTextHandler(os.Stdout, opts)
	default:
		h = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(h)
}

func newEcho(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Server.ReadTimeout = 30 * time.Second
	// Upstream responses are buffered before they are written, so the
	// upstream client timeout bounds the handler.
	e.Server.WriteTimeout = 0
	e.Server.IdleTimeout = 120 * time.Second
	e.Server.ReadHeaderTimeout = 10 * time.Second

	// Preflights are answered before routing, for every path.
	e.Pre(middleware.CORS(cfg.Server.CORSOrigins))

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(logger))
	if cfg.Metrics.Enabled {
		e.Use(middleware.MetricsMiddleware(m, cfg.Metrics.Path))
	}
	e.Use(echomw.BodyLimit(fmt.Sprintf("%dB", cfg.Server.BodyMaxBytes)))
	e.Use(middleware.SecurityHeaders())

	if cfg.Server.RateLimit.Enabled {
		e.Use(middleware.RateLimiter(cfg.Server.RateLimit.RequestsPerSecond))
		logger.Info("rate limiter enabled", "rps", cfg.Server.RateLimit.RequestsPerSecond)
	}

	return e
}

func newStore(lc fx.Lifecycle, cfg *config.Config, logger *slog.Logger) (*store.Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := store.Open(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error { return db.Close() },
	})
	return db, nil
}

func newSnapshots(lc fx.Lifecycle, cfg *config.Config, logger *slog.Logger) (*snapshot.Store, error) {
	snaps, err := snapshot.New(cfg.Server.SnapshotDir, logger)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		// The start context is cancelled once startup completes; the
		// watcher lives until Close.
		OnStart: func(context.Context) error { return snaps.Watch(context.Background()) },
		OnStop:  func(context.Context) error { return snaps.Close() },
	})
	return snaps, nil
}

func newHealthHandler(cfg *config.Config, v handler.Version, db *store.Store) *handler.HealthHandler {
	return handler.NewHealthHandler(cfg, v, db)
}

func newMaintenanceJob(db *store.Store, snaps *snapshot.Store, m *metrics.Metrics, logger *slog.Logger) *scheduler.MaintenanceJob {
	return scheduler.NewMaintenanceJob(db, snaps, m, logger)
}

func startMaintenanceJob(lc fx.Lifecycle, job *scheduler.MaintenanceJob, cfg *config.Config, logger *slog.Logger) {
	if !cfg.Maintenance.Enabled {
		logger.Info("maintenance job disabled")
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			return job.Start(ctx, cfg.Maintenance.Schedule)
		},
		OnStop: func(context.Context) error {
			job.Stop()
			cancel()
			return nil
		},
	})
}

func warnConfigPermissions(cfg *config.Config, logger *slog.Logger) {
	cfg.WarnPermissions(logger)
}

func startServer(lc fx.Lifecycle, e *echo.Echo, cfg *config.Config, logger *slog.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			addr := cfg.Server.Addr()
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("bind %s: %w", addr, err)
			}
			logger.Info("starting server", "addr", addr, "upstream", cfg.Upstream.Target)
			go func() {
				if err := e.Server.Serve(ln); err != nil && err != http.ErrServerClosed {
					logger.Error("server error", "err", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("shutting down server")
			return e.Shutdown(ctx)
		},
	})
}
