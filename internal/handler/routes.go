package handler

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"

	"mcw-proxy/internal/auth"
	"mcw-proxy/internal/config"
	"mcw-proxy/internal/metrics"
	"mcw-proxy/internal/service"
)

// loginPath is the only admin route reachable without a bearer token.
const loginPath = "/mcw/api/v2/user/login"

// Routes collects the handlers RegisterRoutes wires.
type Routes struct {
	fx.In

	Config  *config.Config
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Tokens  *auth.Tokens
	Proxy   *ProxyHandler
	Local   *LocalHandler
	Images  *ImageHandler
	Admin   *AdminHandler
	Health  *HealthHandler
}

// RegisterRoutes wires all route handlers onto the Echo instance. OPTIONS
// requests never get here: the CORS middleware answers them before routing.
// Paths without a route fall through to Echo's 404.
func RegisterRoutes(e *echo.Echo, r Routes) {
	e.HTTPErrorHandler = ErrorHandler(r.Logger)

	e.GET("/healthz", r.Health.Healthz)
	e.GET("/proxy/status", r.Health.Status)
	if r.Config.Metrics.Enabled {
		e.GET(r.Config.Metrics.Path, echo.WrapHandler(promhttp.HandlerFor(r.Metrics.Registry, promhttp.HandlerOpts{})))
	}

	e.GET("/images/*", r.Images.Serve)

	e.GET("/mcw/api/ping", r.Local.Ping)
	e.GET("/mcw/api/update", r.Local.Update)
	e.GET("/mcw/api/game", r.Local.Game)
	e.GET("/mcw/api/maintenance", r.Local.Maintenance)
	e.GET("/mcw/api/v2/update", r.Local.UpdateV2)
	e.GET("/mcw/api/v2/game", r.Local.GameV2)
	e.GET("/mcw/api/v2/maintenance", r.Local.MaintenanceV2)

	requireAuth := auth.RequireBearer(r.Tokens, r.Logger, func(c echo.Context) bool {
		return c.Path() == loginPath
	})
	registerAdmin(e, r.Admin, r.Images, requireAuth)

	for path := range service.Allowlist {
		e.Any(path, r.Proxy.Handle)
	}
}

// registerAdmin mounts one authenticated group per admin namespace. Unknown
// operations inside a group resolve to 404 after authentication.
func registerAdmin(e *echo.Echo, admin *AdminHandler, images *ImageHandler, requireAuth echo.MiddlewareFunc) {
	user := e.Group("/mcw/api/v2/user", requireAuth)
	user.Any("/login", admin.Login)
	user.Any("/create", admin.CreateUser)
	user.Any("/update", admin.UpdateUser)
	user.Any("/list", admin.ListUsers)
	user.Any("/get", admin.GetUser)

	updates := e.Group("/mcw/api/v2/updates", requireAuth)
	updates.Any("/list", admin.ListUpdates)
	updates.Any("/create", admin.CreateUpdate)
	updates.Any("/update", admin.UpdateUpdate)
	updates.Any("/get", admin.GetUpdate)
	updates.Any("/activate", admin.ActivateUpdate)

	maintain := e.Group("/mcw/api/v2/maintain", requireAuth)
	maintain.Any("/list", admin.ListMaintenance)
	maintain.Any("/create", admin.CreateMaintenance)
	maintain.Any("/get", admin.GetMaintenance)
	maintain.Any("/update", admin.UpdateMaintenance)
	maintain.Any("/activate", admin.ActivateMaintenance)

	games := e.Group("/mcw/api/v2/games", requireAuth)
	games.Any("/list", admin.ListGames)
	games.Any("/create", admin.CreateGame)
	games.Any("/get", admin.GetGame)
	games.Any("/update", admin.UpdateGame)

	theme := e.Group("/mcw/api/v2/theme", requireAuth)
	theme.Any("/list", admin.ListThemes)
	theme.Any("/save", admin.SaveTheme)
	theme.Any("/get", admin.GetTheme)
	theme.Any("/upload", images.Upload)
}
