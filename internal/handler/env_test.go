package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"mcw-proxy/internal/auth"
	"mcw-proxy/internal/client"
	"mcw-proxy/internal/config"
	"mcw-proxy/internal/interceptor"
	"mcw-proxy/internal/metrics"
	"mcw-proxy/internal/middleware"
	"mcw-proxy/internal/service"
	"mcw-proxy/internal/snapshot"
	"mcw-proxy/internal/store"
	"mcw-proxy/internal/transform"
)

// noUpstream is a syntactically valid target for tests that never proxy.
const noUpstream = "http://127.0.0.1:1"

// testEnv is a fully wired router backed by temp-dir SQLite and snapshot
// storage.
type testEnv struct {
	e      *echo.Echo
	cfg    *config.Config
	db     *store.Store
	snaps  *snapshot.Store
	tokens *auth.Tokens
	images *ImageHandler
}

// newTestEnv builds the router against upstreamURL. opts adjust the config
// before anything is constructed.
func newTestEnv(t *testing.T, upstreamURL string, opts ...func(*config.Config)) *testEnv {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		Server: config.ServerConfig{
			ImagesDir:   filepath.Join(dir, "images"),
			SnapshotDir: filepath.Join(dir, "json"),
			CORSOrigins: []string{"*"},
		},
		Upstream: config.UpstreamConfig{
			Target:          upstreamURL,
			TimeoutSeconds:  10,
			IdleConnections: 10,
		},
		Database: config.DatabaseConfig{
			Driver:     "sqlite",
			Path:       filepath.Join(dir, "mcw.db"),
			InitSchema: true,
		},
		Auth:    config.AuthConfig{JWTSecret: "test-secret", TokenTTL: "1h"},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
	for _, opt := range opts {
		opt(cfg)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New()

	db, err := store.Open(context.Background(), cfg, logger)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	snaps, err := snapshot.New(cfg.Server.SnapshotDir, logger)
	if err != nil {
		t.Fatalf("snapshot.New: %v", err)
	}
	tokens, err := auth.NewTokens(cfg)
	if err != nil {
		t.Fatalf("auth.NewTokens: %v", err)
	}
	svc, err := service.NewProxyService(client.NewUpstreamClient(cfg, logger, m), cfg, logger)
	if err != nil {
		t.Fatalf("NewProxyService: %v", err)
	}
	images, err := NewImageHandler(cfg, logger)
	if err != nil {
		t.Fatalf("NewImageHandler: %v", err)
	}

	e := echo.New()
	e.Pre(middleware.CORS(cfg.Server.CORSOrigins))
	RegisterRoutes(e, Routes{
		Config:  cfg,
		Logger:  logger,
		Metrics: m,
		Tokens:  tokens,
		Proxy:   NewProxyHandler(svc, interceptor.New(transform.DefaultTable(), logger, m), logger),
		Local:   NewLocalHandler(snaps, db, logger),
		Images:  images,
		Admin:   NewAdminHandler(db, tokens, snaps, logger),
		Health:  NewHealthHandler(cfg, "test", db),
	})

	return &testEnv{e: e, cfg: cfg, db: db, snaps: snaps, tokens: tokens, images: images}
}

// do sends a request through the router. A non-empty token is sent as a
// bearer credential.
func (env *testEnv) do(method, path, body, token string) *httptest.ResponseRecorder {
	var r io.Reader = http.NoBody
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

// login creates an admin account and returns a token for it.
func (env *testEnv) login(t *testing.T) string {
	t.Helper()
	hash, err := auth.HashPassword("s3cret")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if _, err := env.db.CreateUser(context.Background(), store.User{
		Username: "admin", Name: "Admin", PasswordHash: hash, Role: "admin",
	}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	rec := env.do(http.MethodPost, "/mcw/api/v2/user/login", `{"username":"admin","password":"s3cret"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp loginResponse
	decodeJSON(t, rec, &resp)
	if resp.Token == "" {
		t.Fatal("login returned no token")
	}
	return resp.Token
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("unmarshal %q: %v", rec.Body.String(), err)
	}
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	decodeJSON(t, rec, &body)
	return body["error"]
}
