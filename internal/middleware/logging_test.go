package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestRequestLogger(t *testing.T) {
	tests := []struct {
		name       string
		handler    echo.HandlerFunc
		wantStatus int
		wantLevel  string
	}{
		{
			name:       "ok",
			handler:    func(c echo.Context) error { return c.String(http.StatusOK, "ok") },
			wantStatus: http.StatusOK,
			wantLevel:  "INFO",
		},
		{
			name:       "client error",
			handler:    func(c echo.Context) error { return echo.NewHTTPError(http.StatusUnauthorized, "Missing or invalid Authorization header") },
			wantStatus: http.StatusUnauthorized,
			wantLevel:  "WARN",
		},
		{
			name:       "server error",
			handler:    func(c echo.Context) error { return c.JSON(http.StatusInternalServerError, map[string]string{"error": "x"}) },
			wantStatus: http.StatusInternalServerError,
			wantLevel:  "ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, nil))

			e := echo.New()
			e.Use(RequestLogger(logger))
			e.GET("/mcw/api/ping", tt.handler)

			req := httptest.NewRequest(http.MethodGet, "/mcw/api/ping", http.NoBody)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			var entry map[string]any
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Fatalf("log line %q: %v", buf.String(), err)
			}
			if entry["level"] != tt.wantLevel {
				t.Errorf("level = %v, want %s", entry["level"], tt.wantLevel)
			}
			if entry["path"] != "/mcw/api/ping" {
				t.Errorf("path = %v", entry["path"])
			}
			if got := int(entry["status"].(float64)); got != tt.wantStatus {
				t.Errorf("logged status = %d, want %d", got, tt.wantStatus)
			}
			if _, ok := entry["size"]; !ok {
				t.Error("missing size attribute")
			}
		})
	}
}
