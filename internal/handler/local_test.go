package handler

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"mcw-proxy/internal/snapshot"
)

func TestPing(t *testing.T) {
	env := newTestEnv(t, noUpstream)
	rec := env.do(http.MethodGet, "/mcw/api/ping", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Body.String(); got != "{\"code\":0,\"message\":\"Hello world!\"}\n" {
		t.Errorf("body = %q", got)
	}
}

func TestSnapshotEndpoints(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		file    string
		content string
		code    int
		errMsg  string
	}{
		{"update missing", "/mcw/api/update", snapshot.UpdateFile, "", http.StatusInternalServerError, "Failed to load update details"},
		{"update invalid", "/mcw/api/update", snapshot.UpdateFile, "{nope", http.StatusInternalServerError, "Invalid JSON format in update.json"},
		{"game missing", "/mcw/api/game", snapshot.GameFile, "", http.StatusInternalServerError, "Failed to load game categories"},
		{"maintenance invalid", "/mcw/api/maintenance", snapshot.MaintenanceFile, "[", http.StatusInternalServerError, "Invalid JSON format in maintenance.json"},
		{"game served verbatim", "/mcw/api/game", snapshot.GameFile, `[{"name":"live"}]`, http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, noUpstream)
			if tt.content != "" {
				path := filepath.Join(env.cfg.Server.SnapshotDir, tt.file)
				if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
					t.Fatalf("write snapshot: %v", err)
				}
			}

			rec := env.do(http.MethodGet, tt.path, "", "")
			if rec.Code != tt.code {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.code, rec.Body.String())
			}
			if tt.errMsg != "" {
				if got := errorMessage(t, rec); got != tt.errMsg {
					t.Errorf("error = %q, want %q", got, tt.errMsg)
				}
				return
			}
			if got := rec.Body.String(); got != tt.content {
				t.Errorf("body = %q, want %q", got, tt.content)
			}
		})
	}
}

func TestV2Endpoints_EmptyDatabase(t *testing.T) {
	env := newTestEnv(t, noUpstream)

	tests := []struct {
		path   string
		code   int
		errMsg string
	}{
		{"/mcw/api/v2/update", http.StatusNotFound, "No update info found"},
		{"/mcw/api/v2/maintenance", http.StatusNotFound, "No maintenance config found"},
		{"/mcw/api/v2/game", http.StatusOK, ""},
	}
	for _, tt := range tests {
		rec := env.do(http.MethodGet, tt.path, "", "")
		if rec.Code != tt.code {
			t.Errorf("%s: status = %d, want %d", tt.path, rec.Code, tt.code)
			continue
		}
		if tt.errMsg != "" {
			if got := errorMessage(t, rec); got != tt.errMsg {
				t.Errorf("%s: error = %q, want %q", tt.path, got, tt.errMsg)
			}
		} else if got := rec.Body.String(); got != "[]\n" {
			t.Errorf("%s: body = %q, want empty array", tt.path, got)
		}
	}
}
