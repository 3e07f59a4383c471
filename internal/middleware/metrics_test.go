package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	dto "github.com/prometheus/client_model/go"

	"mcw-proxy/internal/metrics"
)

// requestSamples returns the label sets of every
// mcw_proxy_http_requests_total sample.
func requestSamples(t *testing.T, m *metrics.Metrics) []map[string]string {
	t.Helper()
	families, err := m.Registry.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	var out []map[string]string
	for _, f := range families {
		if f.GetName() != "mcw_proxy_http_requests_total" {
			continue
		}
		for _, metric := range f.GetMetric() {
			out = append(out, labels(metric))
		}
	}
	return out
}

func labels(metric *dto.Metric) map[string]string {
	l := make(map[string]string)
	for _, lp := range metric.GetLabel() {
		l[lp.GetName()] = lp.GetValue()
	}
	return l
}

func TestMetricsMiddleware_IncrementsCounter(t *testing.T) {
	m := metrics.New()

	e := echo.New()
	e.Use(MetricsMiddleware(m, "/metrics"))
	e.POST("/api/bd/v2_1/user/login", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodPost, "/api/bd/v2_1/user/login", http.NoBody)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	samples := requestSamples(t, m)
	if len(samples) != 1 {
		t.Fatalf("got %d samples, want 1", len(samples))
	}
	if samples[0]["path_prefix"] != "/api/bd" || samples[0]["method"] != "POST" || samples[0]["status_code"] != "200" {
		t.Errorf("labels = %v", samples[0])
	}
}

func TestMetricsMiddleware_RecordsDuration(t *testing.T) {
	m := metrics.New()

	e := echo.New()
	e.Use(MetricsMiddleware(m, "/metrics"))
	e.GET("/mcw/api/ping", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodGet, "/mcw/api/ping", http.NoBody)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	families, err := m.Registry.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	found := false
	for _, f := range families {
		if f.GetName() == "mcw_proxy_http_request_duration_seconds" {
			for _, metric := range f.GetMetric() {
				if metric.GetHistogram().GetSampleCount() > 0 && labels(metric)["path_prefix"] == "/mcw/api" {
					found = true
				}
			}
		}
	}
	if !found {
		t.Error("expected mcw_proxy_http_request_duration_seconds with a /mcw/api sample")
	}
}

func TestMetricsMiddleware_ErrorStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"http error", echo.NewHTTPError(http.StatusForbidden, "Token expired or invalid"), "403"},
		{"plain error", errors.New("boom"), "500"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := metrics.New()
			e := echo.New()
			e.Use(MetricsMiddleware(m, "/metrics"))
			e.GET("/mcw/api/v2/user/list", func(c echo.Context) error {
				return tt.err
			})

			req := httptest.NewRequest(http.MethodGet, "/mcw/api/v2/user/list", http.NoBody)
			e.ServeHTTP(httptest.NewRecorder(), req)

			samples := requestSamples(t, m)
			if len(samples) != 1 {
				t.Fatalf("got %d samples, want 1", len(samples))
			}
			if samples[0]["status_code"] != tt.want {
				t.Errorf("status_code = %q, want %q", samples[0]["status_code"], tt.want)
			}
			if samples[0]["path_prefix"] != "/mcw/api/v2" {
				t.Errorf("path_prefix = %q, want %q", samples[0]["path_prefix"], "/mcw/api/v2")
			}
		})
	}
}

func TestMetricsMiddleware_UnknownMethodNormalized(t *testing.T) {
	m := metrics.New()

	e := echo.New()
	e.Use(MetricsMiddleware(m, "/metrics"))
	e.Any("/api/bd/v2_1/user/login", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest("XYZZY", "/api/bd/v2_1/user/login", http.NoBody)
	e.ServeHTTP(httptest.NewRecorder(), req)

	samples := requestSamples(t, m)
	if len(samples) != 1 || samples[0]["method"] != "other" {
		t.Errorf("samples = %v, want one with method=other", samples)
	}
}

func TestMetricsMiddleware_RouterNotFound(t *testing.T) {
	m := metrics.New()

	e := echo.New()
	e.Use(MetricsMiddleware(m, "/metrics"))

	req := httptest.NewRequest(http.MethodGet, "/nonexistent", http.NoBody)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}

	samples := requestSamples(t, m)
	if len(samples) != 1 {
		t.Fatalf("got %d samples, want 1", len(samples))
	}
	if samples[0]["path_prefix"] != "other" || samples[0]["status_code"] != "404" {
		t.Errorf("labels = %v, want path_prefix=other status_code=404", samples[0])
	}
}

func TestMetricsMiddleware_SkipsScrapePath(t *testing.T) {
	m := metrics.New()

	e := echo.New()
	e.Use(MetricsMiddleware(m, "/metrics"))
	e.GET("/metrics", func(c echo.Context) error {
		return c.String(http.StatusOK, "")
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody)
	e.ServeHTTP(httptest.NewRecorder(), req)

	if samples := requestSamples(t, m); len(samples) != 0 {
		t.Errorf("scrape requests were counted: %v", samples)
	}
}
