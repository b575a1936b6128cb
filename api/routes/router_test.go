package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/threadloom/storefront-backend/api/middleware"
	"github.com/threadloom/storefront-backend/pkg/auth"
	"github.com/threadloom/storefront-backend/pkg/config"
	"github.com/threadloom/storefront-backend/pkg/enums"
	"github.com/threadloom/storefront-backend/pkg/metrics"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

type flag struct{ on bool }

func (f *flag) Get(context.Context) bool { return f.on }

func (f *flag) Set(_ context.Context, on bool) error {
	f.on = on
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{Secret: "secret", Issuer: "storefront", ExpirationMinutes: 30},
	}
}

func newTestRouter(t *testing.T, maintenance *flag) (http.Handler, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return NewRouter(Params{
		Config:      testConfig(),
		DB:          stubPinger{},
		Redis:       stubPinger{},
		Gatherer:    reg,
		HTTPMetrics: metrics.NewHTTPMetrics(reg),
		Maintenance: maintenance,
	}), reg
}

func bearer(t *testing.T, role enums.Role) string {
	t.Helper()
	token, err := auth.MintAccessToken(testConfig().JWT, time.Now(), auth.AccessTokenPayload{
		UserID: uuid.New(),
		Email:  "someone@example.com",
		Role:   role,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return "Bearer " + token
}

func TestHealthRoutes(t *testing.T) {
	router, _ := newTestRouter(t, &flag{})

	for _, path := range []string{"/health/live", "/health/ready"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", path, rec.Code)
		}
		if rec.Header().Get("X-Request-Id") == "" {
			t.Fatalf("%s: expected request id header", path)
		}
	}
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	router, _ := newTestRouter(t, &flag{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/v1/settings/maintenance", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("guest: expected 401 got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/settings/maintenance", nil)
	req.Header.Set("Authorization", bearer(t, enums.RoleCustomer))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("customer: expected 403 got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/admin/v1/settings/maintenance", nil)
	req.Header.Set("Authorization", bearer(t, enums.RoleAdmin))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin: expected 200 got %d", rec.Code)
	}
}

func TestMaintenanceGatesStorefront(t *testing.T) {
	router, _ := newTestRouter(t, &flag{on: true})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cart/items", nil))
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != middleware.MaintenancePath {
		t.Fatalf("expected redirect to maintenance, got %d %q", rec.Code, rec.Header().Get("Location"))
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/maintenance", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected maintenance page 503 got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPut, "/api/admin/v1/settings/maintenance", strings.NewReader(`{"enabled":false}`))
	req.Header.Set("Authorization", bearer(t, enums.RoleAdmin))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected admin toggle 200 got %d: %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/maintenance", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected maintenance page 200 after toggle, got %d", rec.Code)
	}
}

func TestMetricsEndpointExportsHTTPSeries(t *testing.T) {
	router, _ := newTestRouter(t, &flag{})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health/live", nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `storefront_http_requests_total{method="GET",route="/health/live",status="200"} 1`) {
		t.Fatalf("expected http series in metrics output:\n%s", rec.Body.String())
	}
}
