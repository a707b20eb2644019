package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"my-page/backend/config"
	"my-page/backend/internal/api/handler"
	"my-page/backend/internal/service"
	"my-page/backend/pkg/jwt"
)

func setupRouter(t *testing.T, gatherer prometheus.Gatherer) (http.Handler, *jwt.Manager) {
	t.Helper()
	cfg := &config.Config{
		Server: config.ServerConfig{
			MaxBodyBytes:    1 << 20,
			WriteRateLimit:  10,
			WriteRateWindow: time.Minute,
		},
		Auth: config.AuthConfig{
			JWTSecret:      "router-test-secret-2026",
			Issuer:         "my-page",
			AccessTokenTTL: time.Minute,
		},
	}
	jwtMgr := jwt.NewManager(&cfg.Auth)
	// 以下用例都在进入 Service 之前结束，空 Service 即可
	h := handler.NewHandler(&service.Service{})
	return Setup(cfg, h, jwtMgr, nil, gatherer, zap.NewNop()), jwtMgr
}

func bearer(t *testing.T, m *jwt.Manager, role string) string {
	t.Helper()
	token, err := m.GenerateAccessToken("user-1", "kari@example.com", role)
	if err != nil {
		t.Fatalf("签发令牌失败: %v", err)
	}
	return "Bearer " + token
}

func TestHealth(t *testing.T) {
	r, _ := setupRouter(t, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("expected security headers")
	}
}

func TestMetrics_OnlyWhenEnabled(t *testing.T) {
	r, _ := setupRouter(t, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 without gatherer, got %d", w.Code)
	}

	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "router_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	r, _ = setupRouter(t, reg)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "router_test_total 1") {
		t.Errorf("metrics output missing counter: %s", w.Body.String())
	}
}

func TestAPI_RequiresToken(t *testing.T) {
	r, _ := setupRouter(t, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/drawings", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}

	req := httptest.NewRequest("GET", "/api/v1/drawings", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for invalid token, got %d", w.Code)
	}
}

func TestAPI_AdminRoutesRejectMembers(t *testing.T) {
	r, m := setupRouter(t, nil)

	adminOnly := []struct{ method, path string }{
		{"POST", "/api/v1/drawings"},
		{"POST", "/api/v1/drawings/d1/transition"},
		{"POST", "/api/v1/drawings/d1/executions"},
		{"GET", "/api/v1/drawings/d1/executions/compare"},
		{"POST", "/api/v1/drawings/d1/executions/e1/publish"},
		{"GET", "/api/v1/drawings/d1/executions/e1/export"},
		{"POST", "/api/v1/drawings/d1/wishes/import"},
		{"POST", "/api/v1/drawings/d1/unpublish"},
		{"PUT", "/api/v1/apartments/a1"},
	}
	for _, tc := range adminOnly {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		req.Header.Set("Authorization", bearer(t, m, "member"))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusForbidden {
			t.Errorf("%s %s: expected 403, got %d", tc.method, tc.path, w.Code)
		}
	}
}

func TestAPI_BodyTooLarge(t *testing.T) {
	r, m := setupRouter(t, nil)

	req := httptest.NewRequest("POST", "/api/v1/drawings", strings.NewReader(strings.Repeat("x", 2<<20)))
	req.Header.Set("Authorization", bearer(t, m, "admin"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", w.Code)
	}
}
