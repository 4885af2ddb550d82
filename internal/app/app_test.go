package app

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-pos/internal/observability"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

func testConfig() *Config {
	return &Config{AppEnv: "test", AppRequestTimeout: time.Second, RateLimitPerMinute: 100}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ORDER_KEY_RETRIES", "5")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "INV", cfg.SalePrefix)
	assert.Equal(t, "PUR", cfg.PurchasePrefix)
	assert.Equal(t, 3, cfg.KeyWidth)
	assert.Equal(t, 5, cfg.OrderKeyRetries)
	assert.Equal(t, "C000", cfg.WalkInCustomerID)
	assert.Equal(t, 72*time.Hour, cfg.IdempotencyRetention)

	ordersCfg := cfg.OrdersConfig()
	assert.Equal(t, 5, ordersCfg.KeyRetries)
	assert.Equal(t, "INV", ordersCfg.SalePrefix)
}

func TestLoadConfigRejectsCollidingPrefixes(t *testing.T) {
	cases := map[string][2]string{
		"equal":             {"ORD", "ORD"},
		"purchase extends":  {"INV", "INV1"},
		"sale extends":      {"PO2", "PO"},
		"purchase is empty": {"INV", " "},
	}
	for name, prefixes := range cases {
		t.Run(name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			t.Setenv("SALE_PREFIX", prefixes[0])
			t.Setenv("PURCHASE_PREFIX", prefixes[1])

			_, err := LoadConfig()
			require.Error(t, err)
		})
	}

	t.Run("disjoint", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("SALE_PREFIX", "SO")
		t.Setenv("PURCHASE_PREFIX", "PO")

		cfg, err := LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, "PO", cfg.PurchasePrefix)
	})
}

func TestNewLoggerFormats(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&Config{LogFormat: "json", AppEnv: "production"}, &buf).Info("sale committed")
	assert.Contains(t, buf.String(), `"msg":"sale committed"`)
	assert.Contains(t, buf.String(), `"env":"production"`)

	buf.Reset()
	newLogger(nil, &buf).Debug("debug visible outside production")
	assert.Contains(t, buf.String(), "debug visible outside production")
}

func TestRouterHealthAndMetrics(t *testing.T) {
	router := NewRouter(RouterParams{
		Logger:  NewLogger(testConfig()),
		Config:  testConfig(),
		Metrics: observability.NewMetrics(),
		Checks: map[string]HealthCheck{
			"postgres": func(context.Context) error { return nil },
		},
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","checks":{"postgres":"ok"}}`, rec.Body.String())
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `odyssey_http_requests_total{code="200",route="/healthz"} 1`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}

func TestRouterHealthDegraded(t *testing.T) {
	router := NewRouter(RouterParams{
		Logger: NewLogger(testConfig()),
		Config: testConfig(),
		Checks: map[string]HealthCheck{
			"redis": func(context.Context) error { return errors.New("dial tcp: connection refused") },
		},
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"degraded"`)
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitPerMinute = 2
	router := NewRouter(RouterParams{Logger: NewLogger(cfg), Config: cfg})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.RemoteAddr = "10.0.0.9:5000"
		router.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestEmployeeContext(t *testing.T) {
	var seen string
	handler := EmployeeContext(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = shared.ActorFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/sales", nil)
	req.Header.Set(EmployeeHeader, " E007 ")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "E007", seen)

	req = httptest.NewRequest(http.MethodPost, "/api/sales", nil)
	req.Header.Set(EmployeeHeader, "E0000000000000000000000000000000000001")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTestModeFollowsEnvironment(t *testing.T) {
	t.Setenv(TestModeEnv, "0")
	assert.False(t, RefreshTestMode())
	assert.False(t, InTestMode())

	t.Setenv(TestModeEnv, "1")
	assert.False(t, InTestMode(), "cached until refreshed")
	assert.True(t, RefreshTestMode())
	assert.True(t, InTestMode())
}
