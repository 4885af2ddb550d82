package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	jobmetrics "github.com/odyssey-erp/odyssey-pos/internal/jobs"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("scrape status: %d", rr.Code)
	}
	return rr.Body.String()
}

func TestRegistererSharesRegistryWithJobMetrics(t *testing.T) {
	metrics := NewMetrics()
	_ = jobmetrics.NewMetrics(metrics.Registerer()).Track("inventory:low_stock_scan").End(nil)

	body := scrape(t, metrics)
	if !strings.Contains(body, `odyssey_jobs_total{job="inventory:low_stock_scan",status="success"} 1`) {
		t.Fatalf("job counter missing from shared registry: %s", body)
	}
	if !strings.Contains(body, "go_goroutines") {
		t.Fatalf("runtime collector missing: %s", body)
	}
}

func TestMiddlewareLabelsByRoutePattern(t *testing.T) {
	metrics := NewMetrics()
	router := chi.NewRouter()
	router.Use(metrics.Middleware)
	router.Get("/api/sales/{key}", func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(scrape(t, metrics), "odyssey_http_requests_in_flight 1") {
			t.Errorf("in-flight gauge not raised during request")
		}
		w.WriteHeader(http.StatusTeapot)
	})

	for _, key := range []string{"INV001", "INV002"} {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/sales/"+key, nil))
		if rr.Code != http.StatusTeapot {
			t.Fatalf("expected status %d, got %d", http.StatusTeapot, rr.Code)
		}
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	body := scrape(t, metrics)
	if !strings.Contains(body, `odyssey_http_requests_total{code="418",route="/api/sales/{key}"} 2`) {
		t.Fatalf("expected request counter per pattern, got: %s", body)
	}
	if !strings.Contains(body, `odyssey_http_requests_total{code="404",route="unmatched"} 1`) {
		t.Fatalf("expected unmatched route label, got: %s", body)
	}
	if !strings.Contains(body, `odyssey_http_request_duration_seconds_count{route="/api/sales/{key}"} 2`) {
		t.Fatalf("expected duration histogram, got: %s", body)
	}
	if !strings.Contains(body, "odyssey_http_requests_in_flight 0") {
		t.Fatalf("in-flight gauge not released: %s", body)
	}
}

func TestNilMetricsPassThrough(t *testing.T) {
	var metrics *Metrics
	called := false
	handler := metrics.Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if !called {
		t.Fatal("nil metrics must not swallow requests")
	}

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 from nil metrics handler, got %d", rr.Code)
	}
}

func TestObserveCommitRecordsOutcome(t *testing.T) {
	metrics := NewMetrics()
	metrics.ObserveCommit("commit_sale", "ok", 12*time.Millisecond)
	metrics.ObserveCommit("commit_sale", "insufficient_stock", 3*time.Millisecond)

	body := scrape(t, metrics)

	if !strings.Contains(body, `odyssey_order_commits_total{op="commit_sale",outcome="ok"} 1`) {
		t.Fatalf("expected ok commit counter, got: %s", body)
	}
	if !strings.Contains(body, `odyssey_order_commits_total{op="commit_sale",outcome="insufficient_stock"} 1`) {
		t.Fatalf("expected insufficient_stock commit counter, got: %s", body)
	}
	if !strings.Contains(body, `odyssey_order_commit_duration_seconds_count{op="commit_sale"} 2`) {
		t.Fatalf("expected commit histogram count, got: %s", body)
	}

	metrics.ObserveRetry("commit_sale")
	if body := scrape(t, metrics); !strings.Contains(body, `odyssey_order_commit_retries_total{op="commit_sale"} 1`) {
		t.Fatalf("expected retry counter, got: %s", body)
	}

	var nilMetrics *Metrics
	nilMetrics.ObserveCommit("commit_sale", "ok", time.Millisecond)
	nilMetrics.ObserveRetry("commit_sale")
}
