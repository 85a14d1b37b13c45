package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInstancesDoNotShareRegistry(t *testing.T) {
	a := New()
	b := New()

	a.PriceChanged("recipe")
	a.PriceChanged("recipe")
	b.PriceChanged("recipe")

	if got := testutil.ToFloat64(a.priceChanges.WithLabelValues("recipe")); got != 2 {
		t.Fatalf("expected 2 recipe changes on a, got %v", got)
	}
	if got := testutil.ToFloat64(b.priceChanges.WithLabelValues("recipe")); got != 1 {
		t.Fatalf("expected 1 recipe change on b, got %v", got)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.PriceChanged("channel")
	m.SkuAllocated("recipe", true)
	m.ObserveRequest(http.MethodGet, "/healthz", http.StatusOK, time.Millisecond)
}

func TestHandlerExposesRequestMetrics(t *testing.T) {
	m := New()
	m.ObserveRequest(http.MethodGet, "/api/v1/recipes", http.StatusOK, 20*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rec.Body.String()
	if !strings.Contains(body, `hitunghpp_http_requests_total{method="GET",route="/api/v1/recipes",status="200"} 1`) {
		t.Fatalf("expected request counter in output, got:\n%s", body)
	}
}
