package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveHTTP("GET", "/api/transactions", 200, time.Millisecond)
	m.ObserveLedgerOp("create", nil)
	m.ObserveConversion(OutcomeFallback)
	m.ObserveRateFetch(false, time.Second)
	m.ObserveEventPublish("transaction.created", errors.New("down"))
	m.IncRateLimitExceeded()
	m.IncIdempotentReplay()
	m.IncSuspiciousRequest()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 from nil metrics handler, got %d", rec.Code)
	}
}

func TestCounters(t *testing.T) {
	m := New()

	m.ObserveConversion(OutcomeConverted)
	m.ObserveConversion(OutcomeConverted)
	m.ObserveConversion(OutcomeFallback)
	m.ObserveLedgerOp("create", nil)
	m.ObserveLedgerOp("create", errors.New("boom"))
	m.ObserveRateFetch(false, 10*time.Millisecond)

	if got := testutil.ToFloat64(m.conversions.WithLabelValues(OutcomeConverted)); got != 2 {
		t.Fatalf("converted = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.conversions.WithLabelValues(OutcomeFallback)); got != 1 {
		t.Fatalf("fallback = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ledgerOps.WithLabelValues("create", "error")); got != 1 {
		t.Fatalf("create errors = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.rateFetches.WithLabelValues("error")); got != 1 {
		t.Fatalf("rate fetch errors = %v, want 1", got)
	}
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := New()
	m.ObserveHTTP("POST", "/api/transactions", 201, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `fxledger_http_requests_total{method="POST",route="/api/transactions",status="201"} 1`) {
		t.Fatalf("missing request counter in output:\n%s", body)
	}
}
