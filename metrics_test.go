package synapse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewMetricsCollectorWithRegistry(t *testing.T) {
	registry := prometheus.NewRegistry()
	collector := NewMetricsCollectorWithRegistry(registry)

	if collector == nil {
		t.Fatal("NewMetricsCollectorWithRegistry() returned nil")
	}
	if collector.requestsTotal == nil || collector.attemptsTotal == nil || collector.errorsTotal == nil {
		t.Error("metrics not initialized")
	}
}

func TestNilMetricsCollector(t *testing.T) {
	var collector *MetricsCollector

	collector.RecordRequest("GET", "x/", 200, time.Second)
	collector.RecordRequestStart("GET", "x/")
	collector.RecordRequestEnd("GET", "x/")
	collector.RecordAttempt("GET", "x/", "success")
	collector.RecordRetry("GET", "x/", 1)
	collector.RecordCircuitBreakerState("default", StateOpen)
	collector.RecordError(ErrorTypeHTTP, "GET", "x/")
}

func TestRecordCircuitBreakerState(t *testing.T) {
	collector := NewMetricsCollectorWithRegistry(prometheus.NewRegistry())

	collector.RecordCircuitBreakerState("backend", StateHalfOpen)

	if got := testutil.ToFloat64(collector.circuitBreakerState.WithLabelValues("backend")); got != 2 {
		t.Errorf("circuit breaker gauge = %v, want 2", got)
	}
}

func TestClientRecordsMetrics(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	registry := prometheus.NewRegistry()
	collector := NewMetricsCollectorWithRegistry(registry)
	client, _ := newTestClient(t, server, WithMetricsCollector(collector))

	if _, err := client.Get(context.Background(), "/items", WithRetries(1), WithRetryDelay(time.Millisecond)); err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	label := endpointLabel(server.URL + "/items")

	if got := testutil.ToFloat64(collector.attemptsTotal.WithLabelValues("GET", label, "http_error")); got != 1 {
		t.Errorf("http_error attempts = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.attemptsTotal.WithLabelValues("GET", label, "success")); got != 1 {
		t.Errorf("success attempts = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.retriesTotal.WithLabelValues("GET", label, "1")); got != 1 {
		t.Errorf("retries = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.requestsInFlight.WithLabelValues("GET", label)); got != 0 {
		t.Errorf("in flight = %v, want 0", got)
	}

	expected := `
# HELP synapse_requests_total Total number of logical calls by final status
# TYPE synapse_requests_total counter
synapse_requests_total{endpoint="` + label + `",method="GET",status_code="200"} 1
`
	if err := testutil.CollectAndCompare(collector.requestsTotal, strings.NewReader(expected)); err != nil {
		t.Errorf("requests_total mismatch: %v", err)
	}
}

func TestClientRecordsErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	collector := NewMetricsCollectorWithRegistry(prometheus.NewRegistry())
	client, _ := newTestClient(t, server, WithMetricsCollector(collector))

	_, _ = client.Get(context.Background(), "/missing")

	label := endpointLabel(server.URL + "/missing")
	if got := testutil.ToFloat64(collector.errorsTotal.WithLabelValues(ErrorTypeHTTP, "GET", label)); got != 1 {
		t.Errorf("errors_total = %v, want 1", got)
	}
}
