package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordEvent(t *testing.T) {
	m := New()
	m.RecordEvent("archived")
	m.RecordEvent("archived")
	m.RecordEvent("answered")

	if got := testutil.ToFloat64(m.EventsTotal.WithLabelValues("archived")); got != 2 {
		t.Errorf("Expected 2 archived events, got %v", got)
	}
	if got := testutil.ToFloat64(m.EventsTotal.WithLabelValues("answered")); got != 1 {
		t.Errorf("Expected 1 answered event, got %v", got)
	}
}

func TestIndependentRegistries(t *testing.T) {
	a := New()
	b := New()
	a.ArchivedTotal.Inc()

	if got := testutil.ToFloat64(b.ArchivedTotal); got != 0 {
		t.Errorf("Expected separate registries, got %v", got)
	}
}

func TestHandler(t *testing.T) {
	m := New()
	m.RecordGatewayCall("anthropic", "ok", 1500*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `chatrecall_gateway_requests_total{provider="anthropic",status="ok"} 1`) {
		t.Errorf("Expected gateway counter in output, got:\n%s", body)
	}
}
