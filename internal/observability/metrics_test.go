package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordRequest("chat", "offline", 120*time.Millisecond)
	m.RecordRequest("chat", "offline", 80*time.Millisecond)
	m.RecordProviderError("timeout")
	m.RecordCache(true)
	m.RecordCache(false)
	m.RecordCache(false)
	m.RecordRetrievalFailure("embed")
	m.RecordSessionLimit()

	if got := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("chat", "offline")); got != 2 {
		t.Errorf("requests = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.ProviderErrorsTotal.WithLabelValues("timeout")); got != 1 {
		t.Errorf("provider errors = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.RetrievalCacheTotal.WithLabelValues("miss")); got != 2 {
		t.Errorf("cache misses = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.SessionLimitTotal); got != 1 {
		t.Errorf("session limit = %v, want 1", got)
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.RecordRequest("ask", "offline", time.Second)
	m.RecordProviderError("timeout")
	m.RecordCache(true)
	m.RecordRetrievalFailure("index")
	m.RecordSessionLimit()
}
