package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderCounters(t *testing.T) {
	r := NewWithRegistry(prometheus.NewRegistry())

	r.RecordFetchAttempt("yahoo", "retry")
	r.RecordFetchAttempt("yahoo", "retry")
	r.RecordFailedSymbols("yahoo", 3)
	r.RecordFailedSymbols("yahoo", 0)
	r.RecordCacheLookup("frame", true)

	if got := testutil.ToFloat64(r.fetchAttempts.WithLabelValues("yahoo", "retry")); got != 2 {
		t.Fatalf("fetch attempts = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.failedSymbols.WithLabelValues("yahoo")); got != 3 {
		t.Fatalf("failed symbols = %v, want 3", got)
	}
	if got := testutil.ToFloat64(r.cacheLookups.WithLabelValues("frame", "hit")); got != 1 {
		t.Fatalf("cache hits = %v, want 1", got)
	}
}
