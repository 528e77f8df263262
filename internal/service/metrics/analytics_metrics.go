package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	ViewLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sectorscope",
			Subsystem: "view",
			Name:      "latency_seconds",
			Help:      "End to end latency of view pipelines",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"view"},
	)

	ViewRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sectorscope",
			Subsystem: "view",
			Name:      "runs_total",
			Help:      "View pipeline runs by status",
		},
		[]string{"view", "status"},
	)
)

// Register adds the view collectors to the default registry once.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(ViewLatency, ViewRuns)
	})
}

// ObserveRun records one pipeline run. status is ok, empty or error.
func ObserveRun(view, status string, started time.Time) {
	ViewLatency.WithLabelValues(view).Observe(time.Since(started).Seconds())
	ViewRuns.WithLabelValues(view, status).Inc()
}
