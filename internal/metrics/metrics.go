package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	// ModelAttemptsTotal counts individual model calls by outcome.
	ModelAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "xraylens",
		Subsystem: "model",
		Name:      "attempts_total",
		Help:      "Total number of remote model calls, labeled by error kind or \"ok\".",
	}, []string{"outcome"})

	// RetriesTotal counts backoff waits scheduled after a transient failure.
	RetriesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "xraylens",
		Subsystem: "model",
		Name:      "retries_total",
		Help:      "Total number of retries scheduled after transient model failures.",
	})

	// RetriesExhaustedTotal counts retry sequences that gave up.
	RetriesExhaustedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "xraylens",
		Subsystem: "model",
		Name:      "retries_exhausted_total",
		Help:      "Total number of retry sequences that ran out of attempts.",
	})

	// AnalysisDurationSeconds is end-to-end time per analysis, fetch included.
	AnalysisDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "xraylens",
		Subsystem: "analysis",
		Name:      "duration_seconds",
		Help:      "End-to-end time to serve an analysis or translation request.",
		Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60, 120, 300},
	}, []string{"mode", "outcome"})

	// ConnectivityUp is 1 after a successful probe and 0 after a failed one.
	ConnectivityUp = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "xraylens",
		Subsystem: "model",
		Name:      "connectivity_up",
		Help:      "Result of the most recent connectivity probe.",
	})
)

// Register registers the metrics with the default Prometheus registry.
// Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			ModelAttemptsTotal,
			RetriesTotal,
			RetriesExhaustedTotal,
			AnalysisDurationSeconds,
			ConnectivityUp,
		)
	})
}

// Handler registers the metrics and returns the scrape handler.
func Handler() http.Handler {
	Register()
	return promhttp.Handler()
}
