package metrics

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prism_runs_total",
			Help: "Pipeline runs by research mode and outcome",
		},
		[]string{"mode", "outcome"},
	)

	runDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "prism_run_duration_seconds",
			Help:    "Pipeline run duration in seconds",
			Buckets: []float64{5, 15, 30, 60, 120, 300, 600, 900, 1800},
		},
		[]string{"mode"},
	)

	llmAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prism_llm_attempts_total",
			Help: "Model call attempts by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	sourcesStripped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "prism_sources_stripped_total",
			Help: "Voice source URLs removed because they were not discovered during research",
		},
	)

	titleFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prism_title_fetch_total",
			Help: "Source title fetches by outcome",
		},
		[]string{"outcome"},
	)
)

// ObserveRun records a finished pipeline run.
func ObserveRun(mode, outcome string, elapsed time.Duration) {
	runsTotal.WithLabelValues(mode, outcome).Inc()
	runDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
}

// IncLLMAttempt counts one model call attempt.
func IncLLMAttempt(kind, outcome string) {
	llmAttempts.WithLabelValues(kind, outcome).Inc()
}

// AddSourcesStripped counts stripped voice sources.
func AddSourcesStripped(n int) {
	if n > 0 {
		sourcesStripped.Add(float64(n))
	}
}

// IncTitleFetch counts one title fetch.
func IncTitleFetch(outcome string) {
	titleFetches.WithLabelValues(outcome).Inc()
}

// Handler exposes the default registry in Prometheus text format.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
