package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Search Prometheus metrics.
var (
	SearchStageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_stage_duration_seconds",
			Help:      "Duration of search backend stages in seconds",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		},
		[]string{"stage", "status"}, // company / people / lookup / specialty
	)

	SearchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Sequential searches by mode and outcome",
		},
		[]string{"mode", "status"},
	)

	SessionTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_tokens_total",
			Help:      "Session tokens issued, reused or rejected",
		},
		[]string{"result"},
	)
)

var searchOnce sync.Once

// RegisterSearchMetrics registers the search metrics with the default registry.
func RegisterSearchMetrics() {
	searchOnce.Do(func() {
		prometheus.MustRegister(SearchStageDuration, SearchesTotal, SessionTokensTotal)
	})
}

// SearchObserver records orchestrator and lookup telemetry into
// prometheus vecs. The zero value is unusable; use NewSearchObserver.
type SearchObserver struct {
	stages   *prometheus.HistogramVec
	searches *prometheus.CounterVec
	tokens   *prometheus.CounterVec
}

// NewSearchObserver binds an observer to the given vecs.
func NewSearchObserver(stages *prometheus.HistogramVec, searches, tokens *prometheus.CounterVec) *SearchObserver {
	return &SearchObserver{stages: stages, searches: searches, tokens: tokens}
}

// DefaultSearchObserver uses the package-level vecs.
func DefaultSearchObserver() *SearchObserver {
	return NewSearchObserver(SearchStageDuration, SearchesTotal, SessionTokensTotal)
}

// ObserveStage records one backend stage.
func (o *SearchObserver) ObserveStage(stage, status string, d time.Duration) {
	o.stages.WithLabelValues(stage, status).Observe(d.Seconds())
}

// ObserveSearch counts a finished search.
func (o *SearchObserver) ObserveSearch(mode, status string) {
	o.searches.WithLabelValues(mode, status).Inc()
}

// ObserveToken counts a session token outcome.
func (o *SearchObserver) ObserveToken(outcome string) {
	o.tokens.WithLabelValues(outcome).Inc()
}
