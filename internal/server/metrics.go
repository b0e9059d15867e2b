// metrics.go registers the Prometheus collectors for the HTTP server and
// exposes helpers used by handlers and middleware.

package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/54b3r/recipeai-go/internal/assistant"
	"github.com/54b3r/recipeai-go/internal/search"
	"github.com/54b3r/recipeai-go/internal/substitution"
)

// Metric label values shared across registrations.
const (
	// labelHandler is the "handler" label value used to partition metrics by
	// the logical endpoint name rather than the raw URL path.
	labelHandler = "handler"
)

// Metrics holds all Prometheus metrics owned by the recipe assistant's HTTP
// surface. A single instance is created per process (or per test, against a
// fresh prometheus.Registry, so tests stay hermetic).
type Metrics struct {
	// httpRequestsTotal counts all HTTP requests handled by the mux,
	// partitioned by method, handler, and status code.
	httpRequestsTotal *prometheus.CounterVec

	// httpDurationSeconds records the latency of all HTTP requests.
	httpDurationSeconds *prometheus.HistogramVec

	// searchesTotal counts completed searches by mode: browse, semantic, keyword.
	searchesTotal *prometheus.CounterVec

	// substitutionsTotal counts substitutions by source: table, model, fallback.
	substitutionsTotal *prometheus.CounterVec

	// answersTotal counts answer requests by result kind: answer or recipes.
	answersTotal *prometheus.CounterVec

	// modelCallSeconds records chat model latency by outcome: ok or error.
	modelCallSeconds *prometheus.HistogramVec
}

// NewMetrics registers all metrics against reg and returns them.
// promauto.With(reg) registers into the provided registry rather than the
// global default.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "recipeai",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled by the server, partitioned by method, handler, and status code.",
		}, []string{"method", labelHandler, "code"}),

		httpDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "recipeai",
			Subsystem: "http",
			Name:      "duration_seconds",
			Help:      "Latency of HTTP requests handled by the server.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", labelHandler}),

		searchesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "recipeai",
			Subsystem: "search",
			Name:      "requests_total",
			Help:      "Total number of recipe searches, partitioned by the mode that produced the result.",
		}, []string{"mode"}),

		substitutionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "recipeai",
			Subsystem: "substitution",
			Name:      "requests_total",
			Help:      "Total number of substitution answers, partitioned by source.",
		}, []string{"source"}),

		answersTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "recipeai",
			Subsystem: "answer",
			Name:      "requests_total",
			Help:      "Total number of answer requests, partitioned by whether a grounded answer or a recipe listing was returned.",
		}, []string{"kind"}),

		modelCallSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "recipeai",
			Subsystem: "model",
			Name:      "call_duration_seconds",
			Help:      "Latency of chat model calls made for substitutions and answers.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"outcome"}),
	}
}

// ObserveModelCall records one chat model call. Its signature matches
// substitution.WithModelObserver and answer.WithModelObserver.
func (m *Metrics) ObserveModelCall(d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.modelCallSeconds.WithLabelValues(outcome).Observe(d.Seconds())
}

func (m *Metrics) observeSearch(mode search.Mode) {
	m.searchesTotal.WithLabelValues(string(mode)).Inc()
}

func (m *Metrics) observeSubstitution(src substitution.Source) {
	m.substitutionsTotal.WithLabelValues(string(src)).Inc()
}

func (m *Metrics) observeAnswer(kind assistant.ResultKind) {
	m.answersTotal.WithLabelValues(string(kind)).Inc()
}
