package obs

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	guardDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workflow_guard_decisions_total",
			Help: "Authorization decisions by outcome and reason.",
		},
		[]string{"decision", "reason"},
	)

	transitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workflow_transition_attempts_total",
			Help: "Workflow action attempts by entity type, action and outcome.",
		},
		[]string{"entity_type", "action", "outcome"},
	)

	assigneeUnresolvedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workflow_assignee_unresolved_total",
			Help: "Transitions that entered a review state without an assignee.",
		},
		[]string{"entity_type", "state"},
	)

	sideEffectsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workflow_side_effects_total",
			Help: "Side-effect intents by kind and delivery result.",
		},
		[]string{"kind", "result"},
	)

	registerOnce sync.Once
)

// Init registers every collector in the default registry. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpInFlight,
			httpRequestsTotal,
			httpRequestDuration,
			guardDecisionsTotal,
			transitionsTotal,
			assigneeUnresolvedTotal,
			sideEffectsTotal,
		)
	})
}

func Handler() http.Handler {
	return promhttp.Handler()
}

func ObserveGuardDecision(allowed bool, reason string) {
	decision := "deny"
	if allowed {
		decision = "allow"
	}
	guardDecisionsTotal.WithLabelValues(decision, reason).Inc()
}

func ObserveTransition(entityType, action, outcome string) {
	transitionsTotal.WithLabelValues(entityType, action, outcome).Inc()
}

func ObserveAssigneeUnresolved(entityType, state string) {
	assigneeUnresolvedTotal.WithLabelValues(entityType, state).Inc()
}

func ObserveSideEffect(kind, result string) {
	sideEffectsTotal.WithLabelValues(kind, result).Inc()
}

// Instrument records RPS, latency and in-flight requests. Paths are labelled
// with the chi route pattern so entity ids do not explode cardinality.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method := r.Method

		httpInFlight.Inc()
		defer httpInFlight.Dec()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	})
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
