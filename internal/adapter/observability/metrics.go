package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"route", "method"},
	)

	ChatTurnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_turns_total",
			Help: "Total number of chat turns by detected language and intent",
		},
		[]string{"language", "intent"},
	)
	ChatTurnDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chat_turn_duration_seconds",
			Help:    "Chat turn processing time in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 3},
		},
	)
	ChatConfidenceHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chat_confidence",
			Help:    "Distribution of the heuristic profile confidence per turn",
			Buckets: []float64{0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
	)
	ChatTurnsRateLimitedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_turns_rate_limited_total",
			Help: "Total number of chat turns rejected by the per-session limiter",
		},
	)

	SessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sessions_active",
			Help: "Number of sessions currently held by the session store",
		},
	)
	SessionsCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sessions_created_total",
			Help: "Total number of sessions created",
		},
	)
	SessionsEvictedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sessions_evicted_total",
			Help: "Total number of sessions evicted by reason",
		},
		[]string{"reason"},
	)

	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_requests_total",
			Help: "Total number of web search lookups by outcome",
		},
		[]string{"outcome"},
	)
	SearchRequestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "search_request_duration_seconds",
			Help:    "Web search lookup duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
	)
	CircuitBreakerStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0 closed, 1 open, 2 half-open)",
		},
		[]string{"name"},
	)

	DocumentsGeneratedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "documents_generated_total",
			Help: "Total number of generated documents by type",
		},
		[]string{"type"},
	)
	EventsPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_published_total",
			Help: "Total number of conversation events published by type and outcome",
		},
		[]string{"type", "outcome"},
	)
)

var registerOnce sync.Once

// InitMetrics registers every collector with the default registry. Safe to
// call more than once.
func InitMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDuration,
			ChatTurnsTotal,
			ChatTurnDuration,
			ChatConfidenceHistogram,
			ChatTurnsRateLimitedTotal,
			SessionsActive,
			SessionsCreatedTotal,
			SessionsEvictedTotal,
			SearchRequestsTotal,
			SearchRequestDuration,
			CircuitBreakerStatus,
			DocumentsGeneratedTotal,
			EventsPublishedTotal,
		)
	})
}

// HTTPMetricsMiddleware records Prometheus metrics for each request.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		dur := time.Since(start).Seconds()
		// Route pattern may be unavailable outside chi router; guard nil
		var route string
		if rc := chi.RouteContext(r.Context()); rc != nil {
			route = rc.RoutePattern()
		}
		if route == "" {
			route = r.URL.Path
		}
		HTTPRequestsTotal.WithLabelValues(route, r.Method, http.StatusText(ww.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(route, r.Method).Observe(dur)
	})
}

// ObserveChatTurn records one completed chat turn.
func ObserveChatTurn(language, intent string, confidence float64, d time.Duration) {
	ChatTurnsTotal.WithLabelValues(language, intent).Inc()
	ChatTurnDuration.Observe(d.Seconds())
	if confidence >= 0 && confidence <= 1 {
		ChatConfidenceHistogram.Observe(confidence)
	}
}

// RateLimitedTurn counts a turn rejected by the per-session limiter.
func RateLimitedTurn() { ChatTurnsRateLimitedTotal.Inc() }

// SessionCreated counts a new session.
func SessionCreated() { SessionsCreatedTotal.Inc() }

// SessionEvicted counts an evicted session; reason is "ttl" or "capacity".
func SessionEvicted(reason string) { SessionsEvictedTotal.WithLabelValues(reason).Inc() }

// SetActiveSessions reports the current session count.
func SetActiveSessions(n int) { SessionsActive.Set(float64(n)) }

// ObserveSearch records a web search lookup; outcome is "ok", "empty",
// "error" or "circuit_open".
func ObserveSearch(outcome string, d time.Duration) {
	SearchRequestsTotal.WithLabelValues(outcome).Inc()
	SearchRequestDuration.Observe(d.Seconds())
}

// RecordCircuitBreakerStatus reports a breaker's state.
func RecordCircuitBreakerStatus(name string, state CircuitBreakerState) {
	CircuitBreakerStatus.WithLabelValues(name).Set(float64(state))
}

// DocumentGenerated counts a generated document.
func DocumentGenerated(docType string) { DocumentsGeneratedTotal.WithLabelValues(docType).Inc() }

// EventPublished counts a publish attempt; outcome is "ok" or "error".
func EventPublished(eventType, outcome string) {
	EventsPublishedTotal.WithLabelValues(eventType, outcome).Inc()
}
