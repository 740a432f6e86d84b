// Package metrics provides Prometheus metrics for the molehit game service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager owns all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         *prometheus.Registry

	// Gameplay metrics
	sessionsStarted prometheus.Counter
	sessionsEnded   *prometheus.CounterVec
	activeSessions  prometheus.Gauge
	targetsSpawned  prometheus.Counter
	targetsExpired  prometheus.Counter
	targetHits      prometheus.Counter
	keystrokeMisses prometheus.Counter
	reactionTime    prometheus.Histogram
	finalScore      prometheus.Histogram

	// Reconciliation and storage
	reconcileRejects prometheus.Counter
	storageErrors    prometheus.Counter

	// Event stream
	eventSubscribers prometheus.Gauge
	eventsDropped    prometheus.Counter

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager()
}

// NewManager creates a metrics manager with its own registry.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "molehit",
		subsystem:        "game",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.NewRegistry(),
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.sessionsStarted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sessions_started_total",
		Help:      "Total number of game sessions started",
	})

	m.sessionsEnded = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sessions_ended_total",
		Help:      "Total number of game sessions ended, by completion kind",
	}, []string{"completed"})

	m.activeSessions = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "active_sessions",
		Help:      "Number of sessions currently live",
	})

	m.targetsSpawned = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "targets_spawned_total",
		Help:      "Total number of targets spawned",
	})

	m.targetsExpired = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "targets_expired_total",
		Help:      "Total number of targets that expired unhit",
	})

	m.targetHits = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "target_hits_total",
		Help:      "Total number of targets hit",
	})

	m.keystrokeMisses = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "keystroke_misses_total",
		Help:      "Total keystrokes that matched no visible target",
	})

	m.reactionTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "reaction_time_ms",
		Help:      "Reaction time per hit in milliseconds",
		Buckets:   []float64{100, 200, 300, 500, 750, 1000, 1500, 2000, 3000, 4000},
	})

	m.finalScore = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "final_score",
		Help:      "Final score distribution of completed sessions",
		Buckets:   []float64{50, 100, 250, 500, 1000, 2000, 4000, 8000},
	})

	m.reconcileRejects = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "reconcile_rejects_total",
		Help:      "Session results rejected by reconciliation validation",
	})

	m.storageErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "storage_errors_total",
		Help:      "Failures persisting completed sessions",
	})

	m.eventSubscribers = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "event_subscribers",
		Help:      "Number of connected session event subscribers",
	})

	m.eventsDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_dropped_total",
		Help:      "Session events dropped due to slow subscribers",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by endpoint, method and status",
	}, []string{"endpoint", "method", "status"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_ms",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method"})
}

// Handler returns an HTTP handler serving the manager's registry.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Package-level helpers operating on the global manager.

func RecordSessionStarted() { globalManager.sessionsStarted.Inc() }

func RecordSessionEnded(completed bool) {
	label := "false"
	if completed {
		label = "true"
	}
	globalManager.sessionsEnded.WithLabelValues(label).Inc()
}

func UpdateActiveSessions(n int)         { globalManager.activeSessions.Set(float64(n)) }
func RecordTargetSpawned()               { globalManager.targetsSpawned.Inc() }
func RecordTargetExpired()               { globalManager.targetsExpired.Inc() }
func RecordTargetHit()                   { globalManager.targetHits.Inc() }
func RecordKeystrokeMiss()               { globalManager.keystrokeMisses.Inc() }
func ObserveReactionTime(ms float64)     { globalManager.reactionTime.Observe(ms) }
func ObserveFinalScore(score float64)    { globalManager.finalScore.Observe(score) }
func RecordReconcileReject()             { globalManager.reconcileRejects.Inc() }
func RecordStorageError()                { globalManager.storageErrors.Inc() }
func UpdateEventSubscribers(n int)       { globalManager.eventSubscribers.Set(float64(n)) }
func RecordEventDropped()                { globalManager.eventsDropped.Inc() }

func RecordHTTPRequest(endpoint, method, status string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, status).Inc()
}

func RecordHTTPRequestDuration(endpoint, method string, ms float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method).Observe(ms)
}

// Handler returns the HTTP handler for the global manager's registry.
func Handler() http.Handler { return globalManager.Handler() }
