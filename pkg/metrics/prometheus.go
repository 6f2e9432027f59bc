// Package metrics provides Prometheus metrics for the evently client.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector the client records into.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Backend client
	backendRequests        *prometheus.CounterVec
	backendRequestDuration *prometheus.HistogramVec

	// Matching
	matchOutcomes *prometheus.CounterVec
	teamsReceived prometheus.Histogram

	// Session
	sessionChanges   *prometheus.CounterVec
	sessionMalformed prometheus.Counter

	// Notifications
	notificationsPublished *prometheus.CounterVec
	notificationsDropped   prometheus.Counter
	notificationBacklog    prometheus.Gauge

	// Import
	importItems *prometheus.CounterVec

	// Local status surface
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "evently",
		subsystem:        "client",
		histogramBuckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		enabled:          true,
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.backendRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "backend_requests_total",
		Help:        "Backend requests by operation and outcome status",
		ConstLabels: m.constLabels,
	}, []string{"operation", "status"})

	m.backendRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "backend_request_duration_milliseconds",
		Help:        "Backend round trip latency in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"operation"})

	m.matchOutcomes = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "match_outcomes_total",
		Help:        "Find-teams attempts by outcome",
		ConstLabels: m.constLabels,
	}, []string{"outcome"})

	m.teamsReceived = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "match_teams_received",
		Help:        "Number of teams in applied match results",
		Buckets:     []float64{0, 1, 2, 3, 5, 8, 13, 21},
		ConstLabels: m.constLabels,
	})

	m.sessionChanges = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "session_changes_total",
		Help:        "Observed session transitions by kind",
		ConstLabels: m.constLabels,
	}, []string{"kind"})

	m.sessionMalformed = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "session_malformed_total",
		Help:        "Stored session values that failed to decode and were treated as absent",
		ConstLabels: m.constLabels,
	})

	m.notificationsPublished = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "notifications_published_total",
		Help:        "Notifications accepted by the queue by level",
		ConstLabels: m.constLabels,
	}, []string{"level"})

	m.notificationsDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "notifications_dropped_total",
		Help:        "Notifications dropped because the queue was full or closed",
		ConstLabels: m.constLabels,
	})

	m.notificationBacklog = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "notification_backlog",
		Help:        "Notifications waiting to be consumed",
		ConstLabels: m.constLabels,
	})

	m.importItems = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "import_items_total",
		Help:        "Bulk import items by kind and result",
		ConstLabels: m.constLabels,
	}, []string{"kind", "result"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_requests_total",
		Help:        "Requests served by the local status surface",
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_milliseconds",
		Help:        "Local status surface latency in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})
}

// GetRegistry returns the registry backing the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// RecordBackendRequest records one backend round trip.
func (m *Manager) RecordBackendRequest(operation, status string, durationMs float64) {
	if !m.enabled {
		return
	}
	m.backendRequests.WithLabelValues(operation, status).Inc()
	m.backendRequestDuration.WithLabelValues(operation).Observe(durationMs)
}

// RecordMatchOutcome records the outcome of one find-teams attempt.
func (m *Manager) RecordMatchOutcome(outcome string) {
	if !m.enabled {
		return
	}
	m.matchOutcomes.WithLabelValues(outcome).Inc()
}

// RecordTeamsReceived records the size of an applied team list.
func (m *Manager) RecordTeamsReceived(n int) {
	if !m.enabled {
		return
	}
	m.teamsReceived.Observe(float64(n))
}

// RecordSessionChange records a session transition (login, logout, external).
func (m *Manager) RecordSessionChange(kind string) {
	if !m.enabled {
		return
	}
	m.sessionChanges.WithLabelValues(kind).Inc()
}

// RecordSessionMalformed records a stored session that failed to decode.
func (m *Manager) RecordSessionMalformed() {
	if !m.enabled {
		return
	}
	m.sessionMalformed.Inc()
}

// RecordNotificationPublished records an accepted notification.
func (m *Manager) RecordNotificationPublished(level string) {
	if !m.enabled {
		return
	}
	m.notificationsPublished.WithLabelValues(level).Inc()
}

// RecordNotificationDropped records a rejected notification.
func (m *Manager) RecordNotificationDropped() {
	if !m.enabled {
		return
	}
	m.notificationsDropped.Inc()
}

// UpdateNotificationBacklog sets the number of pending notifications.
func (m *Manager) UpdateNotificationBacklog(n int) {
	if !m.enabled {
		return
	}
	m.notificationBacklog.Set(float64(n))
}

// RecordImportItem records one bulk import item.
func (m *Manager) RecordImportItem(kind, result string) {
	if !m.enabled {
		return
	}
	m.importItems.WithLabelValues(kind, result).Inc()
}

// RecordHTTPRequest records one request served by the local status surface.
func (m *Manager) RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	if !m.enabled {
		return
	}
	m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// Package-level helpers recording into the global manager.

func RecordBackendRequest(operation, status string, durationMs float64) {
	globalManager.RecordBackendRequest(operation, status, durationMs)
}

func RecordMatchOutcome(outcome string) { globalManager.RecordMatchOutcome(outcome) }

func RecordTeamsReceived(n int) { globalManager.RecordTeamsReceived(n) }

func RecordSessionChange(kind string) { globalManager.RecordSessionChange(kind) }

func RecordSessionMalformed() { globalManager.RecordSessionMalformed() }

func RecordNotificationPublished(level string) { globalManager.RecordNotificationPublished(level) }

func RecordNotificationDropped() { globalManager.RecordNotificationDropped() }

func UpdateNotificationBacklog(n int) { globalManager.UpdateNotificationBacklog(n) }

func RecordImportItem(kind, result string) { globalManager.RecordImportItem(kind, result) }

func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.RecordHTTPRequest(endpoint, method, statusCode, durationMs)
}
