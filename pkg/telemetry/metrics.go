package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for closeflow.
type Metrics struct {
	config MetricsConfig

	// Operation metrics
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec

	// Store metrics
	storeQueries       *prometheus.CounterVec
	storeQueryDuration *prometheus.HistogramVec
	storeRetries       *prometheus.CounterVec

	// Close metrics
	tasksInitialized *prometheus.CounterVec
	statusUpdates    *prometheus.CounterVec
	closeHealth      *prometheus.GaugeVec
	closeCompletion  *prometheus.GaugeVec
	blockedTasks     *prometheus.GaugeVec
	lateTasks        *prometheus.GaugeVec

	// Policy metrics
	policyViolations *prometheus.CounterVec

	// Error metrics
	errorsByClass *prometheus.CounterVec
	errorsByCode  *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		// Return a no-op metrics instance
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		operationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Total number of close operations dispatched",
			},
			[]string{"operation", "status"},
		),
		operationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Duration of close operations in seconds",
				Buckets:   buckets,
			},
			[]string{"operation"},
		),

		storeQueries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_queries_total",
				Help:      "Total number of store queries",
			},
			[]string{"driver", "status"},
		),
		storeQueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "store_query_duration_seconds",
				Help:      "Duration of store queries in seconds, including retries",
				Buckets:   buckets,
			},
			[]string{"driver"},
		),
		storeRetries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_retries_total",
				Help:      "Total number of retried store requests",
			},
			[]string{"driver"},
		),

		tasksInitialized: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tasks_initialized_total",
				Help:      "Total number of close tasks initialized",
			},
			[]string{"category"},
		),
		statusUpdates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "status_updates_total",
				Help:      "Total number of task status updates",
			},
			[]string{"status"},
		),
		closeHealth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "close_health",
				Help:      "Latest close health per period (1=on track, 0.5=needs attention, 0=at risk)",
			},
			[]string{"period"},
		),
		closeCompletion: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "close_completion_percent",
				Help:      "Latest close completion percentage per period",
			},
			[]string{"period"},
		),
		blockedTasks: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "blocked_tasks",
				Help:      "Latest number of blocked tasks per period",
			},
			[]string{"period"},
		),
		lateTasks: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "late_tasks",
				Help:      "Latest number of late tasks per period",
			},
			[]string{"period"},
		),

		policyViolations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "policy_violations_total",
				Help:      "Total number of close-control policy violations reported",
			},
			[]string{"policy"},
		),

		errorsByClass: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_by_class_total",
				Help:      "Total number of errors by error class",
			},
			[]string{"class"},
		),
		errorsByCode: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_by_code_total",
				Help:      "Total number of errors by error code",
			},
			[]string{"code"},
		),
	}

	registry.MustRegister(
		m.operationsTotal,
		m.operationDuration,
		m.storeQueries,
		m.storeQueryDuration,
		m.storeRetries,
		m.tasksInitialized,
		m.statusUpdates,
		m.closeHealth,
		m.closeCompletion,
		m.blockedTasks,
		m.lateTasks,
		m.policyViolations,
		m.errorsByClass,
		m.errorsByCode,
	)

	return m, nil
}

// Operation Metrics

// RecordOperation records a dispatched operation with its outcome and duration.
func (m *Metrics) RecordOperation(operation, status string, duration time.Duration) {
	if m == nil || m.operationsTotal == nil {
		return
	}
	m.operationsTotal.WithLabelValues(operation, status).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// Store Metrics

// RecordStoreQuery records a store query with its outcome and duration.
func (m *Metrics) RecordStoreQuery(driver string, duration time.Duration, err error) {
	if m == nil || m.storeQueries == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.storeQueries.WithLabelValues(driver, status).Inc()
	m.storeQueryDuration.WithLabelValues(driver).Observe(duration.Seconds())
}

// RecordStoreRetry records one retried store request.
func (m *Metrics) RecordStoreRetry(driver string) {
	if m == nil || m.storeRetries == nil {
		return
	}
	m.storeRetries.WithLabelValues(driver).Inc()
}

// Close Metrics

// RecordTasksInitialized adds initialized task counts by category.
func (m *Metrics) RecordTasksInitialized(byCategory map[string]int) {
	if m == nil || m.tasksInitialized == nil {
		return
	}
	for category, n := range byCategory {
		m.tasksInitialized.WithLabelValues(category).Add(float64(n))
	}
}

// RecordStatusUpdate records a task status update.
func (m *Metrics) RecordStatusUpdate(status string) {
	if m == nil || m.statusUpdates == nil {
		return
	}
	m.statusUpdates.WithLabelValues(status).Inc()
}

// SetCloseHealth publishes the latest health snapshot for a period.
func (m *Metrics) SetCloseHealth(period string, score, completionPct float64, blocked, late int) {
	if m == nil || m.closeHealth == nil {
		return
	}
	m.closeHealth.WithLabelValues(period).Set(score)
	m.closeCompletion.WithLabelValues(period).Set(completionPct)
	m.blockedTasks.WithLabelValues(period).Set(float64(blocked))
	m.lateTasks.WithLabelValues(period).Set(float64(late))
}

// SetBlockedTasks publishes the latest blocked task count for a period.
func (m *Metrics) SetBlockedTasks(period string, blocked int) {
	if m == nil || m.blockedTasks == nil {
		return
	}
	m.blockedTasks.WithLabelValues(period).Set(float64(blocked))
}

// RecordPolicyViolation records a close-control violation.
func (m *Metrics) RecordPolicyViolation(policy string) {
	if m == nil || m.policyViolations == nil {
		return
	}
	m.policyViolations.WithLabelValues(policy).Inc()
}

// Error Metrics

// RecordError records an error by class and optionally by code.
func (m *Metrics) RecordError(errorClass, errorCode string) {
	if m == nil || m.errorsByClass == nil {
		return
	}
	m.errorsByClass.WithLabelValues(errorClass).Inc()
	if errorCode != "" && m.errorsByCode != nil {
		m.errorsByCode.WithLabelValues(errorCode).Inc()
	}
}

// Registry returns the underlying registry, or nil when metrics are disabled.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Timer provides a convenient way to time operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}
