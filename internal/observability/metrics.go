package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// MetricsCollector holds all Prometheus metrics for Relay.
// Uses a custom registry — no global state.
type MetricsCollector struct {
	Registry *prometheus.Registry

	// Action execution metrics.
	ActionExecutionsTotal   *prometheus.CounterVec
	ActionExecutionDuration *prometheus.HistogramVec

	// Run lifecycle metrics.
	RunsTotal        *prometheus.CounterVec
	RunActionsTotal  *prometheus.CounterVec
	PendingApprovals prometheus.Gauge

	// Undo metrics.
	UndoTotal *prometheus.CounterVec

	// Outbound delivery metrics.
	OutboundTotal *prometheus.CounterVec

	// Reminder metrics.
	RemindersSentTotal prometheus.Counter

	// HTTP gateway metrics.
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	ActiveRequests      prometheus.Gauge
}

// NewMetricsCollector creates a MetricsCollector with all metrics registered
// on a custom prometheus.Registry.
func NewMetricsCollector() *MetricsCollector {
	reg := prometheus.NewRegistry()

	m := &MetricsCollector{
		Registry: reg,

		ActionExecutionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relay",
			Subsystem: "action",
			Name:      "executions_total",
			Help:      "Total action executions.",
		}, []string{"action", "status"}),

		ActionExecutionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "relay",
			Subsystem: "action",
			Name:      "execution_duration_seconds",
			Help:      "Action execution duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"action"}),

		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relay",
			Subsystem: "run",
			Name:      "runs_total",
			Help:      "Total runs by final status.",
		}, []string{"status"}),

		RunActionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relay",
			Subsystem: "run",
			Name:      "actions_total",
			Help:      "Total run actions by outcome.",
		}, []string{"status"}),

		PendingApprovals: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "relay",
			Subsystem: "run",
			Name:      "pending_approvals",
			Help:      "Runs currently awaiting approval.",
		}),

		UndoTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relay",
			Subsystem: "undo",
			Name:      "operations_total",
			Help:      "Total undo operations.",
		}, []string{"status"}),

		OutboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relay",
			Subsystem: "outbound",
			Name:      "messages_total",
			Help:      "Total outbound messages by channel and status.",
		}, []string{"channel", "status"}),

		RemindersSentTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "relay",
			Subsystem: "reminder",
			Name:      "digests_sent_total",
			Help:      "Total follow-up reminder digests sent.",
		}),

		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relay",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		}, []string{"method", "path", "status"}),

		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "relay",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		}, []string{"method", "path"}),

		ActiveRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "relay",
			Subsystem: "http",
			Name:      "active_requests",
			Help:      "In-flight HTTP requests.",
		}),
	}

	reg.MustRegister(
		m.ActionExecutionsTotal,
		m.ActionExecutionDuration,
		m.RunsTotal,
		m.RunActionsTotal,
		m.PendingApprovals,
		m.UndoTotal,
		m.OutboundTotal,
		m.RemindersSentTotal,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.ActiveRequests,
	)

	return m
}
