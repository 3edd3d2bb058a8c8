package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder exports metrics through a Prometheus registry.
type PrometheusRecorder struct {
	transportCalls    *prometheus.CounterVec
	transportDuration *prometheus.HistogramVec
	refreshes         *prometheus.CounterVec
	notifications     *prometheus.CounterVec
	activeSessions    prometheus.Gauge
}

// NewPrometheus registers the console collectors with reg.
func NewPrometheus(reg prometheus.Registerer) *PrometheusRecorder {
	p := &PrometheusRecorder{
		transportCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "userdash",
				Subsystem: "transport",
				Name:      "calls_total",
				Help:      "Calls to the remote user service by operation and outcome.",
			},
			[]string{"op", "outcome"},
		),
		transportDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "userdash",
				Subsystem: "transport",
				Name:      "call_duration_seconds",
				Help:      "Remote user service round trip latency.",
				Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"op", "outcome"},
		),
		refreshes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "userdash",
				Subsystem: "dashboard",
				Name:      "refreshes_total",
				Help:      "List refreshes by outcome (applied|stale|failed).",
			},
			[]string{"outcome"},
		),
		notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "userdash",
				Subsystem: "dashboard",
				Name:      "notifications_total",
				Help:      "Notifications shown to operators by kind.",
			},
			[]string{"kind"},
		),
		activeSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "userdash",
				Subsystem: "session",
				Name:      "active",
				Help:      "Dashboard sessions currently mounted.",
			},
		),
	}
	reg.MustRegister(p.transportCalls, p.transportDuration, p.refreshes, p.notifications, p.activeSessions)

	return p
}

// ObserveTransportCall records a remote call.
func (p *PrometheusRecorder) ObserveTransportCall(op, outcome string, duration time.Duration) {
	p.transportCalls.WithLabelValues(op, outcome).Inc()
	p.transportDuration.WithLabelValues(op, outcome).Observe(duration.Seconds())
}

// IncRefresh records a list refresh.
func (p *PrometheusRecorder) IncRefresh(outcome string) {
	p.refreshes.WithLabelValues(outcome).Inc()
}

// IncNotification records a notification.
func (p *PrometheusRecorder) IncNotification(kind string) {
	p.notifications.WithLabelValues(kind).Inc()
}

// SetActiveSessions sets the mounted session gauge.
func (p *PrometheusRecorder) SetActiveSessions(n int) {
	p.activeSessions.Set(float64(n))
}
