// Package metrics provides Prometheus metrics for the feedback service
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for status broadcasting and feedback mutations.
//
// Metrics:
//   - tracked_stream_subscribers - Current number of connected live-update subscribers
//   - tracked_stream_events_published_total{type} - Events delivered to subscribers
//   - tracked_stream_subscribers_evicted_total - Subscribers dropped after a failed write
//   - tracked_feedback_status_changes_total{status} - Status mutations persisted
type Metrics struct {
	Subscribers         prometheus.Gauge
	EventsPublished     *prometheus.CounterVec
	SubscribersEvicted  prometheus.Counter
	FeedbackStatusTotal *prometheus.CounterVec
}

// New creates the metrics and registers them with reg.
// Pass prometheus.DefaultRegisterer in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Subscribers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "tracked_stream_subscribers",
			Help: "Current number of connected live-update subscribers",
		}),
		EventsPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tracked_stream_events_published_total",
				Help: "Total number of events delivered to live-update subscribers",
			},
			[]string{"type"},
		),
		SubscribersEvicted: factory.NewCounter(prometheus.CounterOpts{
			Name: "tracked_stream_subscribers_evicted_total",
			Help: "Total number of subscribers removed after a failed write",
		}),
		FeedbackStatusTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tracked_feedback_status_changes_total",
				Help: "Total number of feedback status changes",
			},
			[]string{"status"},
		),
	}
}
