// Package metrics provides Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pairtalk_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pairtalk_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// MessagesTotal tracks messages appended to the ledger, by type.
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pairtalk_messages_total",
			Help: "Total messages sent",
		},
		[]string{"type"},
	)

	// ConversationsTotal tracks conversations created.
	ConversationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pairtalk_conversations_total",
			Help: "Total conversations created",
		},
	)

	// BlockTogglesTotal tracks block/unblock actions.
	BlockTogglesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pairtalk_block_toggles_total",
			Help: "Total block toggles",
		},
		[]string{"state"},
	)

	// MessagesMarkedRead tracks messages flipped to read.
	MessagesMarkedRead = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pairtalk_messages_marked_read_total",
			Help: "Total messages marked read",
		},
	)
)

// RecordRequest records metrics for one HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}
