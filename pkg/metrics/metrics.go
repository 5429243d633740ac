// Package metrics provides Prometheus metrics for the screening service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DetectionRunsTotal tracks detection passes by outcome
	DetectionRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "thistle",
			Subsystem: "detection",
			Name:      "runs_total",
			Help:      "Total number of detection passes by status",
		},
		[]string{"status", "forced"},
	)

	// DetectionRunDuration tracks how long a group pass takes
	DetectionRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "thistle",
			Subsystem: "detection",
			Name:      "run_duration_seconds",
			Help:      "Duration of detection passes in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"forced"},
	)

	// OrdersScreenedTotal counts orders by screening result
	OrdersScreenedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "thistle",
			Subsystem: "detection",
			Name:      "orders_total",
			Help:      "Total number of orders handled by the detector by result",
		},
		[]string{"result"},
	)

	// MatchesTotal counts positive matches by field and risk
	MatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "thistle",
			Subsystem: "matching",
			Name:      "matches_total",
			Help:      "Total number of positive blacklist matches",
		},
		[]string{"match_type", "risk"},
	)

	// SnapshotEntries is the size of the last blacklist snapshot
	SnapshotEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "thistle",
			Subsystem: "blacklist",
			Name:      "snapshot_entries",
			Help:      "Number of active entries in the last blacklist snapshot",
		},
	)

	// LockContentionTotal counts passes rejected because the group was locked
	LockContentionTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "thistle",
			Subsystem: "detection",
			Name:      "lock_contention_total",
			Help:      "Total number of detection requests rejected by an active group lock",
		},
	)

	// EventsPublishedTotal tracks screening events by type and status
	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "thistle",
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Total number of screening events published",
		},
		[]string{"event_type", "status"},
	)

	// RequestsConsumedTotal tracks detection requests read from Kafka
	RequestsConsumedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "thistle",
			Subsystem: "consumer",
			Name:      "requests_total",
			Help:      "Total number of detection requests consumed by status",
		},
		[]string{"status"},
	)
)

// Bool renders a label value for boolean dimensions.
func Bool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
