package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	PollsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conveyor_polls_total",
			Help: "Total number of trigger poll cycles by status.",
		},
		[]string{"trigger_id", "piece", "status"},
	)

	PollDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "conveyor_poll_duration_seconds",
			Help:    "Duration of trigger poll cycles in seconds.",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 15, 30, 60},
		},
		[]string{"trigger_id", "piece"},
	)

	ItemsEmittedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conveyor_items_emitted_total",
			Help: "Total number of deduplicated items handed to flow execution.",
		},
		[]string{"trigger_id", "piece"},
	)

	FetchFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conveyor_fetch_failures_total",
			Help: "Total number of external fetch failures during polls.",
		},
		[]string{"trigger_id", "piece"},
	)

	TriggersDegraded = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "conveyor_triggers_degraded",
			Help: "Whether a trigger has exceeded the consecutive fetch failure threshold.",
		},
		[]string{"trigger_id", "piece"},
	)

	TriggersEnabled = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "conveyor_triggers_enabled",
			Help: "Number of currently enabled polling triggers.",
		},
	)

	VisibilityUpdatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conveyor_visibility_updates_total",
			Help: "Total number of platform piece visibility mutations.",
		},
		[]string{"platform_id"},
	)
)

// Register registers all custom Conveyor metrics with the default
// Prometheus registry.
func Register() {
	prometheus.MustRegister(
		PollsTotal,
		PollDurationSeconds,
		ItemsEmittedTotal,
		FetchFailuresTotal,
		TriggersDegraded,
		TriggersEnabled,
		VisibilityUpdatesTotal,
	)
}
