// Package telemetry holds the Prometheus metrics exported by cadence.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "cadence"

// Scheduler metrics
var (
	// FiresTotal counts scheduler fires by source (trigger, post_now) and outcome
	FiresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "fires_total",
			Help:      "Total scheduler fires by source and outcome",
		},
		[]string{"source", "outcome"},
	)

	// PublishDuration observes adapter round trips
	PublishDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "publish_duration_seconds",
			Help:      "Publisher call duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"outcome"},
	)

	// ScheduleGeneration is the generation of the installed trigger set
	ScheduleGeneration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "schedule_generation",
			Help:      "Generation counter of the active trigger set",
		},
	)
)

// Publisher metrics
var (
	// PublisherBreakerState is 0 closed, 1 half-open, 2 open
	PublisherBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "publisher",
			Name:      "breaker_state",
			Help:      "Circuit breaker state per adapter (0 closed, 1 half-open, 2 open)",
		},
		[]string{"adapter"},
	)
)

// Monitor metrics
var (
	// MonitorTicksTotal counts monitor iterations by outcome (ok, error)
	MonitorTicksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "ticks_total",
			Help:      "Total monitor ticks by outcome",
		},
		[]string{"outcome"},
	)

	// MonitorStepErrorsTotal counts failed sub-steps (sample, backfill, rollup)
	MonitorStepErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "step_errors_total",
			Help:      "Total monitor sub-step failures",
		},
		[]string{"step"},
	)

	// PerformanceRecordsTotal counts backfilled performance records
	PerformanceRecordsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "performance_records_total",
			Help:      "Total performance records inserted by backfill",
		},
	)

	// QueueDepth is the last sampled number of Ready artifacts
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "content",
			Name:      "queue_depth",
			Help:      "Ready artifacts at the last monitor sample",
		},
	)
)

// BuildInfo is 1, labeled with how the running binary was built
var BuildInfo = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "build_info",
		Help:      "Build information of the running binary",
	},
	[]string{"version", "commit", "go_version"},
)
