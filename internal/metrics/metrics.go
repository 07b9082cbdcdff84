package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "sessionclock"

var (
	Ticks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "lifecycle",
		Name:      "ticks_total",
		Help:      "Collection ticks run across all mounted views.",
	})

	Activations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "lifecycle",
		Name:      "activations_total",
		Help:      "Timers switched to active by a tick.",
	})

	Completions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "lifecycle",
		Name:      "completions_total",
		Help:      "Timers marked complete.",
	})

	ReloadFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "lifecycle",
		Name:      "reload_failures_total",
		Help:      "Full reloads that failed and left the previous working set in place.",
	})

	MountedViews = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "lifecycle",
		Name:      "mounted_views",
		Help:      "Views currently mounted.",
	})

	WritesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "writes",
		Name:      "dropped_total",
		Help:      "Write-behind jobs dropped because a worker queue was full or the pool was stopped.",
	})

	WritesFailed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "writes",
		Name:      "failed_total",
		Help:      "Write-behind jobs whose storage call returned an error.",
	})

	WorkflowOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "workflow",
		Name:      "operations_total",
		Help:      "Workflow operations by outcome.",
	}, []string{"operation", "result"})
)

// ObserveWorkflow records the outcome of a workflow operation.
func ObserveWorkflow(operation string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	WorkflowOperations.WithLabelValues(operation, result).Inc()
}
