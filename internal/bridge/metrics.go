package bridge

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pollsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "huelink",
		Subsystem: "bridge",
		Name:      "polls_total",
		Help:      "Full-state polls by result.",
	}, []string{"bridge", "result"})

	pollDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "huelink",
		Subsystem: "bridge",
		Name:      "poll_duration_seconds",
		Help:      "Duration of full-state polls including reconciliation.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"bridge"})

	reconcileChangesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "huelink",
		Subsystem: "bridge",
		Name:      "reconcile_changes_total",
		Help:      "Devices added, updated and removed by reconciliation.",
	}, []string{"bridge", "change"})

	pushAppliedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "huelink",
		Subsystem: "bridge",
		Name:      "push_applied_total",
		Help:      "Push messages by routing result.",
	}, []string{"bridge", "result"})

	managedDevices = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "huelink",
		Subsystem: "bridge",
		Name:      "managed_devices",
		Help:      "Devices currently managed by the session.",
	}, []string{"bridge"})

	sessionState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "huelink",
		Subsystem: "bridge",
		Name:      "session_state",
		Help:      "Current session state (0 unauthorized, 1 authorizing, 2 synchronized, 3 degraded).",
	}, []string{"bridge"})
)
