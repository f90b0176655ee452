package eventbus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "huelink",
		Subsystem: "eventbus",
		Name:      "events_queued_total",
		Help:      "Event deliveries queued for a handler.",
	}, []string{"type"})

	eventsDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "huelink",
		Subsystem: "eventbus",
		Name:      "events_dropped_total",
		Help:      "Event deliveries dropped, by reason.",
	}, []string{"type", "reason"})
)
