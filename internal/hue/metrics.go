package hue

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "huelink",
		Subsystem: "bridge",
		Name:      "requests_total",
		Help:      "The total number of requests sent to the bridge",
	}, []string{"method", "outcome"})
	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "huelink",
		Subsystem: "bridge",
		Name:      "request_duration_seconds",
		Help:      "Time spent on bridge requests, excluding queueing",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"method"})
	requestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "huelink",
		Subsystem: "bridge",
		Name:      "requests_in_flight",
		Help:      "The number of bridge requests currently holding a gate slot",
	})
	pushMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "huelink",
		Subsystem: "push",
		Name:      "messages_total",
		Help:      "The total number of push messages received",
	}, []string{"result"})
	pushConnectsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "huelink",
		Subsystem: "push",
		Name:      "connects_total",
		Help:      "The total number of push channel connection attempts",
	}, []string{"result"})
)
