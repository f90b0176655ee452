package device

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	actionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "huelink",
		Subsystem: "device",
		Name:      "actions_total",
		Help:      "The total number of actions emitted by controllers and sensors",
	}, []string{"kind"})
	commandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "huelink",
		Subsystem: "device",
		Name:      "commands_total",
		Help:      "The total number of light state commands",
	}, []string{"outcome"})
)
