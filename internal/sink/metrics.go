package sink

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var mqttPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "huelink",
	Subsystem: "mqtt",
	Name:      "published_total",
	Help:      "MQTT publications by result.",
}, []string{"result"})
