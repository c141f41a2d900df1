package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var signalsConsumed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "disaster_response_intake_signals_total",
	Help: "Total number of signal messages consumed from Kafka by outcome",
}, []string{"outcome"}) // outcome: ok, malformed, invalid, error
