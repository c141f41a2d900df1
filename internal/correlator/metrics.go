package correlator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	signalsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "disaster_response_signals_ingested_total",
			Help: "Signals processed by the correlator, by outcome.",
		},
		[]string{"outcome"},
	)
	eventsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "disaster_response_events_created_total",
			Help: "Events asserted once corroboration reached the threshold.",
		},
	)
	eventsUpdated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "disaster_response_events_updated_total",
			Help: "Signal attachments to already-open events.",
		},
	)
	eventsNotified = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "disaster_response_events_notified_total",
			Help: "Events acknowledged as notified by the dispatcher.",
		},
	)
	eventsStale = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "disaster_response_events_stale_total",
			Help: "Open events lazily marked stale on read.",
		},
	)
)
