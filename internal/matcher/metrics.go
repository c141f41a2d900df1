package matcher

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	matchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "disaster_response_match_duration_seconds",
			Help:    "Duration of a single matcher invocation.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
	)
	matchesReturned = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "disaster_response_matches_returned",
			Help:    "Number of NGOs returned per matcher invocation.",
			Buckets: []float64{0, 1, 2, 3, 5, 10},
		},
	)
)

type matchTimer struct{ start time.Time }

func startMatchTimer() matchTimer { return matchTimer{start: time.Now()} }

func (t matchTimer) observe() { matchDuration.Observe(time.Since(t.start).Seconds()) }
