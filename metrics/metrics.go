package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	VisitsTracked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "userhistory_visits_tracked_total",
		Help: "Page views appended to an in-progress visitor history",
	})

	TrackFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "userhistory_track_failures_total",
		Help: "Best-effort tracking operations that failed",
	}, []string{"operation"})

	HistoriesFinalized = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "userhistory_histories_finalized_total",
		Help: "Purchases completed, by whether a browsing history was attached",
	}, []string{"outcome"})

	HistoryLength = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "userhistory_finalized_history_length",
		Help:    "Entries in a finalized history, referrer and completion marker included",
		Buckets: []float64{2, 3, 5, 10, 20, 50, 100, 250},
	})
)
