package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "folio",
			Subsystem: "scheduler",
			Name:      "runs_total",
			Help:      "Daily update runs by trigger and result.",
		},
		[]string{"trigger", "result"}, // result: completed, skipped_busy
	)

	userOutcomesCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "folio",
			Subsystem: "scheduler",
			Name:      "user_updates_total",
			Help:      "Per-user update outcomes.",
		},
		[]string{"outcome"},
	)

	userRetriesCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "folio",
			Subsystem: "scheduler",
			Name:      "user_update_retries_total",
			Help:      "Per-user update attempts beyond the first.",
		},
	)

	runDurationHist = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "folio",
			Subsystem: "scheduler",
			Name:      "run_duration_seconds",
			Help:      "Wall time of completed runs.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		},
	)

	processingGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "folio",
			Subsystem: "scheduler",
			Name:      "processing",
			Help:      "1 while a run is executing.",
		},
	)
)
