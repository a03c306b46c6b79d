package marketdata

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	providerCallsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "folio",
			Subsystem: "marketdata",
			Name:      "provider_calls_total",
			Help:      "Provider calls by operation and outcome.",
		},
		[]string{"provider", "operation", "outcome"}, // outcome: ok, hard, soft
	)

	failoverCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "folio",
			Subsystem: "marketdata",
			Name:      "failovers_total",
			Help:      "Operations retried on the secondary provider.",
		},
		[]string{"operation"},
	)

	providerDurationHist = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "folio",
			Subsystem: "marketdata",
			Name:      "provider_call_duration_seconds",
			Help:      "Duration of provider calls including retries.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"provider", "operation"},
	)

	droppedSymbolsCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "folio",
			Subsystem: "marketdata",
			Name:      "batch_dropped_symbols_total",
			Help:      "Symbols dropped from batch quote fetches after both providers failed.",
		},
	)
)
