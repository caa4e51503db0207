// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orchestrator_queries_total",
			Help: "Total number of queries processed, by outcome",
		},
		[]string{"outcome"}, // answered, no_answer, cache_hit, invalid
	)

	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "orchestrator_query_duration_seconds",
			Help: "End-to-end query processing duration in seconds",
		},
		[]string{"outcome"},
	)

	SourceCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orchestrator_source_calls_total",
			Help: "Total number of per-source search calls, by terminal state",
		},
		[]string{"source", "state"}, // succeeded, failed, cancelled, timed_out
	)

	SourceCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "orchestrator_source_call_duration_seconds",
			Help: "Duration of individual source calls in seconds",
		},
		[]string{"source"},
	)

	SearchesActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "orchestrator_searches_active",
			Help: "Number of source calls currently in flight",
		},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orchestrator_cache_lookups_total",
			Help: "Cache lookups by tier and result",
		},
		[]string{"tier", "result"}, // tier: exact, semantic; result: hit, miss
	)

	SourcesDisabled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orchestrator_sources_disabled_total",
			Help: "Automatic source disable events",
		},
		[]string{"source"},
	)
)
