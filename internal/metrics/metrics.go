package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ExternalAPICallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "threshold_external_api_calls_total",
			Help: "Total outbound calls to external data services",
		},
		[]string{"service", "status"},
	)

	ExternalAPILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "threshold_external_api_latency_seconds",
			Help:    "External API call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service"},
	)

	ScoringTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "threshold_scoring_total",
			Help: "Hotspot scores computed, by scoring method",
		},
		[]string{"method"},
	)

	ScoringFallbacksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "threshold_scoring_fallbacks_total",
			Help: "Model inference failures that fell back to rule-based scoring",
		},
	)

	AOICacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "threshold_aoi_cache_lookups_total",
			Help: "AOI cache lookups by outcome (hit or miss)",
		},
		[]string{"outcome"},
	)

	AnalysisDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "threshold_analysis_duration_seconds",
			Help:    "End-to-end vacant land analysis duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)
)
