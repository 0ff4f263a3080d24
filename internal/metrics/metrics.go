package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Classifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "veracity_classifications_total",
			Help: "Classifications produced, by mode, source and category",
		},
		[]string{"mode", "source", "category"},
	)

	ProviderCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "veracity_provider_calls_total",
			Help: "Provider calls by outcome (ok, timeout, cancelled, error, ...)",
		},
		[]string{"provider", "outcome"},
	)

	ProviderLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "veracity_provider_latency_seconds",
			Help:    "Provider call latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	Disagreements = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "veracity_consensus_disagreements_total",
			Help: "Consensus results flagged for review because sources disagreed",
		},
	)

	AllProvidersFailed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "veracity_all_providers_failed_total",
			Help: "Combined-mode requests where no provider responded",
		},
	)

	VerificationScores = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "veracity_verification_score",
			Help:    "Distribution of verification totals",
			Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		},
	)

	RiskLevels = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "veracity_risk_levels_total",
			Help: "Risk assessments by level",
		},
		[]string{"level"},
	)

	MetadataFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "veracity_metadata_fetches_total",
			Help: "Metadata fetches by accessibility",
		},
		[]string{"accessible"},
	)

	ProviderCostUSD = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "veracity_provider_cost_usd_total",
			Help: "Estimated provider spend in USD",
		},
		[]string{"provider", "model"},
	)
)
