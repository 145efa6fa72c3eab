package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP 請求指標
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nutrition_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nutrition_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// 建議產生指標，source 為 llm 或 rules
	RecommendationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nutrition_recommendations_total",
			Help: "Total number of recommendations produced",
		},
		[]string{"type", "source"},
	)

	ProviderFallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nutrition_provider_fallbacks_total",
			Help: "Total number of times the rule engine answered instead of the LLM",
		},
		[]string{"reason"},
	)

	// 回呼投遞指標
	CallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nutrition_callbacks_total",
			Help: "Total number of callback delivery attempts by outcome",
		},
		[]string{"outcome"},
	)

	ReferenceLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nutrition_reference_lookups_total",
			Help: "Total number of additive reference lookups by outcome",
		},
		[]string{"outcome"},
	)

	PanicRecoveries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nutrition_panic_recoveries_total",
			Help: "Total number of panics recovered in HTTP handlers",
		},
	)
)

// 回呼結果
const (
	OutcomeDelivered = "delivered"
	OutcomeFailed    = "failed"
	OutcomeDropped   = "dropped"
)

// 參考資料查詢結果
const (
	LookupHit   = "cache_hit"
	LookupFetch = "fetched"
	LookupMiss  = "not_found"
	LookupError = "error"
)
