package metrics

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ExtractionAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ml_pulse_extraction_attempts_total",
			Help: "Model calls issued by the skill extractor",
		},
		[]string{"item_type"},
	)

	ExtractionOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ml_pulse_extraction_outcomes_total",
			Help: "Final result of each extraction (success, exhausted, unconfigured)",
		},
		[]string{"item_type", "outcome"},
	)

	ExtractionErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ml_pulse_extraction_errors_total",
			Help: "Failed extraction attempts by error kind",
		},
		[]string{"item_type", "kind"},
	)

	BackoffSeconds = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ml_pulse_extraction_backoff_seconds_total",
			Help: "Seconds spent waiting between retries",
		},
		[]string{"kind"},
	)

	ThrottleSeconds = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ml_pulse_throttle_seconds_total",
			Help: "Seconds spent in the request throttle",
		},
	)

	LLMRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ml_pulse_llm_request_duration_seconds",
			Help:    "Model call latency in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"model", "status"},
	)

	LLMTokensUsed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ml_pulse_llm_tokens_used",
			Help: "Total LLM tokens used",
		},
		[]string{"model", "type"},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ml_pulse_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ml_pulse_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"cache_type"},
	)

	BatchItems = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ml_pulse_batch_items_total",
			Help: "Items processed by the batch coordinator",
		},
		[]string{"item_type"},
	)

	ItemsStored = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ml_pulse_items_stored_total",
			Help: "Enriched items written to storage",
		},
		[]string{"item_type", "status"},
	)
)

var registerOnce sync.Once

func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(ExtractionAttempts)
		prometheus.MustRegister(ExtractionOutcomes)
		prometheus.MustRegister(ExtractionErrors)
		prometheus.MustRegister(BackoffSeconds)
		prometheus.MustRegister(ThrottleSeconds)
		prometheus.MustRegister(LLMRequestDuration)
		prometheus.MustRegister(LLMTokensUsed)
		prometheus.MustRegister(CacheHits)
		prometheus.MustRegister(CacheMisses)
		prometheus.MustRegister(BatchItems)
		prometheus.MustRegister(ItemsStored)
	})
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
