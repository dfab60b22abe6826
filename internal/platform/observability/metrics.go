package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ArticlesIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "legal_digest_articles_ingested_total",
		Help: "Articles stored by ingestion, by source and outcome (inserted, skipped, failed)",
	}, []string{"source", "outcome"})

	CollectorFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "legal_digest_collector_failures_total",
		Help: "Sources whose collector returned an error",
	}, []string{"source", "kind"})

	ContentFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "legal_digest_content_fetches_total",
		Help: "Full-content fetches by outcome",
	}, []string{"outcome"})

	ArticlesClassified = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "legal_digest_articles_classified_total",
		Help: "Classification attempts by status",
	}, []string{"status"})

	TopicsLinked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "legal_digest_topic_links_total",
		Help: "Article to subtopic links created",
	})

	Syntheses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "legal_digest_syntheses_total",
		Help: "Synthesis requests by status",
	}, []string{"status"})

	StageDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "legal_digest_stage_duration_seconds",
		Help:    "Duration of pipeline stages",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200, 3600},
	}, []string{"stage"})

	UnprocessedArticles = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "legal_digest_unprocessed_articles",
		Help: "Articles waiting for classification after the last run",
	})

	LastRunTimestamp = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "legal_digest_last_run_timestamp_seconds",
		Help: "Unix time of the last pipeline run by status",
	}, []string{"status"})

	LLMRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "legal_digest_llm_requests_total",
		Help: "Total number of LLM requests by provider, model, task, and status",
	}, []string{"provider", "model", "task", "status"})

	LLMTokensPrompt = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "legal_digest_llm_tokens_prompt_total",
		Help: "Total prompt tokens used by provider, model, and task",
	}, []string{"provider", "model", "task"})

	LLMTokensCompletion = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "legal_digest_llm_tokens_completion_total",
		Help: "Total completion tokens used by provider, model, and task",
	}, []string{"provider", "model", "task"})

	LLMEstimatedCost = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "legal_digest_llm_estimated_cost_millicents",
		Help: "Estimated LLM cost in millicents (1/1000 of a cent)",
	}, []string{"provider", "model", "task"})

	LLMRequestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "legal_digest_llm_request_latency_seconds",
		Help:    "LLM request latency by provider, model, and task",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120, 300},
	}, []string{"provider", "model", "task"})

	LLMRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "legal_digest_llm_retries_total",
		Help: "Retries of transient LLM failures by task",
	}, []string{"task"})

	LLMFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "legal_digest_llm_fallbacks_total",
		Help: "Total number of LLM provider fallbacks",
	}, []string{"from_provider", "to_provider", "task"})

	LLMCircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "legal_digest_llm_circuit_breaker_state",
		Help: "Circuit breaker state per provider (0=closed, 1=open)",
	}, []string{"provider"})

	LLMProviderAvailable = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "legal_digest_llm_provider_available",
		Help: "Whether an LLM provider is configured and its circuit is closed (1) or not (0)",
	}, []string{"provider"})
)

// Stage labels for StageDurationSeconds.
const (
	StageFetch      = "fetch"
	StageClassify   = "classify"
	StageSynthesize = "synthesize"
	StagePipeline   = "pipeline"
)
