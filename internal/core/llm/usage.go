package llm

import (
	"math"

	"golang.org/x/time/rate"

	"github.com/lueurxax/legal-digest/internal/platform/observability"
)

// RecordTokenUsage records token usage metrics for an LLM request.
func RecordTokenUsage(provider, model, task string, promptTokens, completionTokens int, success bool) {
	status := StatusSuccess
	if !success {
		status = StatusError
	}

	observability.LLMRequests.WithLabelValues(provider, model, task, status).Inc()

	if promptTokens > 0 {
		observability.LLMTokensPrompt.WithLabelValues(provider, model, task).Add(float64(promptTokens))
	}

	if completionTokens > 0 {
		observability.LLMTokensCompletion.WithLabelValues(provider, model, task).Add(float64(completionTokens))
	}

	if !success {
		return
	}

	if cost := estimateCost(provider, model, promptTokens, completionTokens); cost > 0 {
		observability.LLMEstimatedCost.WithLabelValues(provider, model, task).Add(cost * usdToMillicents)
	}
}

func newRateLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		rps = 1
	}

	return rate.NewLimiter(rate.Limit(rps), rateLimiterBurst)
}

func safeInt64ToInt32(v int64) int32 {
	if v > math.MaxInt32 {
		return math.MaxInt32
	}

	if v < math.MinInt32 {
		return math.MinInt32
	}

	return int32(v)
}
