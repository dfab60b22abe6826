package llm

import "time"

// Model identifiers.
const (
	ModelGeminiFlash  = "gemini-2.5-flash"
	ModelClaudeSonnet = "claude-sonnet-4-5-20250929"
	ModelClaudeHaiku  = "claude-haiku-4-5-20251001"
	ModelGPT4o        = "gpt-4o"
	ModelGPT4oMini    = "gpt-4o-mini"
)

// Short model names accepted from the CLI and config.
const (
	AliasSonnet = "sonnet"
	AliasHaiku  = "haiku"
)

// Error message templates
const (
	errRateLimiter           = "rate limiter: %w"
	errOpenAIChatCompletion  = "openai chat completion: %w"
	errGoogleGenAICompletion = "google genai completion: %w"
	errAnthropicMessages     = "anthropic messages: %w"
)

// Model mapping strings
const (
	modelPrefixGPT    = "gpt-"
	modelPrefixO      = "o"
	modelPrefixClaude = "claude"
	modelPrefixGemini = "gemini"
)

// Content types
const (
	contentTypeJSON = "application/json"
	contentTypeText = "text"
)

// Log key strings
const (
	logKeyProvider     = "provider"
	logKeyTask         = "task"
	logKeyModel        = "model"
	logKeyAttempt      = "attempt"
	logKeyMaxTokens    = "max_tokens"
	logKeyOutputTokens = "output_tokens"
)

// Log message strings
const (
	logMsgCircuitBreakerOpen = "skipping provider - circuit breaker open"
	logMsgTruncated          = "LLM output truncated due to max_tokens limit"
)

// Numeric constants
const (
	rateLimiterBurst       = 5
	defaultMaxTokens int64 = 4096
)

// Circuit breaker defaults
const (
	defaultCircuitThreshold = 5
	defaultCircuitTimeout   = time.Minute
)

// Retry defaults
const (
	defaultRetryAttempts = 5
	defaultRetryMinWait  = 2 * time.Second
	defaultRetryMaxWait  = 60 * time.Second
)

// Cost conversion
const (
	usdToMillicents = 100000.0 // 1 USD = 100,000 millicents
)

// Request status for metrics.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Metric gauge values.
const (
	MetricValueAvailable   = 1.0
	MetricValueUnavailable = 0.0
	MetricValueCBOpen      = 1.0 // Circuit breaker is open (blocking requests)
	MetricValueCBClosed    = 0.0 // Circuit breaker is closed (allowing requests)
)
