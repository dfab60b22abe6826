package llm

import (
	"context"
)

// ProviderName identifies an LLM provider.
type ProviderName string

// Provider name constants.
const (
	ProviderGoogle    ProviderName = "google"
	ProviderAnthropic ProviderName = "anthropic"
	ProviderOpenAI    ProviderName = "openai"
	ProviderMock      ProviderName = "mock"
)

// Priority constants for provider ordering.
const (
	PriorityPrimary  = 100 // Primary providers (Google for classification, Anthropic for synthesis)
	PriorityFallback = 50  // OpenAI
	PriorityMock     = 0   // Mock provider for testing
)

// Request is a single prompt sent to a model.
type Request struct {
	Task      TaskType
	Prompt    string
	Model     string // Optional override; resolved per provider
	MaxTokens int64
	JSON      bool // Ask the service for a bare JSON object
}

// Response is the text a provider returned along with its usage.
type Response struct {
	Text         string
	Provider     ProviderName
	Model        string
	InputTokens  int
	OutputTokens int
}

// Provider defines the interface for LLM providers.
type Provider interface {
	// Name returns the provider identifier.
	Name() ProviderName

	// IsAvailable returns true if the provider is configured and available.
	IsAvailable() bool

	// Priority returns the provider priority (higher = preferred).
	Priority() int

	// Complete sends one prompt and returns the model text.
	Complete(ctx context.Context, req Request) (Response, error)
}

// Client is what classification and synthesis depend on.
type Client interface {
	Complete(ctx context.Context, req Request) (Response, error)
}
