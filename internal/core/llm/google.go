package llm

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	"github.com/lueurxax/legal-digest/internal/platform/config"
)

// sanitizeUTF8 replaces invalid UTF-8 sequences.
// Google's protobuf API requires valid UTF-8, and scraped content may contain invalid bytes.
func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}

	return strings.ToValidUTF8(s, string(utf8.RuneError))
}

// googleProvider implements the Provider interface for Google Gemini.
type googleProvider struct {
	apiKey       string
	defaultModel string
	client       *genai.Client
	logger       *zerolog.Logger
	rateLimiter  *rate.Limiter
}

// NewGoogleProvider creates a new Google Gemini LLM provider.
// Without an API key the provider is registered but reports itself unavailable.
func NewGoogleProvider(ctx context.Context, cfg config.LLMConfig, logger *zerolog.Logger) (*googleProvider, error) {
	p := &googleProvider{
		apiKey:       cfg.GoogleAPIKey,
		defaultModel: cfg.ClassifyModel,
		logger:       logger,
		rateLimiter:  newRateLimiter(cfg.RateLimitRPS),
	}

	if p.apiKey == "" {
		return p, nil
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GoogleAPIKey))
	if err != nil {
		return nil, fmt.Errorf("creating google genai client: %w", err)
	}

	p.client = client

	return p, nil
}

// Close closes the Google client.
func (p *googleProvider) Close() error {
	if p.client != nil {
		if err := p.client.Close(); err != nil {
			return fmt.Errorf("closing google genai client: %w", err)
		}
	}

	return nil
}

// Name returns the provider identifier.
func (p *googleProvider) Name() ProviderName {
	return ProviderGoogle
}

// IsAvailable returns true if the provider is configured and available.
func (p *googleProvider) IsAvailable() bool {
	return p.client != nil
}

// Priority returns the provider priority.
func (p *googleProvider) Priority() int {
	return PriorityPrimary
}

// resolveModel passes Gemini names through and maps anything else to the default.
func (p *googleProvider) resolveModel(model string) string {
	if strings.HasPrefix(model, modelPrefixGemini) {
		return model
	}

	if p.defaultModel != "" {
		return p.defaultModel
	}

	return ModelGeminiFlash
}

// Complete implements Provider interface.
func (p *googleProvider) Complete(ctx context.Context, req Request) (Response, error) {
	if err := p.rateLimiter.Wait(ctx); err != nil {
		return Response{}, fmt.Errorf(errRateLimiter, err)
	}

	resolvedModel := p.resolveModel(req.Model)
	genModel := p.client.GenerativeModel(resolvedModel)

	if req.JSON {
		genModel.ResponseMIMEType = contentTypeJSON
	}

	if req.MaxTokens > 0 {
		genModel.SetMaxOutputTokens(safeInt64ToInt32(req.MaxTokens))
	}

	resp, err := genModel.GenerateContent(ctx, genai.Text(sanitizeUTF8(req.Prompt)))
	if err != nil {
		RecordTokenUsage(string(ProviderGoogle), resolvedModel, string(req.Task), 0, 0, false)

		return Response{}, fmt.Errorf(errGoogleGenAICompletion, classifyError(err))
	}

	var inputTokens, outputTokens int

	if resp.UsageMetadata != nil {
		inputTokens = int(resp.UsageMetadata.PromptTokenCount)
		outputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}

	RecordTokenUsage(string(ProviderGoogle), resolvedModel, string(req.Task), inputTokens, outputTokens, true)

	return Response{
		Text:         strings.TrimSpace(extractGoogleResponseText(resp)),
		Provider:     ProviderGoogle,
		Model:        resolvedModel,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
	}, nil
}

// extractGoogleResponseText extracts text content from Google Gemini response.
func extractGoogleResponseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}

	var result strings.Builder

	for _, candidate := range resp.Candidates {
		if candidate.Content != nil {
			for _, part := range candidate.Content.Parts {
				if text, ok := part.(genai.Text); ok {
					result.WriteString(string(text))
				}
			}
		}
	}

	return result.String()
}

// Ensure googleProvider implements Provider interface.
var _ Provider = (*googleProvider)(nil)
