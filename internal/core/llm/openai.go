package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	apperrors "github.com/lueurxax/legal-digest/internal/core/errors"
	"github.com/lueurxax/legal-digest/internal/platform/config"
)

// openaiProvider implements the Provider interface for OpenAI chat models.
// It is the fallback for both tasks.
type openaiProvider struct {
	apiKey      string
	client      *openai.Client
	logger      *zerolog.Logger
	rateLimiter *rate.Limiter
}

// NewOpenAIProvider creates a new OpenAI LLM provider.
func NewOpenAIProvider(cfg config.LLMConfig, logger *zerolog.Logger) *openaiProvider {
	return &openaiProvider{
		apiKey:      cfg.OpenAIAPIKey,
		client:      openai.NewClient(cfg.OpenAIAPIKey),
		logger:      logger,
		rateLimiter: newRateLimiter(cfg.RateLimitRPS),
	}
}

// Name returns the provider identifier.
func (p *openaiProvider) Name() ProviderName {
	return ProviderOpenAI
}

// IsAvailable returns true if the provider is configured and available.
func (p *openaiProvider) IsAvailable() bool {
	return p.apiKey != ""
}

// Priority returns the provider priority.
func (p *openaiProvider) Priority() int {
	return PriorityFallback
}

// resolveModel keeps OpenAI model names and replaces foreign ones per task.
func (p *openaiProvider) resolveModel(model string, task TaskType) string {
	if strings.HasPrefix(model, modelPrefixGPT) || (strings.HasPrefix(model, modelPrefixO) && len(model) > 1 && model[1] >= '0' && model[1] <= '9') {
		return model
	}

	if task == TaskTypeSynthesize {
		return ModelGPT4o
	}

	return ModelGPT4oMini
}

// Complete implements Provider interface.
func (p *openaiProvider) Complete(ctx context.Context, req Request) (Response, error) {
	if err := p.rateLimiter.Wait(ctx); err != nil {
		return Response{}, fmt.Errorf(errRateLimiter, err)
	}

	model := p.resolveModel(req.Model, req.Task)

	chatReq := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: req.Prompt,
			},
		},
	}

	if req.MaxTokens > 0 {
		chatReq.MaxTokens = int(req.MaxTokens)
	}

	if req.JSON {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := p.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		RecordTokenUsage(string(ProviderOpenAI), model, string(req.Task), 0, 0, false)

		return Response{}, fmt.Errorf(errOpenAIChatCompletion, classifyError(err))
	}

	RecordTokenUsage(string(ProviderOpenAI), model, string(req.Task), resp.Usage.PromptTokens, resp.Usage.CompletionTokens, true)

	if len(resp.Choices) == 0 {
		return Response{}, fmt.Errorf("openai: %w", apperrors.ErrEmptyResponse)
	}

	if resp.Choices[0].FinishReason == openai.FinishReasonLength {
		p.logger.Warn().
			Str(logKeyTask, string(req.Task)).
			Str(logKeyModel, model).
			Int(logKeyOutputTokens, resp.Usage.CompletionTokens).
			Msg(logMsgTruncated)
	}

	return Response{
		Text:         strings.TrimSpace(resp.Choices[0].Message.Content),
		Provider:     ProviderOpenAI,
		Model:        model,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}, nil
}

// Ensure openaiProvider implements Provider interface.
var _ Provider = (*openaiProvider)(nil)
