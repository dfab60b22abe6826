package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/lueurxax/legal-digest/internal/platform/config"
)

// anthropicProvider implements the Provider interface for Anthropic Claude.
type anthropicProvider struct {
	apiKey       string
	defaultModel string
	maxTokens    int64
	client       anthropic.Client
	logger       *zerolog.Logger
	rateLimiter  *rate.Limiter
}

// NewAnthropicProvider creates a new Anthropic LLM provider.
func NewAnthropicProvider(cfg config.LLMConfig, logger *zerolog.Logger) *anthropicProvider {
	maxTokens := cfg.SynthMaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	return &anthropicProvider{
		apiKey:       cfg.AnthropicAPIKey,
		defaultModel: cfg.SynthModel,
		maxTokens:    maxTokens,
		client:       anthropic.NewClient(option.WithAPIKey(cfg.AnthropicAPIKey)),
		logger:       logger,
		rateLimiter:  newRateLimiter(cfg.RateLimitRPS),
	}
}

// Name returns the provider identifier.
func (p *anthropicProvider) Name() ProviderName {
	return ProviderAnthropic
}

// IsAvailable returns true if the provider is configured and available.
func (p *anthropicProvider) IsAvailable() bool {
	return p.apiKey != ""
}

// Priority returns the provider priority.
func (p *anthropicProvider) Priority() int {
	return PriorityPrimary
}

// resolveModel maps the short aliases to pinned Claude model ids.
func (p *anthropicProvider) resolveModel(model string) string {
	switch {
	case model == "" && p.defaultModel != "":
		return p.resolveModel(p.defaultModel)
	case model == "":
		return ModelClaudeSonnet
	case strings.EqualFold(model, AliasSonnet):
		return ModelClaudeSonnet
	case strings.EqualFold(model, AliasHaiku):
		return ModelClaudeHaiku
	case strings.HasPrefix(model, modelPrefixClaude):
		return model
	default:
		return ModelClaudeSonnet
	}
}

// Complete implements Provider interface.
func (p *anthropicProvider) Complete(ctx context.Context, req Request) (Response, error) {
	if err := p.rateLimiter.Wait(ctx); err != nil {
		return Response{}, fmt.Errorf(errRateLimiter, err)
	}

	resolvedModel := p.resolveModel(req.Model)

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = p.maxTokens
	}

	resp, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(resolvedModel),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	})
	if err != nil {
		RecordTokenUsage(string(ProviderAnthropic), resolvedModel, string(req.Task), 0, 0, false)

		return Response{}, fmt.Errorf(errAnthropicMessages, classifyError(err))
	}

	inputTokens := int(resp.Usage.InputTokens)
	outputTokens := int(resp.Usage.OutputTokens)

	RecordTokenUsage(string(ProviderAnthropic), resolvedModel, string(req.Task), inputTokens, outputTokens, true)

	if resp.StopReason == anthropic.StopReasonMaxTokens {
		p.logger.Warn().
			Str(logKeyTask, string(req.Task)).
			Str(logKeyModel, resolvedModel).
			Int64(logKeyMaxTokens, maxTokens).
			Int(logKeyOutputTokens, outputTokens).
			Msg(logMsgTruncated)
	}

	return Response{
		Text:         strings.TrimSpace(extractTextFromResponse(resp)),
		Provider:     ProviderAnthropic,
		Model:        resolvedModel,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
	}, nil
}

// extractTextFromResponse extracts text content from Anthropic response.
func extractTextFromResponse(resp *anthropic.Message) string {
	var result strings.Builder

	for _, block := range resp.Content {
		if block.Type == contentTypeText {
			result.WriteString(block.Text)
		}
	}

	return result.String()
}

// Ensure anthropicProvider implements Provider interface.
var _ Provider = (*anthropicProvider)(nil)
