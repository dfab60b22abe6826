package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/lueurxax/legal-digest/internal/core/errors"
)

func newTestRegistry(t *testing.T, cb CircuitBreakerConfig, providers ...Provider) *Registry {
	t.Helper()

	logger := zerolog.Nop()

	r := NewRegistry(&logger, WithRetry(RetryConfig{
		MaxAttempts: 3,
		MinWait:     time.Millisecond,
		MaxWait:     2 * time.Millisecond,
	}))

	for _, p := range providers {
		r.Register(p, cb)
	}

	return r
}

func TestRegistry_PrimarySucceeds(t *testing.T) {
	google := NewMockProvider(ProviderGoogle, MockReply{Text: `{"ok":true}`})
	openai := NewMockProvider(ProviderOpenAI, MockReply{Text: "unused"})

	r := newTestRegistry(t, DefaultCircuitBreakerConfig(), google, openai)

	resp, err := r.Complete(context.Background(), Request{Task: TaskTypeClassify, Prompt: "p", JSON: true})
	require.NoError(t, err)

	assert.Equal(t, `{"ok":true}`, resp.Text)
	assert.Equal(t, ProviderGoogle, resp.Provider)
	require.Len(t, google.Requests(), 1)
	assert.Equal(t, ModelGeminiFlash, google.Requests()[0].Model)
	assert.True(t, google.Requests()[0].JSON)
	assert.Empty(t, openai.Requests())
}

func TestRegistry_FallsBackOnPermanentError(t *testing.T) {
	anthropic := NewMockProvider(ProviderAnthropic, MockReply{Err: errors.New("bad request")})
	openai := NewMockProvider(ProviderOpenAI, MockReply{Text: "# Article"})

	r := newTestRegistry(t, DefaultCircuitBreakerConfig(), anthropic, openai)

	resp, err := r.Complete(context.Background(), Request{Task: TaskTypeSynthesize, Prompt: "p", Model: AliasHaiku})
	require.NoError(t, err)

	assert.Equal(t, ProviderOpenAI, resp.Provider)
	require.Len(t, anthropic.Requests(), 1, "permanent errors are not retried")
	assert.Equal(t, AliasHaiku, anthropic.Requests()[0].Model)
	assert.Equal(t, ModelGPT4o, openai.Requests()[0].Model, "override applies to the primary only")
}

func TestRegistry_RetriesTransientErrors(t *testing.T) {
	google := NewMockProvider(ProviderGoogle,
		MockReply{Err: fmt.Errorf("%w: 429", apperrors.ErrRateLimited)},
		MockReply{Err: fmt.Errorf("%w: 503", apperrors.ErrServiceUnavailable)},
		MockReply{Text: "{}"},
	)

	r := newTestRegistry(t, DefaultCircuitBreakerConfig(), google)

	resp, err := r.Complete(context.Background(), Request{Task: TaskTypeClassify, Prompt: "p"})
	require.NoError(t, err)

	assert.Equal(t, "{}", resp.Text)
	assert.Len(t, google.Requests(), 3)
}

func TestRegistry_ExhaustedRateLimitIsQuota(t *testing.T) {
	google := NewMockProvider(ProviderGoogle, MockReply{Err: fmt.Errorf("%w: RESOURCE_EXHAUSTED", apperrors.ErrRateLimited)})

	r := newTestRegistry(t, DefaultCircuitBreakerConfig(), google)

	_, err := r.Complete(context.Background(), Request{Task: TaskTypeClassify, Prompt: "p"})
	require.Error(t, err)

	assert.ErrorIs(t, err, apperrors.ErrQuotaExhausted)
	assert.ErrorIs(t, err, ErrAllProvidersFailed)
	assert.True(t, IsQuota(err))
	assert.Len(t, google.Requests(), 3)
}

func TestRegistry_NoAvailableProviders(t *testing.T) {
	google := NewMockProvider(ProviderGoogle)
	google.SetAvailable(false)

	r := newTestRegistry(t, DefaultCircuitBreakerConfig(), google)

	_, err := r.Complete(context.Background(), Request{Task: TaskTypeClassify, Prompt: "p"})
	require.ErrorIs(t, err, ErrNoProvidersAvailable)
	assert.False(t, r.HasAvailable(TaskTypeClassify))
}

func TestRegistry_ProvidersOutsideChainAreIgnored(t *testing.T) {
	anthropic := NewMockProvider(ProviderAnthropic, MockReply{Text: "should not be used"})

	r := newTestRegistry(t, DefaultCircuitBreakerConfig(), anthropic)

	_, err := r.Complete(context.Background(), Request{Task: TaskTypeClassify, Prompt: "p"})
	require.ErrorIs(t, err, ErrNoProvidersAvailable)
	assert.Empty(t, anthropic.Requests())
}

func TestRegistry_CircuitBreakerSkipsProvider(t *testing.T) {
	google := NewMockProvider(ProviderGoogle, MockReply{Err: errors.New("boom")})
	openai := NewMockProvider(ProviderOpenAI, MockReply{Text: "{}"})

	r := newTestRegistry(t, CircuitBreakerConfig{Threshold: 1, ResetAfter: time.Hour}, google, openai)

	for i := 0; i < 3; i++ {
		resp, err := r.Complete(context.Background(), Request{Task: TaskTypeClassify, Prompt: "p"})
		require.NoError(t, err)
		assert.Equal(t, ProviderOpenAI, resp.Provider)
	}

	assert.Len(t, google.Requests(), 1, "open circuit stops further attempts")

	statuses := r.GetProviderStatuses()
	require.Len(t, statuses, 2)

	for _, st := range statuses {
		if st.Name == ProviderGoogle {
			assert.False(t, st.CircuitBreakerOK)
		}
	}
}

func TestRegistry_OpenCircuitIsReported(t *testing.T) {
	google := NewMockProvider(ProviderGoogle, MockReply{Err: errors.New("boom")})

	r := newTestRegistry(t, CircuitBreakerConfig{Threshold: 1, ResetAfter: time.Hour}, google)

	_, err := r.Complete(context.Background(), Request{Task: TaskTypeClassify, Prompt: "p"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, apperrors.ErrCircuitBreakerOpen)

	_, err = r.Complete(context.Background(), Request{Task: TaskTypeClassify, Prompt: "p"})
	require.ErrorIs(t, err, ErrAllProvidersFailed)
	require.ErrorIs(t, err, apperrors.ErrCircuitBreakerOpen)
	assert.Contains(t, err.Error(), string(ProviderGoogle))
	assert.Len(t, google.Requests(), 1)
}

func TestTaskConfigFromModels(t *testing.T) {
	cfg := TaskConfigFromModels("gemini-2.5-pro", "", AliasHaiku, "gpt-4.1")

	assert.Equal(t, "gemini-2.5-pro", cfg[TaskTypeClassify].Default.Model)
	assert.Equal(t, ModelGPT4oMini, cfg[TaskTypeClassify].Fallbacks[0].Model)
	assert.Equal(t, AliasHaiku, cfg[TaskTypeSynthesize].Default.Model)
	assert.Equal(t, "gpt-4.1", cfg[TaskTypeSynthesize].Fallbacks[0].Model)

	assert.Equal(t, ModelGeminiFlash, DefaultTaskConfig()[TaskTypeClassify].Default.Model, "defaults are not mutated")
}
