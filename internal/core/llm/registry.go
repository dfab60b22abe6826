package llm

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/legal-digest/internal/platform/observability"
)

// Registry manages LLM providers with per-task fallback chains.
type Registry struct {
	mu              sync.RWMutex
	providers       map[ProviderName]Provider
	order           []ProviderName // Priority order (highest first)
	circuitBreakers map[ProviderName]*CircuitBreaker
	taskConfig      map[TaskType]TaskProviderChain
	retry           RetryConfig
	timeout         time.Duration
	logger          *zerolog.Logger
}

// RegistryOption customizes a Registry.
type RegistryOption func(*Registry)

// WithTaskConfig replaces the default provider chains.
func WithTaskConfig(cfg map[TaskType]TaskProviderChain) RegistryOption {
	return func(r *Registry) {
		r.taskConfig = cfg
	}
}

// WithRetry sets the retry policy for transient failures.
func WithRetry(cfg RetryConfig) RegistryOption {
	return func(r *Registry) {
		r.retry = cfg
	}
}

// WithTimeout bounds each provider attempt.
func WithTimeout(d time.Duration) RegistryOption {
	return func(r *Registry) {
		r.timeout = d
	}
}

// NewRegistry creates a new provider registry.
func NewRegistry(logger *zerolog.Logger, opts ...RegistryOption) *Registry {
	r := &Registry{
		providers:       make(map[ProviderName]Provider),
		order:           make([]ProviderName, 0),
		circuitBreakers: make(map[ProviderName]*CircuitBreaker),
		taskConfig:      DefaultTaskConfig(),
		retry:           DefaultRetryConfig(),
		logger:          logger,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Register adds a provider to the registry.
func (r *Registry) Register(p Provider, cfg CircuitBreakerConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := p.Name()
	if _, exists := r.providers[name]; !exists {
		r.order = append(r.order, name)
	}

	r.providers[name] = p
	r.circuitBreakers[name] = NewCircuitBreaker(cfg, r.logger)

	r.sortProvidersByPriority()

	available := MetricValueUnavailable
	if p.IsAvailable() {
		available = MetricValueAvailable
	}

	observability.LLMProviderAvailable.WithLabelValues(string(name)).Set(available)

	r.logger.Info().
		Str(logKeyProvider, string(name)).
		Int("priority", p.Priority()).
		Bool("available", p.IsAvailable()).
		Msg("registered LLM provider")
}

// HasAvailable reports whether any provider in the task's chain is usable.
func (r *Registry) HasAvailable(taskType TaskType) bool {
	for _, pm := range r.getProviderChainForTask(taskType) {
		r.mu.RLock()
		p, ok := r.providers[pm.Provider]
		r.mu.RUnlock()

		if ok && p.IsAvailable() {
			return true
		}
	}

	return false
}

// Complete implements Client with retry, circuit breaking, and task-aware fallback.
func (r *Registry) Complete(ctx context.Context, req Request) (Response, error) {
	return executeWithTaskFallback(ctx, r, req.Task, req.Model, func(ctx context.Context, p Provider, model string) (Response, error) {
		attemptReq := req
		attemptReq.Model = model

		return p.Complete(ctx, attemptReq)
	})
}

// getProviderChainForTask returns the provider/model chain for a task.
// Only the task's chain is used; providers outside it never serve the task.
func (r *Registry) getProviderChainForTask(taskType TaskType) []ProviderModel {
	r.mu.RLock()
	taskChain, hasConfig := r.taskConfig[taskType]
	r.mu.RUnlock()

	if !hasConfig {
		return nil
	}

	return taskChain.GetProviderChain()
}

// executeWithTaskFallback walks the task chain until one provider succeeds.
// An explicit model override applies to the chain's first entry only, since
// fallbacks run on other services.
func executeWithTaskFallback[T any](ctx context.Context, r *Registry, taskType TaskType, modelOverride string, fn func(context.Context, Provider, string) (T, error)) (T, error) {
	providerModels := r.getProviderChainForTask(taskType)

	var zero T

	if len(providerModels) == 0 {
		return zero, ErrNoProvidersAvailable
	}

	var lastErr error

	var previousProvider ProviderName

	for i, pm := range providerModels {
		if i == 0 && modelOverride != "" {
			pm.Model = modelOverride
		}

		result, success, err := tryProviderExec(ctx, r, pm, taskType, fn)
		if err != nil {
			lastErr = err

			if previousProvider == "" {
				previousProvider = pm.Provider
			}

			if ctx.Err() != nil {
				break
			}

			continue
		}

		if !success {
			continue
		}

		if previousProvider != "" {
			observability.LLMFallbacks.WithLabelValues(
				string(previousProvider),
				string(pm.Provider),
				string(taskType),
			).Inc()

			r.logger.Info().
				Str(logKeyProvider, string(pm.Provider)).
				Str("from_provider", string(previousProvider)).
				Str(logKeyTask, string(taskType)).
				Msg("used fallback LLM provider")
		}

		return result, nil
	}

	if lastErr != nil {
		return zero, errors.Join(ErrAllProvidersFailed, lastErr)
	}

	return zero, ErrNoProvidersAvailable
}

// tryProviderExec runs fn against one provider with retries.
func tryProviderExec[T any](ctx context.Context, r *Registry, pm ProviderModel, taskType TaskType, fn func(context.Context, Provider, string) (T, error)) (T, bool, error) {
	var zero T

	r.mu.RLock()
	p, exists := r.providers[pm.Provider]
	r.mu.RUnlock()

	if !exists || !p.IsAvailable() {
		return zero, false, nil
	}

	cb := r.getCircuitBreaker(pm.Provider)

	if err := cb.CheckCircuit(); err != nil {
		observability.LLMCircuitBreakerState.WithLabelValues(string(pm.Provider)).Set(MetricValueCBOpen)
		observability.LLMProviderAvailable.WithLabelValues(string(pm.Provider)).Set(MetricValueUnavailable)

		r.logger.Debug().
			Str(logKeyProvider, string(pm.Provider)).
			Str(logKeyTask, string(taskType)).
			Msg(logMsgCircuitBreakerOpen)

		return zero, false, fmt.Errorf("%s: %w", pm.Provider, err)
	}

	start := time.Now()

	result, err := withRetry(ctx, r.retry, taskType, r.logger, func(ctx context.Context) (T, error) {
		if r.timeout > 0 {
			var cancel context.CancelFunc

			ctx, cancel = context.WithTimeout(ctx, r.timeout)
			defer cancel()
		}

		return fn(ctx, p, pm.Model)
	})

	duration := time.Since(start)

	observability.LLMRequestLatency.WithLabelValues(
		string(pm.Provider),
		pm.Model,
		string(taskType),
	).Observe(duration.Seconds())

	if err != nil {
		wasOpen := !cb.CanAttempt()
		cb.RecordFailure(pm.Provider)

		if !wasOpen && !cb.CanAttempt() {
			observability.LLMCircuitBreakerState.WithLabelValues(string(pm.Provider)).Set(MetricValueCBOpen)
			observability.LLMProviderAvailable.WithLabelValues(string(pm.Provider)).Set(MetricValueUnavailable)
		}

		r.logger.Warn().
			Err(err).
			Str(logKeyProvider, string(pm.Provider)).
			Str(logKeyModel, pm.Model).
			Str(logKeyTask, string(taskType)).
			Float64("duration_seconds", duration.Seconds()).
			Msg("LLM provider failed, trying fallback")

		return zero, false, err
	}

	cb.RecordSuccess()

	observability.LLMCircuitBreakerState.WithLabelValues(string(pm.Provider)).Set(MetricValueCBClosed)
	observability.LLMProviderAvailable.WithLabelValues(string(pm.Provider)).Set(MetricValueAvailable)

	return result, true, nil
}

// sortProvidersByPriority sorts providers by priority in descending order.
func (r *Registry) sortProvidersByPriority() {
	sort.SliceStable(r.order, func(i, j int) bool {
		pi := r.providers[r.order[i]].Priority()
		pj := r.providers[r.order[j]].Priority()

		return pi > pj
	})
}

// getCircuitBreaker returns the circuit breaker for a provider.
func (r *Registry) getCircuitBreaker(name ProviderName) *CircuitBreaker {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.circuitBreakers[name]
}

// ProviderStatus holds status information for a provider.
type ProviderStatus struct {
	Name             ProviderName
	Priority         int
	Available        bool
	CircuitBreakerOK bool
}

// GetProviderStatuses returns status information for all registered providers.
func (r *Registry) GetProviderStatuses() []ProviderStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	statuses := make([]ProviderStatus, 0, len(r.order))

	for _, name := range r.order {
		p := r.providers[name]
		cb := r.circuitBreakers[name]

		statuses = append(statuses, ProviderStatus{
			Name:             name,
			Priority:         p.Priority(),
			Available:        p.IsAvailable(),
			CircuitBreakerOK: cb.CanAttempt(),
		})
	}

	return statuses
}

// Ensure Registry implements Client interface.
var _ Client = (*Registry)(nil)
