package llm

import (
	"context"
	"sync"
)

// MockProvider replays scripted replies. Once the script is exhausted the
// last entry repeats.
type MockProvider struct {
	name      ProviderName
	priority  int
	available bool

	mu       sync.Mutex
	replies  []MockReply
	requests []Request
}

// MockReply is one scripted outcome.
type MockReply struct {
	Text string
	Err  error
}

// NewMockProvider creates an available mock registered under name.
func NewMockProvider(name ProviderName, replies ...MockReply) *MockProvider {
	return &MockProvider{
		name:      name,
		priority:  PriorityMock,
		available: true,
		replies:   replies,
	}
}

// SetAvailable toggles IsAvailable.
func (p *MockProvider) SetAvailable(v bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.available = v
}

// Name returns the provider identifier.
func (p *MockProvider) Name() ProviderName {
	return p.name
}

// IsAvailable returns the configured availability.
func (p *MockProvider) IsAvailable() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.available
}

// Priority returns the provider priority.
func (p *MockProvider) Priority() int {
	return p.priority
}

// Requests returns a copy of every request received.
func (p *MockProvider) Requests() []Request {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]Request, len(p.requests))
	copy(out, p.requests)

	return out
}

// Complete implements Provider interface.
func (p *MockProvider) Complete(ctx context.Context, req Request) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.requests = append(p.requests, req)

	if len(p.replies) == 0 {
		return Response{Provider: p.name, Model: req.Model}, nil
	}

	idx := len(p.requests) - 1
	if idx >= len(p.replies) {
		idx = len(p.replies) - 1
	}

	reply := p.replies[idx]
	if reply.Err != nil {
		return Response{}, reply.Err
	}

	return Response{Text: reply.Text, Provider: p.name, Model: req.Model}, nil
}

// Ensure MockProvider implements Provider interface.
var _ Provider = (*MockProvider)(nil)
