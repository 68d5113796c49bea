package oracle

import (
	"context"
	"fmt"
	"sync"
)

// MockProvider returns scripted replies by capability. It is used by tests
// and by offline runs of the CLI.
type MockProvider struct {
	mu        sync.Mutex
	replies   map[string]string
	errs      map[string]error
	fallback  string
	calls     map[string]int
	responder func(req Request) (string, error)
}

// NewMockProvider creates a mock whose unscripted capabilities reply with fallback
func NewMockProvider(fallback string) *MockProvider {
	return &MockProvider{
		replies:  make(map[string]string),
		errs:     make(map[string]error),
		calls:    make(map[string]int),
		fallback: fallback,
	}
}

// Reply scripts the text returned for a capability
func (m *MockProvider) Reply(capability, text string) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies[capability] = text
	return m
}

// Fail scripts an error for a capability
func (m *MockProvider) Fail(capability string, err error) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[capability] = err
	return m
}

// Respond installs a function consulted before the scripted replies. It is
// called outside the mock's lock and must be safe for concurrent use.
func (m *MockProvider) Respond(fn func(req Request) (string, error)) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responder = fn
	return m
}

func (m *MockProvider) Complete(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	m.calls[req.Capability]++
	fn := m.responder
	err, failing := m.errs[req.Capability]
	text, scripted := m.replies[req.Capability]
	m.mu.Unlock()

	if fn != nil {
		return fn(req)
	}
	if failing {
		return "", providerError(ProviderMock, err)
	}
	if scripted {
		return text, nil
	}
	if m.fallback == "" {
		return "", providerError(ProviderMock, fmt.Errorf("no reply scripted for %q", req.Capability))
	}
	return m.fallback, nil
}

func (m *MockProvider) Name() string {
	return ProviderMock
}

// Calls returns how many requests were made for a capability
func (m *MockProvider) Calls(capability string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[capability]
}

// TotalCalls returns the number of requests across all capabilities
func (m *MockProvider) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, n := range m.calls {
		total += n
	}
	return total
}
