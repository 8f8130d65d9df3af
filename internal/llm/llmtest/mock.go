// Package llmtest provides a scriptable llm.Client for tests.
package llmtest

import (
	"context"
	"sync"

	"github.com/jonathan/news-digest/internal/llm"
)

// MockClient implements llm.Client with overridable funcs. It records every prompt.
type MockClient struct {
	GenerateContentFunc func(ctx context.Context, prompt string, tier llm.ModelTier) (string, error)
	GenerateJSONFunc    func(ctx context.Context, prompt string, tier llm.ModelTier) (string, error)
	GetModelFunc        func(tier llm.ModelTier) string
	CloseFunc           func() error

	mu      sync.Mutex
	prompts []string
}

var _ llm.Client = (*MockClient)(nil)

// GenerateContent records prompt and delegates to GenerateContentFunc.
func (m *MockClient) GenerateContent(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	m.record(prompt)
	if m.GenerateContentFunc != nil {
		return m.GenerateContentFunc(ctx, prompt, tier)
	}
	return "", nil
}

// GenerateJSON records prompt and delegates to GenerateJSONFunc.
func (m *MockClient) GenerateJSON(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	m.record(prompt)
	if m.GenerateJSONFunc != nil {
		return m.GenerateJSONFunc(ctx, prompt, tier)
	}
	return "[]", nil
}

// GetModel returns "mock-model" unless GetModelFunc is set.
func (m *MockClient) GetModel(tier llm.ModelTier) string {
	if m.GetModelFunc != nil {
		return m.GetModelFunc(tier)
	}
	return "mock-model"
}

// Close delegates to CloseFunc.
func (m *MockClient) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// Prompts returns the prompts seen so far.
func (m *MockClient) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.prompts))
	copy(out, m.prompts)
	return out
}

// Calls returns how many generate calls were made.
func (m *MockClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

func (m *MockClient) record(prompt string) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()
}
