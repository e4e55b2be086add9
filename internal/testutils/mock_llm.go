// Package testutils provides shared test doubles.
package testutils

import (
	"context"
	"sync"

	"github.com/localfm/airdj/internal/ports"
)

var _ ports.LLMClient = (*MockLLM)(nil)

// MockLLM is a scripted LLMClient. Each call to Complete consumes the next
// response from the script; calls beyond the script return the last entry.
// It records every prompt and counts invocations so tests can assert on
// call volume (for example, that no referee call happened).
type MockLLM struct {
	mu        sync.Mutex
	responses []ScriptedResponse
	calls     int
	prompts   []string
	model     string
}

// ScriptedResponse is one step of the script: a canned response or an error.
type ScriptedResponse struct {
	Response string
	Err      error
}

// NewMockLLM creates a mock that replies with the given responses in order.
func NewMockLLM(responses ...ScriptedResponse) *MockLLM {
	return &MockLLM{responses: responses, model: "mock-model"}
}

// NewMockLLMText is a convenience constructor for all-success scripts.
func NewMockLLMText(responses ...string) *MockLLM {
	script := make([]ScriptedResponse, len(responses))
	for i, r := range responses {
		script[i] = ScriptedResponse{Response: r}
	}
	return NewMockLLM(script...)
}

// Complete returns the next scripted response.
func (m *MockLLM) Complete(ctx context.Context, prompt string, options map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.calls
	m.calls++
	m.prompts = append(m.prompts, prompt)

	if len(m.responses) == 0 {
		return "", nil
	}
	if idx >= len(m.responses) {
		idx = len(m.responses) - 1
	}
	r := m.responses[idx]
	return r.Response, r.Err
}

// EstimateTokens approximates tokens at four characters each.
func (m *MockLLM) EstimateTokens(text string) (int, error) {
	return (len(text) + 3) / 4, nil
}

// GetModel returns the configured model name.
func (m *MockLLM) GetModel() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.model
}

// SetModelName overrides the reported model name.
func (m *MockLLM) SetModelName(model string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.model = model
}

// Calls returns how many times Complete was invoked.
func (m *MockLLM) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Prompts returns a copy of every prompt seen, in call order.
func (m *MockLLM) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.prompts))
	copy(out, m.prompts)
	return out
}
