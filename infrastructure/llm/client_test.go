package llm

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCore is a scripted CoreLLM for middleware tests.
type fakeCore struct {
	mu        sync.Mutex
	calls     int
	responses []fakeResult
	model     string
}

type fakeResult struct {
	response string
	err      error
}

func newFakeCore(results ...fakeResult) *fakeCore {
	return &fakeCore{responses: results, model: "fake-model"}
}

func (f *fakeCore) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := f.calls
	f.calls++
	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}
	r := f.responses[idx]
	return r.response, 10, 20, r.err
}

func (f *fakeCore) GetModel() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.model
}

func (f *fakeCore) SetModel(model string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.model = model
}

func (f *fakeCore) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestNewClientUnknownProvider(t *testing.T) {
	_, err := NewClient("carrier-pigeon", ClientConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider")
}

func TestNewClientKnownProviders(t *testing.T) {
	tests := []struct {
		provider string
		config   ClientConfig
	}{
		{provider: "ollama", config: ClientConfig{}},
		{provider: "openai", config: ClientConfig{APIKey: "sk-test"}},
		{provider: "anthropic", config: ClientConfig{APIKey: "sk-ant-test"}},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			client, err := NewClient(tt.provider, tt.config)
			require.NoError(t, err)
			assert.NotEmpty(t, client.GetModel())
		})
	}
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	for _, provider := range []string{"openai", "anthropic", "google"} {
		t.Run(provider, func(t *testing.T) {
			_, err := NewClient(provider, ClientConfig{})
			assert.ErrorIs(t, err, ErrEmptyAPIKey)
		})
	}
}

func TestMiddlewareOrder(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(next CoreLLM) CoreLLM {
			return &taggedCore{next: next, name: name, order: &order}
		}
	}

	RegisterProviderFactory("fake-ordered", func(ClientConfig) (CoreLLM, error) {
		return newFakeCore(fakeResult{response: "ok"}), nil
	})

	client, err := NewClient("fake-ordered", ClientConfig{
		Middleware: []Middleware{tag("outer"), tag("inner")},
	})
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), "hi", nil)
	require.NoError(t, err)
	// First configured middleware runs first on the way in.
	assert.Equal(t, []string{"outer", "inner"}, order)
}

type taggedCore struct {
	next  CoreLLM
	name  string
	order *[]string
}

func (c *taggedCore) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	*c.order = append(*c.order, c.name)
	return c.next.DoRequest(ctx, prompt, opts)
}

func (c *taggedCore) GetModel() string  { return c.next.GetModel() }
func (c *taggedCore) SetModel(m string) { c.next.SetModel(m) }

func TestClientEstimateTokens(t *testing.T) {
	RegisterProviderFactory("fake-est", func(ClientConfig) (CoreLLM, error) {
		return newFakeCore(fakeResult{response: "ok"}), nil
	})
	client, err := NewClient("fake-est", ClientConfig{})
	require.NoError(t, err)

	n, err := client.EstimateTokens("twelve chars")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}
