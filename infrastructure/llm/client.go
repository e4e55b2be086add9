// Package llm provides a unified client for querying language models with
// built-in support for retries, rate limiting, and metrics.
//
// The decision engine treats the model as an opaque, fallible oracle; this
// package is the only place that knows about concrete providers. The primary
// deployment talks to a local Ollama server through its OpenAI-compatible
// API; hosted OpenAI, Anthropic, and Google Gemini backends are available
// behind the same interface. Cross-cutting concerns are composed as
// middleware around a minimal CoreLLM provider interface.
package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/localfm/airdj/internal/ports"
)

// CoreLLM is the minimal surface a provider must implement. Middleware
// wraps any conforming implementation.
type CoreLLM interface {
	// DoRequest sends prompt to the provider and returns the response text
	// plus input/output token counts.
	DoRequest(ctx context.Context, prompt string, opts map[string]any) (response string, tokensIn, tokensOut int, err error)

	// GetModel returns the currently configured model name.
	GetModel() string

	// SetModel switches the model for subsequent requests.
	SetModel(model string)
}

// Middleware wraps a CoreLLM to add cross-cutting behavior such as retry,
// rate limiting, or metrics without touching provider logic.
type Middleware func(CoreLLM) CoreLLM

// TokenEstimator provides pluggable token estimation for cost accounting
// when exact counts are unavailable before a request.
type TokenEstimator interface {
	EstimateTokens(text string) int
}

// ClientConfig holds everything needed to construct a client for one
// provider.
type ClientConfig struct {
	// APIKey authenticates requests. Local Ollama ignores it; a
	// placeholder is substituted when empty for that provider.
	APIKey string

	// Model selects the model for requests.
	Model string

	// BaseURL overrides the provider's default endpoint. Required to
	// point the openai provider at a local Ollama server.
	BaseURL string

	// Timeout bounds individual requests; zero means no client timeout.
	Timeout time.Duration

	// TokenEstimator overrides the default character-based estimator.
	TokenEstimator TokenEstimator

	// Middleware is applied in order, first entry outermost.
	Middleware []Middleware
}

// Client implements ports.LLMClient by wrapping a provider CoreLLM with
// the configured middleware chain.
type Client struct {
	core      CoreLLM
	estimator TokenEstimator
}

var _ ports.LLMClient = (*Client)(nil)

// NewClient assembles the middleware chain around the named provider.
// Known providers: "ollama", "openai", "anthropic", "google".
func NewClient(providerType string, config ClientConfig) (*Client, error) {
	factory, ok := providerFactories[providerType]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", providerType)
	}

	core, err := factory(config)
	if err != nil {
		return nil, fmt.Errorf("create %s provider: %w", providerType, err)
	}

	// Reverse order so the first middleware ends up outermost.
	for i := len(config.Middleware) - 1; i >= 0; i-- {
		core = config.Middleware[i](core)
	}

	estimator := config.TokenEstimator
	if estimator == nil {
		estimator = NewTokenCounter()
	}

	return &Client{core: core, estimator: estimator}, nil
}

// Complete sends a prompt and returns the response text, discarding token
// usage. This is the call every decision component uses.
func (c *Client) Complete(ctx context.Context, prompt string, options map[string]any) (string, error) {
	response, _, _, err := c.core.DoRequest(ctx, prompt, options)
	return response, err
}

// CompleteWithUsage exposes token counts for callers that track spend.
func (c *Client) CompleteWithUsage(ctx context.Context, prompt string, options map[string]any) (string, int, int, error) {
	return c.core.DoRequest(ctx, prompt, options)
}

// EstimateTokens approximates the token count for text.
func (c *Client) EstimateTokens(text string) (int, error) {
	return c.estimator.EstimateTokens(text), nil
}

// GetModel returns the underlying provider's model name.
func (c *Client) GetModel() string { return c.core.GetModel() }

// ProviderFactory builds a CoreLLM from configuration.
type ProviderFactory func(ClientConfig) (CoreLLM, error)

var providerFactories = map[string]ProviderFactory{}

// RegisterProviderFactory registers a provider under a name, allowing
// custom providers without modifying this package.
func RegisterProviderFactory(providerType string, factory ProviderFactory) {
	providerFactories[providerType] = factory
}
