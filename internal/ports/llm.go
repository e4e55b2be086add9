// Package ports defines the interfaces that form the contract between the
// decision engine and the infrastructure layer. The engine treats every
// external capability behind these interfaces as opaque and fallible.
package ports

import "context"

// LLMClient is the single oracle capability every decision component
// depends on: query a language model with a prompt and get free text back.
// The call may be slow, may fail, and may return malformed output; callers
// never assume success. Implementations handle provider-specific details
// such as authentication, rate limiting, and retries.
type LLMClient interface {
	// Complete sends a completion request and returns the generated text.
	// The options map carries provider-specific settings; common keys:
	//   - "temperature": float64 (0.0-1.0)
	//   - "max_tokens": int
	//   - "model": string (per-call model override)
	Complete(ctx context.Context, prompt string, options map[string]any) (string, error)

	// EstimateTokens approximates the token count for a text, for cost
	// accounting. The estimation method may vary by provider.
	EstimateTokens(text string) (int, error)

	// GetModel returns the model identifier used by this client, for
	// logging and for tagging proposals with their origin.
	GetModel() string
}

// MetricsCollector abstracts operational metrics so the LLM middleware and
// session loop do not depend on a concrete metrics backend.
type MetricsCollector interface {
	// RecordLatency records the execution time of an operation in seconds.
	RecordLatency(operation string, seconds float64, labels map[string]string)

	// RecordCounter increments a counter metric.
	RecordCounter(metric string, value float64, labels map[string]string)

	// RecordGauge sets the current value of a gauge metric.
	RecordGauge(metric string, value float64, labels map[string]string)
}
