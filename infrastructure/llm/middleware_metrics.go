package llm

import (
	"context"
	"time"

	"github.com/localfm/airdj/internal/ports"
)

// metricsLLM records request counts, failures, latency, and token usage
// through the MetricsCollector port.
type metricsLLM struct {
	next      CoreLLM
	collector ports.MetricsCollector
}

// MetricsMiddleware creates middleware that reports per-request metrics to
// collector. A nil collector yields a pass-through.
func MetricsMiddleware(collector ports.MetricsCollector) Middleware {
	return func(next CoreLLM) CoreLLM {
		if collector == nil {
			return next
		}
		return &metricsLLM{next: next, collector: collector}
	}
}

// DoRequest forwards the request and records its outcome.
func (m *metricsLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	start := time.Now()
	response, tokensIn, tokensOut, err := m.next.DoRequest(ctx, prompt, opts)

	labels := map[string]string{"model": m.next.GetModel()}
	m.collector.RecordLatency("llm_request", time.Since(start).Seconds(), labels)
	if err != nil {
		m.collector.RecordCounter("llm_request_errors_total", 1, labels)
		return response, tokensIn, tokensOut, err
	}
	m.collector.RecordCounter("llm_requests_total", 1, labels)
	m.collector.RecordCounter("llm_tokens_total", float64(tokensIn+tokensOut), labels)
	return response, tokensIn, tokensOut, nil
}

// GetModel returns the model name from the wrapped implementation.
func (m *metricsLLM) GetModel() string { return m.next.GetModel() }

// SetModel updates the model name in the wrapped implementation.
func (m *metricsLLM) SetModel(model string) { m.next.SetModel(model) }
