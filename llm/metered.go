package llm

import (
	"context"

	"github.com/codecrew-ai/codecrew/internal/metrics"
)

// MeteredClient wraps a Client and records request counts and estimated
// token usage per completion.
type MeteredClient struct {
	inner     Client
	collector *metrics.Collector
}

// NewMeteredClient instruments a client. A nil collector returns the inner
// client unwrapped.
func NewMeteredClient(inner Client, collector *metrics.Collector) Client {
	if collector == nil {
		return inner
	}
	return &MeteredClient{inner: inner, collector: collector}
}

func (c *MeteredClient) Complete(ctx context.Context, prompt string) (string, error) {
	cfg := c.inner.Config()
	out, err := c.inner.Complete(ctx, prompt)
	status := "success"
	if err != nil {
		status = "error"
	}
	tokens := EstimateTokens(cfg.Model, prompt) + EstimateTokens(cfg.Model, out)
	c.collector.RecordLLMRequest(cfg.Provider, cfg.Model, status, tokens)
	return out, err
}

func (c *MeteredClient) Config() ModelConfig { return c.inner.Config() }
