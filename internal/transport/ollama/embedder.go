package ollama

import (
	"context"
	"fmt"
	"time"

	"github.com/ollama/ollama/api"
	"go.uber.org/zap"

	"github.com/kailas-cloud/boardrag/internal/domain"
	"github.com/kailas-cloud/boardrag/internal/metrics"
)

// Embedder produces query vectors through Ollama's /api/embed endpoint.
type Embedder struct {
	client   *api.Client
	model    string
	provider string
	logger   *zap.Logger
}

// NewEmbedder creates an Ollama embedding provider.
func NewEmbedder(cfg *Config) (*Embedder, error) {
	client, err := newClient(cfg)
	if err != nil {
		return nil, err
	}
	return &Embedder{
		client:   client,
		model:    cfg.Model,
		provider: providerName(cfg),
		logger:   loggerOrNop(cfg.Logger),
	}, nil
}

// Embed implements domain.Embedder.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	start := time.Now()

	resp, err := e.client.Embed(ctx, &api.EmbedRequest{Model: e.model, Input: text})

	duration := time.Since(start)

	if err != nil {
		metrics.EmbeddingFailed(e.provider, e.model, "api_error")
		return domain.EmbeddingResult{}, fmt.Errorf("ollama embed: %s: %w", describe(err), domain.ErrEmbeddingProviderError)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0]) == 0 {
		metrics.EmbeddingFailed(e.provider, e.model, "empty_response")
		return domain.EmbeddingResult{}, fmt.Errorf("empty embedding response: %w", domain.ErrEmbeddingProviderError)
	}

	metrics.ObserveEmbedding(e.provider, e.model, duration, resp.PromptEvalCount, 0)

	return domain.EmbeddingResult{
		Embedding:    resp.Embeddings[0],
		PromptTokens: resp.PromptEvalCount,
		TotalTokens:  resp.PromptEvalCount,
	}, nil
}

// HealthCheck pings the Ollama server.
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if err := e.client.Heartbeat(ctx); err != nil {
		return fmt.Errorf("ollama heartbeat: %w", err)
	}
	return nil
}
