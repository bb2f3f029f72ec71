package ollama

import (
	"context"
	"fmt"
	"strings"

	"github.com/ollama/ollama/api"
	"go.uber.org/zap"

	"github.com/kailas-cloud/boardrag/internal/domain"
)

// Completer answers prompts with a single non-streaming /api/generate call.
type Completer struct {
	client  *api.Client
	model   string
	options map[string]any
	logger  *zap.Logger
}

// NewCompleter creates an Ollama completion provider.
func NewCompleter(cfg *Config) (*Completer, error) {
	client, err := newClient(cfg)
	if err != nil {
		return nil, err
	}

	opts := map[string]any{"temperature": cfg.Temperature}
	if cfg.MaxTokens > 0 {
		opts["num_predict"] = cfg.MaxTokens
	}

	return &Completer{
		client:  client,
		model:   cfg.Model,
		options: opts,
		logger:  loggerOrNop(cfg.Logger),
	}, nil
}

// Complete implements domain.Completer.
func (c *Completer) Complete(ctx context.Context, prompt string) (domain.CompletionResult, error) {
	stream := false
	req := &api.GenerateRequest{
		Model:   c.model,
		Prompt:  prompt,
		Stream:  &stream,
		Options: c.options,
	}

	var (
		sb     strings.Builder
		result domain.CompletionResult
	)
	err := c.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		sb.WriteString(resp.Response)
		if resp.Done {
			result.PromptTokens = resp.PromptEvalCount
			result.CompletionTokens = resp.EvalCount
			c.logger.Debug("ollama generate finished",
				zap.String("model", c.model),
				zap.String("done_reason", resp.DoneReason),
				zap.Duration("total_duration", resp.TotalDuration),
			)
		}
		return nil
	})
	if err != nil {
		return domain.CompletionResult{}, fmt.Errorf("ollama generate: %s: %w", describe(err), domain.ErrCompletion)
	}

	result.Text = strings.TrimSpace(sb.String())
	if result.Text == "" {
		return domain.CompletionResult{}, fmt.Errorf("ollama returned an empty answer: %w", domain.ErrCompletion)
	}
	return result, nil
}

// HealthCheck pings the Ollama server.
func (c *Completer) HealthCheck(ctx context.Context) error {
	if err := c.client.Heartbeat(ctx); err != nil {
		return fmt.Errorf("ollama heartbeat: %w", err)
	}
	return nil
}
