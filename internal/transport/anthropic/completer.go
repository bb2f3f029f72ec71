// Package anthropic answers prompts through the Anthropic Messages API.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/kailas-cloud/boardrag/internal/domain"
)

const defaultMaxTokens = 1024

// Config holds Anthropic connection and model settings.
type Config struct {
	APIKey      string
	BaseURL     string // optional, tests and proxies
	Model       string
	Temperature float64
	MaxTokens   int
	Logger      *zap.Logger
}

// Completer sends one Messages request per prompt.
type Completer struct {
	client      anthropic.Client
	model       string
	temperature float64
	maxTokens   int64
	logger      *zap.Logger
}

// NewCompleter creates an Anthropic completion provider.
// SDK retries are disabled: a query gets exactly one completion attempt.
func NewCompleter(cfg *Config) *Completer {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Completer{
		client:      anthropic.NewClient(opts...),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   int64(maxTokens),
		logger:      logger,
	}
}

// Complete implements domain.Completer.
func (c *Completer) Complete(ctx context.Context, prompt string) (domain.CompletionResult, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
		Temperature: anthropic.Float(c.temperature),
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return domain.CompletionResult{}, fmt.Errorf("anthropic messages: status %d: %w",
				apiErr.StatusCode, domain.ErrCompletion)
		}
		return domain.CompletionResult{}, fmt.Errorf("anthropic messages: %v: %w", err, domain.ErrCompletion)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return domain.CompletionResult{}, fmt.Errorf("blank completion (stop_reason %s): %w",
			resp.StopReason, domain.ErrCompletion)
	}

	c.logger.Debug("anthropic message finished",
		zap.String("model", c.model),
		zap.String("stop_reason", string(resp.StopReason)),
	)

	return domain.CompletionResult{
		Text:             text,
		PromptTokens:     int(resp.Usage.InputTokens),
		CompletionTokens: int(resp.Usage.OutputTokens),
	}, nil
}
