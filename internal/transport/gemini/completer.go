// Package gemini answers prompts through the Google Gemini API.
package gemini

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/kailas-cloud/boardrag/internal/domain"
)

// Config holds Gemini connection and model settings.
type Config struct {
	APIKey      string
	BaseURL     string // optional, tests and proxies
	Model       string
	Temperature float64
	MaxTokens   int
	Logger      *zap.Logger
}

// Completer generates one answer per prompt with GenerateContent.
type Completer struct {
	client *genai.Client
	model  string
	config *genai.GenerateContentConfig
	logger *zap.Logger
}

// NewCompleter creates a Gemini completion provider.
func NewCompleter(ctx context.Context, cfg *Config) (*Completer, error) {
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("init genai client: %w", err)
	}

	gc := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(cfg.Temperature)),
	}
	if cfg.MaxTokens > 0 {
		gc.MaxOutputTokens = int32(cfg.MaxTokens) //nolint:gosec // validated config value
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Completer{client: client, model: cfg.Model, config: gc, logger: logger}, nil
}

// Complete implements domain.Completer.
func (c *Completer) Complete(ctx context.Context, prompt string) (domain.CompletionResult, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), c.config)
	if err != nil {
		return domain.CompletionResult{}, fmt.Errorf("gemini generate: %v: %w", err, domain.ErrCompletion)
	}

	// First candidate carrying text wins.
	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part != nil && part.Text != "" {
				sb.WriteString(part.Text)
			}
		}
		if sb.Len() > 0 {
			break
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return domain.CompletionResult{}, fmt.Errorf("gemini returned no text: %w", domain.ErrCompletion)
	}

	result := domain.CompletionResult{Text: text}
	if u := resp.UsageMetadata; u != nil {
		result.PromptTokens = int(u.PromptTokenCount)
		result.CompletionTokens = int(u.CandidatesTokenCount)
	}
	c.logger.Debug("gemini generate finished", zap.String("model", c.model))
	return result, nil
}
