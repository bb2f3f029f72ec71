// Package completion decorates completion providers with timeouts, metrics, and logging.
package completion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/boardrag/internal/domain"
	"github.com/kailas-cloud/boardrag/internal/metrics"
)

// InstrumentedCompleter wraps a Completer with a per-call timeout, metrics, and logging.
// Every failure it returns wraps domain.ErrCompletion.
type InstrumentedCompleter struct {
	inner    domain.Completer
	provider string
	model    string
	timeout  time.Duration
	logger   *zap.Logger
}

// NewInstrumentedCompleter wraps a completer. A zero timeout leaves the caller's deadline alone.
func NewInstrumentedCompleter(
	inner domain.Completer, provider, model string,
	timeout time.Duration, logger *zap.Logger,
) *InstrumentedCompleter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InstrumentedCompleter{
		inner:    inner,
		provider: provider,
		model:    model,
		timeout:  timeout,
		logger:   logger,
	}
}

// Complete makes exactly one call to the inner provider.
func (c *InstrumentedCompleter) Complete(ctx context.Context, prompt string) (domain.CompletionResult, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()

	result, err := c.inner.Complete(ctx, prompt)

	duration := time.Since(start)

	if err != nil {
		metrics.CompletionRequestsTotal.WithLabelValues(c.provider, c.model, "error").Inc()
		c.logger.Error("Completion request failed",
			zap.String("provider", c.provider),
			zap.String("model", c.model),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		if errors.Is(err, domain.ErrCompletion) {
			return domain.CompletionResult{}, fmt.Errorf("complete: %w", err)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return domain.CompletionResult{}, fmt.Errorf("complete: timed out after %s: %w", duration.Round(time.Millisecond), domain.ErrCompletion)
		}
		return domain.CompletionResult{}, fmt.Errorf("complete: %v: %w", err, domain.ErrCompletion)
	}

	metrics.CompletionRequestsTotal.WithLabelValues(c.provider, c.model, "success").Inc()
	metrics.CompletionRequestDuration.WithLabelValues(c.provider, c.model).Observe(duration.Seconds())
	if result.PromptTokens > 0 {
		metrics.CompletionTokensTotal.WithLabelValues(c.provider, c.model, "prompt").Add(float64(result.PromptTokens))
	}
	if result.CompletionTokens > 0 {
		metrics.CompletionTokensTotal.WithLabelValues(c.provider, c.model, "completion").Add(float64(result.CompletionTokens))
	}

	c.logger.Debug("Completion request completed",
		zap.String("provider", c.provider),
		zap.String("model", c.model),
		zap.Duration("duration", duration),
		zap.Int("prompt_tokens", result.PromptTokens),
		zap.Int("completion_tokens", result.CompletionTokens),
	)

	return result, nil
}

// HealthCheck forwards to the inner completer when it supports probing.
func (c *InstrumentedCompleter) HealthCheck(ctx context.Context) error {
	if hc, ok := c.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // transparent decorator
	}
	return nil
}

// CanProbe reports whether the wrapped provider has a health probe.
func (c *InstrumentedCompleter) CanProbe() bool {
	_, ok := c.inner.(domain.HealthChecker)
	return ok
}
