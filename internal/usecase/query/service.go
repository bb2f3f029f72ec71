// Package query answers a rules question: search, filter by game, prompt, complete, attribute.
package query

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/boardrag/internal/domain"
	"github.com/kailas-cloud/boardrag/internal/domain/answer"
	"github.com/kailas-cloud/boardrag/internal/domain/contextwindow"
	"github.com/kailas-cloud/boardrag/internal/domain/prompt"
	"github.com/kailas-cloud/boardrag/internal/domain/relevance"
	"github.com/kailas-cloud/boardrag/internal/logger"
	"github.com/kailas-cloud/boardrag/internal/metrics"
)

// DefaultFanOut is the number of candidates fetched from the index before filtering.
const DefaultFanOut = 8

// Options tunes the pipeline. Zero values use the package defaults.
type Options struct {
	FanOut       int
	ContextCap   int
	SnippetChars int
	Template     *prompt.Template
}

// Service runs the retrieval pipeline. It holds no per-query state and is safe for concurrent use.
type Service struct {
	index     Index
	filter    *relevance.Filter
	completer Completer
	template  prompt.Template
	fanOut    int
	cap       int
	snippet   int
}

// New creates a query service.
func New(index Index, filter *relevance.Filter, completer Completer, opts Options) *Service {
	s := &Service{
		index:     index,
		filter:    filter,
		completer: completer,
		template:  prompt.Default(),
		fanOut:    DefaultFanOut,
		cap:       contextwindow.DefaultCap,
		snippet:   answer.DefaultSnippetChars,
	}
	if opts.FanOut > 0 {
		s.fanOut = opts.FanOut
	}
	if opts.ContextCap > 0 {
		s.cap = opts.ContextCap
	}
	if opts.SnippetChars > 0 {
		s.snippet = opts.SnippetChars
	}
	if opts.Template != nil {
		s.template = *opts.Template
	}
	return s
}

// Query answers one question. On error the returned response is the zero value.
func (s *Service) Query(ctx context.Context, question string) (answer.Response, error) {
	if strings.TrimSpace(question) == "" {
		metrics.QueriesTotal.WithLabelValues("invalid").Inc()
		return answer.Response{}, fmt.Errorf("%w: question is empty", domain.ErrInvalidQuery)
	}
	log := logger.FromContext(ctx)

	candidates, err := s.index.Search(ctx, question, s.fanOut)
	if err != nil {
		metrics.QueriesTotal.WithLabelValues("index_unavailable").Inc()
		log.Error("Index search failed", zap.Error(err))
		if !errors.Is(err, domain.ErrIndexUnavailable) {
			err = fmt.Errorf("%w: %w", domain.ErrIndexUnavailable, err)
		}
		return answer.Response{}, fmt.Errorf("search: %w", err)
	}

	detected := s.filter.Detect(question)
	filtered, outcome := s.filter.Select(detected, candidates)
	metrics.FilterOutcomeTotal.WithLabelValues(string(outcome)).Inc()
	for _, g := range detected.Games() {
		metrics.GameMatchesTotal.WithLabelValues(g).Inc()
	}

	contextText, kept := contextwindow.Assemble(filtered, s.cap)
	metrics.QuerySources.Observe(float64(len(kept)))

	log.Debug("Context assembled",
		zap.Int("candidates", len(candidates)),
		zap.Strings("games", detected.Games()),
		zap.String("filter_outcome", string(outcome)),
		zap.Int("filtered", len(filtered)),
		zap.Int("kept", len(kept)),
	)
	if outcome == relevance.Fallback {
		log.Debug("No candidate matched the detected games, using unfiltered results",
			zap.Strings("games", detected.Games()),
		)
	}

	rendered, err := s.template.Build(contextText, question)
	if err != nil {
		metrics.QueriesTotal.WithLabelValues("error").Inc()
		return answer.Response{}, fmt.Errorf("build prompt: %w", err)
	}

	completion, err := s.completer.Complete(ctx, rendered)
	if err != nil {
		metrics.QueriesTotal.WithLabelValues("completion_failed").Inc()
		if !errors.Is(err, domain.ErrCompletion) {
			err = fmt.Errorf("%w: %w", domain.ErrCompletion, err)
		}
		return answer.Response{}, fmt.Errorf("complete: %w", err)
	}

	metrics.QueriesTotal.WithLabelValues("ok").Inc()
	return answer.Compose(completion.Text, kept, question, s.snippet), nil
}
