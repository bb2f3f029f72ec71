package query

import (
	"context"

	"github.com/kailas-cloud/boardrag/internal/domain"
)

// Index returns the k nearest rulebook passages for a question, best first.
// Implementations wrap every failure, including an empty index, in domain.ErrIndexUnavailable.
type Index interface {
	Search(ctx context.Context, text string, k int) ([]domain.ScoredDocument, error)
}

// Completer turns a rendered prompt into an answer.
type Completer interface {
	Complete(ctx context.Context, prompt string) (domain.CompletionResult, error)
}
