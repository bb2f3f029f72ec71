// Package contextwindow bounds the retrieved documents handed to the completion provider.
package contextwindow

import (
	"strings"

	"github.com/kailas-cloud/boardrag/internal/domain"
)

// Separator joins document contents in the prompt context.
const Separator = "\n\n---\n\n"

// DefaultCap is the number of documents kept for prompting and attribution.
// It is also the upper bound: a response never carries more than DefaultCap sources.
const DefaultCap = 5

// Assemble keeps the first limit documents and joins their content.
// The returned slice is a copy: callers use it both for the prompt and for the
// reported sources, so the two always agree. A limit outside 1..DefaultCap uses DefaultCap.
func Assemble(filtered []domain.ScoredDocument, limit int) (string, []domain.ScoredDocument) {
	if limit <= 0 || limit > DefaultCap {
		limit = DefaultCap
	}
	n := min(limit, len(filtered))

	kept := make([]domain.ScoredDocument, n)
	copy(kept, filtered[:n])

	parts := make([]string, n)
	for i, d := range kept {
		parts[i] = d.Content
	}
	return strings.Join(parts, Separator), kept
}
