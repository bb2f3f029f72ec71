// Package answer packages the model output with source attribution.
package answer

import (
	"unicode/utf8"

	"github.com/kailas-cloud/boardrag/internal/domain"
)

// DefaultSnippetChars caps the content shown for each source.
const DefaultSnippetChars = 200

// Ellipsis marks a truncated snippet.
const Ellipsis = "..."

// Source is the attribution record for one document that was shown to the model.
type Source struct {
	ID      string
	Source  string
	Page    int
	Content string
	Score   float64
}

// Response is the result of a single question.
type Response struct {
	Answer   string
	Sources  []Source
	Question string
}

// Compose builds the response. Sources keep the order of kept.
// A non-positive snippet length uses DefaultSnippetChars.
func Compose(raw string, kept []domain.ScoredDocument, question string, snippetChars int) Response {
	if snippetChars <= 0 {
		snippetChars = DefaultSnippetChars
	}

	sources := make([]Source, len(kept))
	for i, d := range kept {
		sources[i] = Source{
			ID:      d.ID,
			Source:  d.Source,
			Page:    d.Page,
			Content: Truncate(d.Content, snippetChars),
			Score:   d.Score,
		}
	}

	return Response{Answer: raw, Sources: sources, Question: question}
}

// Truncate returns s unchanged if it has at most n runes, otherwise its first n runes plus Ellipsis.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i] + Ellipsis
		}
		count++
	}
	return s
}

// SourceIDs returns the ids of the sources in order.
func (r *Response) SourceIDs() []string {
	ids := make([]string, len(r.Sources))
	for i, s := range r.Sources {
		ids[i] = s.ID
	}
	return ids
}
