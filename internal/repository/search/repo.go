package search

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/boardrag/internal/db"
	"github.com/kailas-cloud/boardrag/internal/domain"
)

// Hash field names written by the rulebook loader.
const (
	FieldContent = "__content"
	FieldSource  = "source"
	FieldPage    = "page"
	FieldID      = "id"
)

// store is the consumer interface for search operations (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	IndexInfo(ctx context.Context, name string) (*db.IndexInfo, error)
}

// Repo is the Redis / Valkey backed rulebook index.
type Repo struct {
	store     store
	embedder  domain.Embedder
	indexName string
	keyPrefix string
}

// New creates a search repository over an existing FT index.
func New(s store, embedder domain.Embedder, indexName, keyPrefix string) *Repo {
	return &Repo{store: s, embedder: embedder, indexName: indexName, keyPrefix: keyPrefix}
}

// Search embeds the question and returns the k nearest chunks, best first.
// Every failure, including an empty index, is reported as domain.ErrIndexUnavailable.
func (r *Repo) Search(ctx context.Context, text string, k int) ([]domain.ScoredDocument, error) {
	emb, err := r.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %w", domain.ErrIndexUnavailable, err)
	}

	sr, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.indexName,
		Vector:       emb.Embedding,
		K:            k,
		ReturnFields: []string{FieldContent, FieldSource, FieldPage, FieldID},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: search %s: %w", domain.ErrIndexUnavailable, r.indexName, err)
	}
	if sr == nil || sr.Total == 0 {
		return nil, fmt.Errorf("%w: index %s is empty", domain.ErrIndexUnavailable, r.indexName)
	}

	docs := make([]domain.ScoredDocument, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		docs = append(docs, r.parseEntry(entry))
	}
	return docs, nil
}

// Ready reports whether the index exists and holds at least one chunk.
func (r *Repo) Ready(ctx context.Context) error {
	info, err := r.store.IndexInfo(ctx, r.indexName)
	if errors.Is(err, db.ErrIndexNotFound) {
		return fmt.Errorf("%w: index %s not found", domain.ErrIndexUnavailable, r.indexName)
	}
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrIndexUnavailable, err)
	}
	if info.NumDocs == 0 {
		return fmt.Errorf("%w: index %s is empty", domain.ErrIndexUnavailable, r.indexName)
	}
	return nil
}

// parseEntry maps flat hash fields into a document. A missing id falls back to the key.
func (r *Repo) parseEntry(entry db.SearchEntry) domain.ScoredDocument {
	id := entry.Fields[FieldID]
	if id == "" {
		id = strings.TrimPrefix(entry.Key, r.keyPrefix)
	}
	return domain.ScoredDocument{
		Document: domain.Document{
			ID:      id,
			Source:  entry.Fields[FieldSource],
			Page:    parsePage(entry.Fields[FieldPage]),
			Content: entry.Fields[FieldContent],
		},
		Score: entry.Score,
	}
}

// parsePage accepts "6" and "6.0"; anything else is unknown.
func parsePage(v string) int {
	if v == "" {
		return 0
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return int(f)
	}
	return 0
}
