package search

import (
	"context"
	"testing"

	"github.com/kailas-cloud/boardrag/internal/db"
	"github.com/kailas-cloud/boardrag/internal/domain"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	searchKNNFn func(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	indexInfoFn func(ctx context.Context, name string) (*db.IndexInfo, error)
}

func (m *mockStore) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if m.searchKNNFn != nil {
		return m.searchKNNFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) IndexInfo(ctx context.Context, name string) (*db.IndexInfo, error) {
	if m.indexInfoFn != nil {
		return m.indexInfoFn(ctx, name)
	}
	return &db.IndexInfo{Name: name}, nil
}

// mockEmbedder returns a fixed vector or error.
type mockEmbedder struct {
	err error
	got string
	vec []float32
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.got = text
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vec}, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore, *mockEmbedder) {
	t.Helper()
	ms := &mockStore{}
	me := &mockEmbedder{vec: []float32{0.1, 0.1, 0.1, 0.1}}
	repo := New(ms, me, "boardrag:rules", "boardrag:chunk:")
	return repo, ms, me
}
