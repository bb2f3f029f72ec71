package search

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/boardrag/internal/db"
	"github.com/kailas-cloud/boardrag/internal/domain"
)

// --- Search ---

func TestSearch_HappyPath(t *testing.T) {
	repo, ms, me := newTestRepo(t)

	ms.searchKNNFn = func(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
		if q.IndexName != "boardrag:rules" {
			t.Errorf("unexpected index: %s", q.IndexName)
		}
		if q.K != 8 {
			t.Errorf("unexpected K: %d", q.K)
		}
		if len(q.Vector) != 4 {
			t.Errorf("expected query vector, got %v", q.Vector)
		}
		return &db.SearchResult{
			Total: 2,
			Entries: []db.SearchEntry{
				{
					Key:   "boardrag:chunk:a",
					Score: 0.877,
					Fields: map[string]string{
						FieldContent: "Go directly to jail.",
						FieldSource:  "data/monopoly.pdf",
						FieldPage:    "6",
						FieldID:      "data/monopoly.pdf:6:2",
					},
				},
				{
					Key:   "boardrag:chunk:b",
					Score: 0.544,
					Fields: map[string]string{
						FieldContent: "Claim a route.",
						FieldSource:  "data/ticket_to_ride.pdf",
						FieldPage:    "3.0",
					},
				},
			},
		}, nil
	}

	docs, err := repo.Search(context.Background(), "jail?", 8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if me.got != "jail?" {
		t.Errorf("embedder got %q", me.got)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 docs, got %d", len(docs))
	}
	if docs[0].ID != "data/monopoly.pdf:6:2" || docs[0].Page != 6 || docs[0].Score != 0.877 {
		t.Errorf("unexpected first doc: %+v", docs[0])
	}
	if docs[0].Content != "Go directly to jail." || docs[0].Source != "data/monopoly.pdf" {
		t.Errorf("unexpected first doc content: %+v", docs[0])
	}
	if docs[1].ID != "b" {
		t.Errorf("expected key fallback id 'b', got %q", docs[1].ID)
	}
	if docs[1].Page != 3 {
		t.Errorf("expected page 3, got %d", docs[1].Page)
	}
}

func TestSearch_EmbeddingError(t *testing.T) {
	repo, _, me := newTestRepo(t)
	me.err = domain.ErrEmbeddingProviderError

	_, err := repo.Search(context.Background(), "q", 8)
	if !errors.Is(err, domain.ErrIndexUnavailable) {
		t.Fatalf("expected ErrIndexUnavailable, got %v", err)
	}
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Errorf("expected embedding cause preserved, got %v", err)
	}
}

func TestSearch_StoreError(t *testing.T) {
	repo, ms, _ := newTestRepo(t)
	ms.searchKNNFn = func(context.Context, *db.KNNQuery) (*db.SearchResult, error) {
		return nil, db.ErrIndexNotFound
	}

	_, err := repo.Search(context.Background(), "q", 8)
	if !errors.Is(err, domain.ErrIndexUnavailable) {
		t.Fatalf("expected ErrIndexUnavailable, got %v", err)
	}
}

func TestSearch_EmptyIndex(t *testing.T) {
	repo, _, _ := newTestRepo(t)

	docs, err := repo.Search(context.Background(), "q", 8)
	if !errors.Is(err, domain.ErrIndexUnavailable) {
		t.Fatalf("expected ErrIndexUnavailable, got %v", err)
	}
	if docs != nil {
		t.Errorf("expected nil docs, got %v", docs)
	}
}

// --- Ready ---

func TestReady(t *testing.T) {
	tests := []struct {
		name    string
		info    *db.IndexInfo
		err     error
		wantErr bool
	}{
		{"populated", &db.IndexInfo{NumDocs: 120}, nil, false},
		{"empty", &db.IndexInfo{NumDocs: 0}, nil, true},
		{"missing", nil, db.ErrIndexNotFound, true},
		{"unreachable", nil, errors.New("dial tcp: connection refused"), true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo, ms, _ := newTestRepo(t)
			ms.indexInfoFn = func(context.Context, string) (*db.IndexInfo, error) {
				return tc.info, tc.err
			}

			err := repo.Ready(context.Background())
			if tc.wantErr {
				if !errors.Is(err, domain.ErrIndexUnavailable) {
					t.Fatalf("expected ErrIndexUnavailable, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestParsePage(t *testing.T) {
	tests := map[string]int{"": 0, "4": 4, "12.0": 12, "n/a": 0}
	for in, want := range tests {
		if got := parsePage(in); got != want {
			t.Errorf("parsePage(%q) = %d, want %d", in, got, want)
		}
	}
}
