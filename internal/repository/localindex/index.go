// Package localindex reads a rulebook index persisted on disk by chromem-go.
package localindex

import (
	"context"
	"fmt"
	"strconv"

	"github.com/philippgille/chromem-go"

	"github.com/kailas-cloud/boardrag/internal/domain"
)

// Metadata keys written by the rulebook loader.
const (
	MetaID     = "id"
	MetaSource = "source"
	MetaPage   = "page"
)

// Index answers nearest-neighbour queries against one chromem collection.
type Index struct {
	db         *chromem.DB
	collection string
	embed      chromem.EmbeddingFunc
}

// Open loads a persistent chromem database from path.
func Open(path string, compress bool) (*chromem.DB, error) {
	db, err := chromem.NewPersistentDB(path, compress)
	if err != nil {
		return nil, fmt.Errorf("open chromem db %s: %w", path, err)
	}
	return db, nil
}

// New creates an index over the named collection, embedding queries with embedder.
func New(db *chromem.DB, collection string, embedder domain.Embedder) *Index {
	return &Index{db: db, collection: collection, embed: EmbeddingFunc(embedder)}
}

// EmbeddingFunc adapts a domain embedder to chromem's callback type.
func EmbeddingFunc(embedder domain.Embedder) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		res, err := embedder.Embed(ctx, text)
		if err != nil {
			return nil, err //nolint:wrapcheck // chromem wraps with query context
		}
		return res.Embedding, nil
	}
}

// Search returns up to k chunks nearest to text, best first.
// A missing or empty collection is reported as domain.ErrIndexUnavailable.
func (i *Index) Search(ctx context.Context, text string, k int) ([]domain.ScoredDocument, error) {
	coll, err := i.open()
	if err != nil {
		return nil, err
	}

	// chromem rejects nResults larger than the collection.
	n := min(k, coll.Count())
	results, err := coll.Query(ctx, text, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: query %s: %w", domain.ErrIndexUnavailable, i.collection, err)
	}

	docs := make([]domain.ScoredDocument, 0, len(results))
	for _, r := range results {
		docs = append(docs, toScored(r))
	}
	return docs, nil
}

// Ready reports whether the collection exists and holds at least one chunk.
func (i *Index) Ready(_ context.Context) error {
	_, err := i.open()
	return err
}

// Count returns the number of chunks in the collection, 0 if it does not exist.
func (i *Index) Count() int {
	coll := i.db.GetCollection(i.collection, i.embed)
	if coll == nil {
		return 0
	}
	return coll.Count()
}

func (i *Index) open() (*chromem.Collection, error) {
	coll := i.db.GetCollection(i.collection, i.embed)
	if coll == nil {
		return nil, fmt.Errorf("%w: collection %s not found", domain.ErrIndexUnavailable, i.collection)
	}
	if coll.Count() == 0 {
		return nil, fmt.Errorf("%w: collection %s is empty", domain.ErrIndexUnavailable, i.collection)
	}
	return coll, nil
}

func toScored(r chromem.Result) domain.ScoredDocument {
	id := r.Metadata[MetaID]
	if id == "" {
		id = r.ID
	}
	return domain.ScoredDocument{
		Document: domain.Document{
			ID:      id,
			Source:  r.Metadata[MetaSource],
			Page:    parsePage(r.Metadata[MetaPage]),
			Content: r.Content,
		},
		Score: float64(r.Similarity),
	}
}

func parsePage(v string) int {
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return int(f)
	}
	return 0
}
