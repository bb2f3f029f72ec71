package domain

// Document is a unit of indexed rulebook text. It is owned by the vector index;
// the pipeline only holds the copies returned from a search.
type Document struct {
	ID      string
	Source  string // originating file, e.g. "data/monopoly.pdf"
	Page    int    // 0 if unknown
	Content string
}

// ScoredDocument is a search hit. Score is a similarity: higher is better,
// and index adapters return hits best match first.
type ScoredDocument struct {
	Document
	Score float64
}
