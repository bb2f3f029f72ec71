package db

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName    string
	Vector       []float32
	K            int
	VectorField  string // defaults to "__vector"
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
// Score is a cosine similarity in [0,1], higher is better.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
