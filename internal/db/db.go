package db

import (
	"context"
	"time"
)

// Store is the read-only facade over a Redis-compatible search engine holding the rulebook index.
type Store interface {
	Pinger
	IndexInspector
	Searcher
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// IndexInspector reports FT index metadata.
type IndexInspector interface {
	IndexInfo(ctx context.Context, name string) (*IndexInfo, error)
}

// Searcher provides vector search over FT indexes.
type Searcher interface {
	SearchKNN(ctx context.Context, q *KNNQuery) (*SearchResult, error)
}
