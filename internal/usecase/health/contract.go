package health

import "context"

// IndexChecker verifies the vector index is reachable and holds documents.
type IndexChecker interface {
	Ready(ctx context.Context) error
}

// ProviderChecker checks embedding or completion provider availability.
type ProviderChecker interface {
	HealthCheck(ctx context.Context) error
}
