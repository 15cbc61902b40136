package domain

import "context"

// Retriever runs a query against the remote retrieval index.
// Returned nodes are in the service's relevance order.
type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]Node, error)
}

// HealthChecker verifies availability of an external dependency.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
