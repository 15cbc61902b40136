package health

import "context"

// CachePinger checks retrieval cache availability.
type CachePinger interface {
	Ping(ctx context.Context) error
}

// Checker checks availability of a remote API.
type Checker interface {
	HealthCheck(ctx context.Context) error
}
