package query

import (
	"context"
	"time"

	"github.com/overlordausritter/thematicbeast/internal/domain"
)

// Retriever fetches ranked nodes for a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]domain.Node, error)
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error
