package retrievalcache

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/overlordausritter/thematicbeast/internal/db"
	"github.com/overlordausritter/thematicbeast/internal/domain"
)

type mockRetriever struct {
	nodes []domain.Node
	err   error
	calls int
}

func (m *mockRetriever) Retrieve(_ context.Context, _ string) ([]domain.Node, error) {
	m.calls++
	return m.nodes, m.err
}

// mockKVStore implements the consumer interface for tests.
type mockKVStore struct {
	getFn func(ctx context.Context, key string) ([]byte, error)
	setFn func(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

func (m *mockKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockKVStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setFn != nil {
		return m.setFn(ctx, key, value, ttl)
	}
	return nil
}

// memKVStore is a map-backed store for round-trip tests.
type memKVStore struct {
	data map[string][]byte
}

func newMemKVStore() *memKVStore { return &memKVStore{data: map[string][]byte{}} }

func (m *memKVStore) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *memKVStore) SetWithTTL(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.data[key] = value
	return nil
}

var testOpts = Options{Pipeline: "SharePoint Thematic Work", TopK: 6, TTL: 5 * time.Minute}

func newTestCachedRetriever(t *testing.T, inner *mockRetriever, s store) *CachedRetriever {
	t.Helper()
	return New(inner, s, testOpts, nil, zap.NewNop())
}
