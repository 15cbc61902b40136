// Package retrievalcache is a read-through cache in front of a domain.Retriever.
package retrievalcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gowebpki/jcs"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/overlordausritter/thematicbeast/internal/db"
	"github.com/overlordausritter/thematicbeast/internal/domain"
)

// KeyPrefix namespaces every cache entry.
const KeyPrefix = "thematicbeast:retrieval:"

// store is the consumer interface for the retrieval cache.
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Options identify what a cached entry was retrieved from.
type Options struct {
	Pipeline string
	TopK     int
	TTL      time.Duration
}

// CachedRetriever caches retrieved nodes in a key-value store.
type CachedRetriever struct {
	inner      domain.Retriever
	store      store
	opts       Options
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), may be nil.
func New(
	inner domain.Retriever,
	s store,
	opts Options,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedRetriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedRetriever{
		inner:      inner,
		store:      s,
		opts:       opts,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Retrieve returns cached nodes for query or calls the inner retriever.
// Inner errors pass through unwrapped so transient faults stay retryable.
func (c *CachedRetriever) Retrieve(ctx context.Context, query string) ([]domain.Node, error) {
	key, err := c.cacheKey(query)
	if err != nil {
		c.logger.Warn("Failed to build retrieval cache key", zap.Error(err))
		return c.inner.Retrieve(ctx, query) //nolint:wrapcheck // decorator is transparent
	}

	if nodes, ok := c.getFromCache(ctx, key); ok {
		c.incCache("hit")
		return nodes, nil
	}
	c.incCache("miss")

	nodes, err := c.inner.Retrieve(ctx, query)
	if err != nil {
		return nil, err //nolint:wrapcheck // decorator is transparent
	}

	c.putToCache(ctx, key, nodes)
	return nodes, nil
}

func (c *CachedRetriever) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

// cacheKey hashes the canonical JSON of the request so that equal requests
// map to one key regardless of field order.
func (c *CachedRetriever) cacheKey(query string) (string, error) {
	raw, err := json.Marshal(keyDTO{Pipeline: c.opts.Pipeline, Query: query, TopK: c.opts.TopK})
	if err != nil {
		return "", fmt.Errorf("marshal key: %w", err)
	}
	canon, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("canonicalize key: %w", err)
	}
	h := sha256.Sum256(canon)
	return KeyPrefix + hex.EncodeToString(h[:]), nil
}

func (c *CachedRetriever) getFromCache(ctx context.Context, key string) ([]domain.Node, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached retrieval", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	if len(data) == 0 {
		return nil, false
	}

	nodes, err := decodeNodes(data)
	if err != nil {
		c.logger.Warn("Failed to parse cached retrieval", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return nodes, true
}

func (c *CachedRetriever) putToCache(ctx context.Context, key string, nodes []domain.Node) {
	data, err := encodeNodes(nodes)
	if err != nil {
		c.logger.Warn("Failed to encode retrieval for cache", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.store.SetWithTTL(ctx, key, data, c.opts.TTL); err != nil {
		c.logger.Warn("Failed to cache retrieval", zap.String("key", key), zap.Error(err))
	}
}
