package thematicbeast

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/overlordausritter/thematicbeast/internal/db"
	dbBolt "github.com/overlordausritter/thematicbeast/internal/db/bolt"
	dbRedis "github.com/overlordausritter/thematicbeast/internal/db/redis"
	"github.com/overlordausritter/thematicbeast/internal/domain"
	"github.com/overlordausritter/thematicbeast/internal/domain/query/mode"
	"github.com/overlordausritter/thematicbeast/internal/domain/query/payload"
	"github.com/overlordausritter/thematicbeast/internal/repository/retrievalcache"
	"github.com/overlordausritter/thematicbeast/internal/transport/llamacloud"
	queryuc "github.com/overlordausritter/thematicbeast/internal/usecase/query"
)

const defaultReadinessTimeout = 10 * time.Second

// Client is the thematicbeast SDK entry point. It runs queries in-process
// against LlamaCloud without the HTTP service.
type Client struct {
	store db.Store
	llama *llamacloud.Client
	query *queryuc.Service
	mode  mode.Mode
}

// New creates a Client. The index is resolved lazily on the first query.
func New(opts ...Option) (*Client, error) {
	cfg := defaultClientConfig()
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.apiKey == "" {
		return nil, errors.New("thematicbeast: LlamaCloud API key required (use WithAPIKey)")
	}
	if !cfg.mode.IsValid() {
		return nil, fmt.Errorf("thematicbeast: %w: %q", domain.ErrInvalidMode, cfg.mode)
	}

	store, err := createStore(cfg)
	if err != nil {
		return nil, err
	}
	if store != nil {
		if err := store.WaitForReady(context.Background(), defaultReadinessTimeout); err != nil {
			store.Close()
			return nil, fmt.Errorf("thematicbeast: cache not ready: %w", err)
		}
	}

	return wireClient(store, cfg), nil
}

func createStore(cfg *clientConfig) (db.Store, error) {
	switch cfg.driver {
	case "":
		return nil, nil
	case "valkey", "redis":
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.addrs,
			Password: cfg.password,
		})
		if err != nil {
			return nil, fmt.Errorf("thematicbeast: create %s store: %w", cfg.driver, err)
		}
		return s, nil
	case "bolt":
		s, err := dbBolt.NewStore(cfg.path)
		if err != nil {
			return nil, fmt.Errorf("thematicbeast: create bolt store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("thematicbeast: unknown driver %q", cfg.driver)
	}
}

func wireClient(store db.Store, cfg *clientConfig) *Client {
	logger := cfg.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	llama := llamacloud.New(llamacloud.Config{
		APIKey:         cfg.apiKey,
		BaseURL:        cfg.baseURL,
		IndexName:      cfg.indexName,
		ProjectName:    cfg.projectName,
		OrganizationID: cfg.organizationID,
		TopK:           cfg.topK,
		Timeouts:       cfg.timeouts,
		Logger:         logger,
	})

	var retriever domain.Retriever = llama
	if store != nil {
		retriever = retrievalcache.New(llama, store, retrievalcache.Options{
			Pipeline: cfg.projectName + "/" + cfg.indexName,
			TopK:     cfg.topK,
			TTL:      cfg.cacheTTL,
		}, nil, logger)
	}

	return &Client{
		store: store,
		llama: llama,
		query: queryuc.New(retriever, queryuc.Options{
			MaxAttempts: cfg.maxAttempts,
			Backoff:     cfg.backoff,
		}, logger),
		mode: cfg.mode,
	}
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks that the API key is accepted and the index exists.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.llama.HealthCheck(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Query runs req and returns the shaped result. Mode defaults to the
// client's mode (WithMode).
func (c *Client) Query(ctx context.Context, req Request) (Response, error) {
	m := c.mode
	if req.Mode != "" {
		m = mode.Mode(req.Mode)
	}

	res, err := c.query.Query(ctx, &payload.Payload{Query: req.Query, Company: req.Company}, m)
	if err != nil {
		return Response{}, fmt.Errorf("query: %w", err)
	}
	return responseFromResult(res), nil
}

func responseFromResult(res queryuc.Result) Response {
	results := make([]Result, len(res.Records))
	for i, r := range res.Records {
		results[i] = Result{
			Text:     r.Text,
			FileName: r.FileNameOrEmpty(),
			WebURL:   r.WebURLOrEmpty(),
		}
	}
	return Response{
		Mode:      string(res.Mode),
		Company:   res.Company,
		Results:   results,
		Retrieved: res.Retrieved,
		Message:   res.Message,
	}
}
