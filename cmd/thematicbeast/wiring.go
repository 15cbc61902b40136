package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/overlordausritter/thematicbeast/internal/config"
	"github.com/overlordausritter/thematicbeast/internal/db"
	dbBolt "github.com/overlordausritter/thematicbeast/internal/db/bolt"
	dbRedis "github.com/overlordausritter/thematicbeast/internal/db/redis"
	"github.com/overlordausritter/thematicbeast/internal/domain"
	"github.com/overlordausritter/thematicbeast/internal/metrics"
	"github.com/overlordausritter/thematicbeast/internal/repository/retrievalcache"
	"github.com/overlordausritter/thematicbeast/internal/transport/llamacloud"
	openaiProbe "github.com/overlordausritter/thematicbeast/internal/transport/openai"
	healthuc "github.com/overlordausritter/thematicbeast/internal/usecase/health"
	queryuc "github.com/overlordausritter/thematicbeast/internal/usecase/query"
)

const cacheReadyTimeout = 10 * time.Second

// app holds the process-wide handles shared by serve and query.
type app struct {
	llama  *llamacloud.Client
	store  db.Store // nil when the cache is disabled
	query  *queryuc.Service
	health *healthuc.Service
}

func (a *app) Close() {
	if a.store != nil {
		a.store.Close()
	}
}

// buildApp wires config into the retrieval client, optional cache, query
// and health services.
func buildApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	lc := cfg.LlamaCloud
	llama := llamacloud.New(llamacloud.Config{
		APIKey:         lc.APIKey,
		BaseURL:        lc.BaseURL,
		IndexName:      lc.IndexName,
		ProjectName:    lc.ProjectName,
		OrganizationID: lc.OrganizationID,
		TopK:           lc.TopK,
		EnableRerank:   lc.EnableRerank,
		RerankTopN:     lc.RerankTopN,
		Timeouts: llamacloud.Timeouts{
			Connect: config.Seconds(lc.ConnectTimeout),
			Read:    config.Seconds(lc.ReadTimeout),
			Write:   config.Seconds(lc.WriteTimeout),
			Pool:    config.Seconds(lc.PoolTimeout),
		},
		MaxConns:  lc.MaxConns,
		RateLimit: lc.RateLimit,
		Logger:    logger,
	})

	store, err := openCacheStore(ctx, cfg.Cache, logger)
	if err != nil {
		return nil, err
	}

	var retriever domain.Retriever = llama
	if store != nil {
		retriever = retrievalcache.New(llama, store, retrievalcache.Options{
			Pipeline: lc.ProjectName + "/" + lc.IndexName,
			TopK:     lc.TopK,
			TTL:      cfg.CacheTTL(),
		}, metrics.RetrievalCacheTotal, logger)
	}

	querySvc := queryuc.New(retriever, queryuc.Options{
		MaxAttempts: lc.MaxAttempts,
		Backoff:     config.Seconds(lc.RetryBackoff),
	}, logger)

	// Absent backends stay untyped nil so health skips their checks.
	var cachePinger healthuc.CachePinger
	if store != nil {
		cachePinger = store
	}
	var llm healthuc.Checker
	if cfg.LLM.OpenAIAPIKey != "" {
		llm = openaiProbe.NewProber(&openaiProbe.Config{
			APIKey:  cfg.LLM.OpenAIAPIKey,
			BaseURL: cfg.LLM.BaseURL,
			Logger:  logger,
		})
	}

	return &app{
		llama:  llama,
		store:  store,
		query:  querySvc,
		health: healthuc.New(cachePinger, llama, llm),
	}, nil
}

// openCacheStore opens the configured cache backend. Returns nil, nil when
// the cache is disabled.
func openCacheStore(ctx context.Context, cc config.CacheConfig, logger *zap.Logger) (db.Store, error) {
	var (
		store db.Store
		err   error
	)

	switch cc.Driver {
	case "", "none":
		return nil, nil
	case "valkey", "redis":
		store, err = dbRedis.NewStore(dbRedis.Config{Addrs: cc.Addrs, Password: cc.Password})
	case "bolt":
		store, err = dbBolt.NewStore(cc.Path)
	default:
		return nil, fmt.Errorf("unsupported cache driver %q", cc.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s cache: %w", cc.Driver, err)
	}

	if err := store.WaitForReady(ctx, cacheReadyTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("%s cache not ready: %w", cc.Driver, err)
	}

	logger.Info("Retrieval cache enabled",
		zap.String("driver", cc.Driver),
		zap.Int("ttl_sec", cc.TTLSec),
	)
	return store, nil
}
