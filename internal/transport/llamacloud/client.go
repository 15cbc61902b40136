// Package llamacloud is the HTTP client for the LlamaCloud retrieval API.
package llamacloud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/overlordausritter/thematicbeast/internal/domain"
	"github.com/overlordausritter/thematicbeast/internal/version"
)

const maxErrorBody = 64 << 10

// Compile-time checks.
var (
	_ domain.Retriever     = (*Client)(nil)
	_ domain.HealthChecker = (*Client)(nil)
)

// Timeouts bounds each phase of a single call.
type Timeouts struct {
	Connect time.Duration
	Read    time.Duration
	Write   time.Duration
	Pool    time.Duration
}

// DefaultTimeouts are connect 10s, read 120s, write 10s, pool 10s.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Connect: 10 * time.Second,
		Read:    120 * time.Second,
		Write:   10 * time.Second,
		Pool:    10 * time.Second,
	}
}

// Config holds the LlamaCloud client settings.
type Config struct {
	APIKey         string
	BaseURL        string
	IndexName      string
	ProjectName    string
	OrganizationID string
	TopK           int
	EnableRerank   bool
	RerankTopN     int
	Timeouts       Timeouts
	MaxConns       int
	RateLimit      float64 // requests per second, 0 = unlimited
	Logger         *zap.Logger
}

// Client is a process-wide handle to one LlamaCloud index. Safe for
// concurrent use; the pipeline id is resolved on first use and reused.
type Client struct {
	http    *http.Client
	baseURL string
	cfg     Config
	pool    *connPool
	limiter *rate.Limiter
	logger  *zap.Logger

	// resolving admits one pipeline lookup at a time; waiters give up
	// when their own context ends. mu guards pipelineID only.
	resolving  chan struct{}
	mu         sync.Mutex
	pipelineID string
}

// New creates a LlamaCloud client. No network I/O happens until the first call.
func New(cfg Config) *Client {
	if cfg.Timeouts == (Timeouts{}) {
		cfg.Timeouts = DefaultTimeouts()
	}
	if cfg.MaxConns <= 0 {
		cfg.MaxConns = 100
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 6
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := int(cfg.RateLimit)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &Client{
		http:      &http.Client{Transport: newTransport(cfg.Timeouts, cfg.MaxConns)},
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		cfg:       cfg,
		pool:      newConnPool(cfg.MaxConns, cfg.Timeouts.Pool),
		limiter:   limiter,
		logger:    logger,
		resolving: make(chan struct{}, 1),
	}
}

// Retrieve runs query against the configured index and returns the nodes in
// the service's ranking order. Transient faults are returned as
// domain.TransientError; retrying is the caller's decision.
func (c *Client) Retrieve(ctx context.Context, query string) ([]domain.Node, error) {
	pipelineID, err := c.PipelineID(ctx)
	if err != nil {
		return nil, err
	}

	body := retrieveRequest{
		Query:                query,
		DenseSimilarityTopK:  c.cfg.TopK,
		SparseSimilarityTopK: c.cfg.TopK,
		EnableReranking:      c.cfg.EnableRerank,
		RerankTopN:           c.cfg.RerankTopN,
		RetrievalMode:        "chunks",
	}

	var resp retrieveResponse
	path := "/api/v1/pipelines/" + url.PathEscape(pipelineID) + "/retrieve"
	if err := c.do(ctx, http.MethodPost, path, nil, body, &resp); err != nil {
		return nil, err
	}

	nodes := make([]domain.Node, 0, len(resp.RetrievalNodes))
	for _, rn := range resp.RetrievalNodes {
		meta := rn.Node.Metadata
		if meta == nil {
			meta = rn.Node.ExtraInfo
		}
		var score float64
		if rn.Score != nil {
			score = *rn.Score
		}
		nodes = append(nodes, domain.NewScoredNode(domain.NewTextNode(rn.Node.Text, meta), score))
	}
	return nodes, nil
}

// PipelineID resolves the configured index name to its pipeline id.
// A failed lookup is not cached.
func (c *Client) PipelineID(ctx context.Context) (string, error) {
	if id := c.cachedPipelineID(); id != "" {
		return id, nil
	}

	select {
	case c.resolving <- struct{}{}:
	case <-ctx.Done():
		return "", fmt.Errorf("wait for pipeline resolution: %w", ctx.Err())
	}
	defer func() { <-c.resolving }()

	// Resolved by the caller we waited behind.
	if id := c.cachedPipelineID(); id != "" {
		return id, nil
	}

	projectID, err := c.findProject(ctx)
	if err != nil {
		return "", err
	}

	var pipelines []pipeline
	q := url.Values{"project_id": {projectID}, "pipeline_name": {c.cfg.IndexName}}
	if err := c.do(ctx, http.MethodGet, "/api/v1/pipelines", q, nil, &pipelines); err != nil {
		return "", fmt.Errorf("list pipelines: %w", err)
	}
	for _, p := range pipelines {
		if p.Name == c.cfg.IndexName {
			c.mu.Lock()
			c.pipelineID = p.ID
			c.mu.Unlock()
			c.logger.Info("Resolved LlamaCloud index",
				zap.String("index", c.cfg.IndexName),
				zap.String("pipeline_id", p.ID),
				zap.String("project_id", projectID),
			)
			return p.ID, nil
		}
	}
	return "", fmt.Errorf("index %q in project %q: %w", c.cfg.IndexName, c.cfg.ProjectName, domain.ErrIndexNotFound)
}

func (c *Client) cachedPipelineID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pipelineID
}

// HealthCheck verifies that the API key works and the index exists.
func (c *Client) HealthCheck(ctx context.Context) error {
	if _, err := c.PipelineID(ctx); err != nil {
		return fmt.Errorf("resolve pipeline: %w", err)
	}
	return nil
}

func (c *Client) findProject(ctx context.Context) (string, error) {
	q := url.Values{"project_name": {c.cfg.ProjectName}}
	if c.cfg.OrganizationID != "" {
		q.Set("organization_id", c.cfg.OrganizationID)
	}

	var projects []project
	if err := c.do(ctx, http.MethodGet, "/api/v1/projects", q, nil, &projects); err != nil {
		return "", fmt.Errorf("list projects: %w", err)
	}
	for _, p := range projects {
		if p.Name == c.cfg.ProjectName {
			return p.ID, nil
		}
	}
	return "", fmt.Errorf("project %q: %w", c.cfg.ProjectName, domain.ErrIndexNotFound)
}

// do performs one HTTP exchange and decodes a JSON response into out.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}
	}

	release, err := c.pool.acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer release()

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "thematicbeast/"+version.Version)
	req.Header.Set("X-Request-Id", requestID)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return classify(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := newAPIError(resp.StatusCode, data)
		c.logger.Debug("LlamaCloud API error",
			zap.String("method", method),
			zap.String("path", path),
			zap.String("upstream_request_id", requestID),
			zap.Int("status", resp.StatusCode),
		)
		return apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if cerr := classify(err); domain.IsTransient(cerr) {
			return cerr
		}
		return fmt.Errorf("decode %s response: %w: %w", path, domain.ErrRetrievalProvider, err)
	}
	return nil
}
