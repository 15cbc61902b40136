package thematicbeast

import (
	"time"

	"go.uber.org/zap"

	"github.com/overlordausritter/thematicbeast/internal/domain/query/mode"
	"github.com/overlordausritter/thematicbeast/internal/transport/llamacloud"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	apiKey         string
	baseURL        string
	indexName      string
	projectName    string
	organizationID string
	topK           int
	timeouts       llamacloud.Timeouts

	mode        mode.Mode
	maxAttempts int
	backoff     time.Duration

	driver   string // "", "valkey", "redis" or "bolt"
	addrs    []string
	password string
	path     string
	cacheTTL time.Duration

	logger *zap.Logger
}

func defaultClientConfig() *clientConfig {
	return &clientConfig{
		baseURL:        "https://api.cloud.llamaindex.ai",
		indexName:      "SharePoint Thematic Work",
		projectName:    "The BEAST",
		organizationID: "8ff953cd-9c16-49f2-93a4-732206133586",
		topK:           6,
		timeouts:       llamacloud.DefaultTimeouts(),
		mode:           mode.Filtered,
		maxAttempts:    3,
		backoff:        2 * time.Second,
		cacheTTL:       5 * time.Minute,
	}
}

// WithAPIKey sets the LlamaCloud API key. Required.
func WithAPIKey(key string) Option {
	return optionFunc(func(c *clientConfig) {
		c.apiKey = key
	})
}

// WithBaseURL overrides the LlamaCloud API base URL.
func WithBaseURL(url string) Option {
	return optionFunc(func(c *clientConfig) {
		c.baseURL = url
	})
}

// WithIndex selects the index by name, project and organization.
// Defaults to "SharePoint Thematic Work" in project "The BEAST".
func WithIndex(name, project, organizationID string) Option {
	return optionFunc(func(c *clientConfig) {
		c.indexName = name
		c.projectName = project
		c.organizationID = organizationID
	})
}

// WithTopK sets how many chunks are retrieved per query. Default: 6.
func WithTopK(k int) Option {
	return optionFunc(func(c *clientConfig) {
		c.topK = k
	})
}

// WithTimeouts overrides the connect/read/write/pool timeouts.
func WithTimeouts(t llamacloud.Timeouts) Option {
	return optionFunc(func(c *clientConfig) {
		c.timeouts = t
	})
}

// WithMode sets the default query mode: "filtered" (default) or "unfiltered".
func WithMode(m string) Option {
	return optionFunc(func(c *clientConfig) {
		c.mode = mode.Mode(m)
	})
}

// WithRetry sets the attempt count and fixed backoff for transient faults.
// Defaults: 3 attempts, 2s.
func WithRetry(attempts int, backoff time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxAttempts = attempts
		c.backoff = backoff
	})
}

// WithValkey caches retrievals in a Valkey instance.
func WithValkey(addr, password string, ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "valkey"
		c.addrs = []string{addr}
		c.password = password
		c.cacheTTL = ttl
	})
}

// WithRedis caches retrievals in a Redis instance.
func WithRedis(addr, password string, ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
		c.cacheTTL = ttl
	})
}

// WithBolt caches retrievals in a local bbolt file.
func WithBolt(path string, ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "bolt"
		c.path = path
		c.cacheTTL = ttl
	})
}

// WithLogger enables structured logging. Pass nil to disable (default).
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}
