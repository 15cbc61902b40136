package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/overlordausritter/thematicbeast/internal/domain/query/mode"
)

// Config holds the thematicbeast service configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	LlamaCloud LlamaCloudConfig `yaml:"llamacloud"`
	LLM        LLMConfig        `yaml:"llm"`
	Query      QueryConfig      `yaml:"query"`
	Cache      CacheConfig      `yaml:"cache"`
	Auth       AuthConfig       `yaml:"auth"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// LlamaCloudConfig selects the remote index and shapes calls to it.
type LlamaCloudConfig struct {
	APIKey         string  `yaml:"api_key"`
	BaseURL        string  `yaml:"base_url"`
	IndexName      string  `yaml:"index_name"`
	ProjectName    string  `yaml:"project_name"`
	OrganizationID string  `yaml:"organization_id"`
	TopK           int     `yaml:"top_k"`
	EnableRerank   bool    `yaml:"enable_reranking"`
	RerankTopN     int     `yaml:"rerank_top_n"`
	ConnectTimeout float64 `yaml:"connect_timeout_sec"`
	ReadTimeout    float64 `yaml:"read_timeout_sec"`
	WriteTimeout   float64 `yaml:"write_timeout_sec"`
	PoolTimeout    float64 `yaml:"pool_timeout_sec"`
	MaxConns       int     `yaml:"max_conns"`
	MaxAttempts    int     `yaml:"max_attempts"`
	RetryBackoff   float64 `yaml:"retry_backoff_sec"`
	RateLimit      float64 `yaml:"rate_limit_per_sec"` // 0 = unlimited
}

// LLMConfig holds the language-model backend credentials used by the index.
type LLMConfig struct {
	OpenAIAPIKey string `yaml:"openai_api_key"`
	BaseURL      string `yaml:"base_url"`
}

// QueryConfig holds query handling settings.
type QueryConfig struct {
	Mode string `yaml:"mode"` // filtered (default), unfiltered
}

// CacheConfig holds the optional retrieval cache settings.
type CacheConfig struct {
	Driver   string   `yaml:"driver"` // none (default), valkey, redis, bolt
	Addrs    []string `yaml:"addrs"`
	Password string   `yaml:"password"`
	Path     string   `yaml:"path"` // bolt file
	TTLSec   int      `yaml:"ttl_sec"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8000
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	// Must outlive three 120s read attempts plus backoff.
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 400
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}

	lc := &c.LlamaCloud
	if lc.BaseURL == "" {
		lc.BaseURL = "https://api.cloud.llamaindex.ai"
	}
	if lc.IndexName == "" {
		lc.IndexName = "SharePoint Thematic Work"
	}
	if lc.ProjectName == "" {
		lc.ProjectName = "The BEAST"
	}
	if lc.OrganizationID == "" {
		lc.OrganizationID = "8ff953cd-9c16-49f2-93a4-732206133586"
	}
	if lc.TopK <= 0 {
		lc.TopK = 6
	}
	if lc.RerankTopN <= 0 {
		lc.RerankTopN = 6
	}
	if lc.ConnectTimeout <= 0 {
		lc.ConnectTimeout = 10
	}
	if lc.ReadTimeout <= 0 {
		lc.ReadTimeout = 120
	}
	if lc.WriteTimeout <= 0 {
		lc.WriteTimeout = 10
	}
	if lc.PoolTimeout <= 0 {
		lc.PoolTimeout = 10
	}
	if lc.MaxConns <= 0 {
		lc.MaxConns = 100
	}
	if lc.MaxAttempts <= 0 {
		lc.MaxAttempts = 3
	}
	if lc.RetryBackoff <= 0 {
		lc.RetryBackoff = 2
	}

	if c.Query.Mode == "" {
		c.Query.Mode = string(mode.Filtered)
	}
	if c.Cache.Driver == "" {
		c.Cache.Driver = "none"
	}
	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = 300
	}
	if c.Cache.Path == "" {
		c.Cache.Path = "thematicbeast-cache.db"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.LlamaCloud.APIKey == "" {
		return fmt.Errorf("llamacloud.api_key is required")
	}
	if !mode.Mode(c.Query.Mode).IsValid() {
		return fmt.Errorf("query.mode must be \"filtered\" or \"unfiltered\", got %q", c.Query.Mode)
	}
	switch c.Cache.Driver {
	case "none", "bolt":
		// ok
	case "valkey", "redis":
		if len(c.Cache.Addrs) == 0 {
			return fmt.Errorf("cache.addrs is required for driver %q", c.Cache.Driver)
		}
	default:
		return fmt.Errorf("cache.driver must be one of none, valkey, redis, bolt, got %q", c.Cache.Driver)
	}
	if c.LlamaCloud.RateLimit < 0 {
		return fmt.Errorf("llamacloud.rate_limit_per_sec must not be negative")
	}
	return nil
}

// QueryMode returns the configured default query mode.
func (c *Config) QueryMode() mode.Mode { return mode.Mode(c.Query.Mode) }

// CacheTTL returns the retrieval cache TTL.
func (c *Config) CacheTTL() time.Duration { return time.Duration(c.Cache.TTLSec) * time.Second }

// Seconds converts a fractional seconds setting to a duration.
func Seconds(v float64) time.Duration { return time.Duration(v * float64(time.Second)) }

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
