// Package openai probes the OpenAI-compatible language-model API the
// service is configured with.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Prober checks that the configured language-model key is accepted.
type Prober struct {
	client *openai.Client
	logger *zap.Logger
}

// Config holds the language-model API settings.
type Config struct {
	APIKey  string
	BaseURL string
	Logger  *zap.Logger
}

// NewProber creates an OpenAI-compatible API prober.
func NewProber(cfg *Config) *Prober {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Prober{
		client: openai.NewClientWithConfig(clientCfg),
		logger: logger,
	}
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (p *Prober) HealthCheck(ctx context.Context) error {
	models, err := p.client.ListModels(ctx)
	if err != nil {
		return parseAPIError(err)
	}
	p.logger.Debug("LLM key probe succeeded", zap.Int("models", len(models.Models)))
	return nil
}

// parseAPIError extracts a human-readable error from the API response.
func parseAPIError(err error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if detail := extractDetail(reqErr.Body); detail != "" {
			return fmt.Errorf("llm API error %d: %s", reqErr.HTTPStatusCode, detail)
		}
		return fmt.Errorf("llm API error %d: %s", reqErr.HTTPStatusCode, string(reqErr.Body))
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("llm API error %d: %s", apiErr.HTTPStatusCode, apiErr.Message)
	}

	return fmt.Errorf("list models: %w", err)
}

// extractDetail extracts the "detail" field from a JSON error body.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
