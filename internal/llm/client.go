// Package llm wraps the external text-understanding capability: mention
// detection for cross-referencing and the description cleanup pipeline.
// Its output is never trusted as-is; callers validate every proposal.
package llm

import (
	"errors"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/grindlab/exicon/internal/config"
)

// Client wraps the OpenAI client used by the batch pipelines.
type Client struct {
	api   openai.Client
	model openai.ChatModel
	cfg   config.LLMSettings
}

// NewClient creates a client from validated settings. A missing API key
// is a configuration error and fails here rather than mid-batch.
func NewClient(cfg config.LLMSettings) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("llm api key not configured")
	}

	return &Client{
		api:   openai.NewClient(option.WithAPIKey(cfg.APIKey)),
		model: openai.ChatModel(cfg.Model),
		cfg:   cfg,
	}, nil
}

// isRateLimitError checks if the error is a rate limit error (HTTP 429).
func isRateLimitError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}
