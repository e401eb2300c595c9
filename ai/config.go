package ai

import "github.com/pkg/errors"

// EmbeddingConfig represents embedding service configuration for any
// OpenAI-compatible provider (siliconflow, openai, ollama, dashscope, ...).
type EmbeddingConfig struct {
	Provider   string
	Model      string
	APIKey     string
	BaseURL    string
	Dimensions int
}

// Validate checks that the configuration is usable before a client is built.
func (c *EmbeddingConfig) Validate() error {
	if c.APIKey == "" {
		return errors.New("embedding api key required")
	}
	if c.Model == "" {
		return errors.New("embedding model required")
	}
	return nil
}
