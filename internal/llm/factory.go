package llm

import (
	"fmt"
	"time"
)

// FactoryConfig selects and configures a text-generation provider.
type FactoryConfig struct {
	Provider string // "ollama" or "mistral"

	OllamaURL   string
	OllamaModel string

	MistralAPIKey string
	MistralModel  string

	Timeout time.Duration
}

// NewTextGenerator builds the configured text-generation client.
func NewTextGenerator(cfg FactoryConfig) (TextGenerator, error) {
	switch cfg.Provider {
	case "", "ollama":
		return NewOllamaClient(OllamaConfig{
			BaseURL: cfg.OllamaURL,
			Model:   cfg.OllamaModel,
			Timeout: cfg.Timeout,
		}), nil
	case "mistral":
		if cfg.MistralAPIKey == "" {
			return nil, fmt.Errorf("llm: mistral provider requires an API key")
		}
		return NewMistralClient(MistralConfig{
			APIKey:  cfg.MistralAPIKey,
			Model:   cfg.MistralModel,
			Timeout: cfg.Timeout,
		}), nil
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", cfg.Provider)
	}
}

// NewEmbeddingGenerator builds an embedding client for the given model.
// Embeddings always go through Ollama; the hosted chat providers are used for
// text only.
func NewEmbeddingGenerator(cfg FactoryConfig, embeddingModel string) (EmbeddingGenerator, error) {
	if embeddingModel == "" {
		return nil, fmt.Errorf("llm: embedding model is required")
	}
	return NewOllamaClient(OllamaConfig{
		BaseURL: cfg.OllamaURL,
		Model:   embeddingModel,
		Timeout: cfg.Timeout,
	}), nil
}
