// Package config provides configuration management for Cicerone.
// It loads settings from environment variables with the CICERONE_ prefix
// and provides sensible defaults for all configuration options.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all configuration settings for the Cicerone application.
type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	LLM      LLMConfig
	Search   SearchConfig
	Dialogue DialogueConfig
	Security SecurityConfig
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port int    // Server port (default: 7272)
	Host string // Server host (default: 127.0.0.1)
}

// StorageConfig contains database and storage configuration.
type StorageConfig struct {
	StorageEngine string // Storage engine type: sqlite, postgres (default: sqlite)
	DataPath      string // Path to data directory for sqlite (default: ./data)
	PostgresDSN   string // Postgres connection string (required for postgres engine)
}

// LLMConfig contains LLM provider configuration.
type LLMConfig struct {
	LLMProvider          string // LLM provider: ollama, mistral (default: ollama)
	OllamaURL            string // Ollama API URL (default: http://localhost:11434)
	OllamaModel          string // Ollama model name for dialogue (default: mistral:7b)
	OllamaEmbeddingModel string // Ollama model name for embeddings (default: nomic-embed-text)
	MistralAPIKey        string // Mistral API key
	MistralModel         string // Mistral model name (default: mistral-small-latest)
}

// SearchConfig contains web search collaborator configuration.
type SearchConfig struct {
	SearchBackend string  // Search backend: tavily, places, none (default: none)
	TavilyAPIKey  string  // Tavily API key
	PlacesAPIKey  string  // Google Places API key
	ScoreFloor    float64 // Minimum relevance score for a result (default: 0.3)
	MaxResults    int     // Maximum results forwarded to the answerer (default: 3)
}

// DialogueConfig contains dialogue engine configuration.
type DialogueConfig struct {
	SchemaPath        string // Path to a YAML slot schema; empty uses the built-in table
	OverwriteOnRepeat bool   // Let repeated slot values overwrite known ones (default: false)
	RecallCandidates  int    // Exchanges retrieved per recall query (default: 5)
}

// SecurityConfig contains security and authentication settings.
type SecurityConfig struct {
	SecurityMode string // Security mode: development, production (default: development)
	APIToken     string // API authentication token
}

// LoadConfig loads configuration from environment variables with sensible defaults.
// All environment variables use the CICERONE_ prefix.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: getEnvInt("CICERONE_PORT", 7272),
			Host: getEnv("CICERONE_HOST", "127.0.0.1"),
		},
		Storage: StorageConfig{
			StorageEngine: getEnv("CICERONE_STORAGE_ENGINE", "sqlite"),
			DataPath:      getEnv("CICERONE_DATA_PATH", "./data"),
			PostgresDSN:   getEnv("CICERONE_POSTGRES_DSN", ""),
		},
		LLM: LLMConfig{
			LLMProvider:          getEnv("CICERONE_LLM_PROVIDER", "ollama"),
			OllamaURL:            getEnv("CICERONE_OLLAMA_URL", "http://localhost:11434"),
			OllamaModel:          getEnv("CICERONE_OLLAMA_MODEL", "mistral:7b"),
			OllamaEmbeddingModel: getEnv("CICERONE_EMBEDDING_MODEL", "nomic-embed-text"),
			MistralAPIKey:        getEnv("CICERONE_MISTRAL_API_KEY", ""),
			MistralModel:         getEnv("CICERONE_MISTRAL_MODEL", "mistral-small-latest"),
		},
		Search: SearchConfig{
			SearchBackend: getEnv("CICERONE_SEARCH_BACKEND", "none"),
			TavilyAPIKey:  getEnv("CICERONE_TAVILY_API_KEY", ""),
			PlacesAPIKey:  getEnv("CICERONE_PLACES_API_KEY", ""),
			ScoreFloor:    getEnvFloat("CICERONE_SEARCH_SCORE_FLOOR", 0.3),
			MaxResults:    getEnvInt("CICERONE_SEARCH_MAX_RESULTS", 3),
		},
		Dialogue: DialogueConfig{
			SchemaPath:        getEnv("CICERONE_SCHEMA_PATH", ""),
			OverwriteOnRepeat: getEnvBool("CICERONE_OVERWRITE_ON_REPEAT", false),
			RecallCandidates:  getEnvInt("CICERONE_RECALL_CANDIDATES", 5),
		},
		Security: SecurityConfig{
			SecurityMode: getEnv("CICERONE_SECURITY_MODE", "development"),
			APIToken:     getEnv("CICERONE_API_TOKEN", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints that cannot be defaulted away.
func (c *Config) Validate() error {
	switch c.Storage.StorageEngine {
	case "sqlite":
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("config: postgres storage engine requires CICERONE_POSTGRES_DSN")
		}
	default:
		return fmt.Errorf("config: unsupported storage engine %q", c.Storage.StorageEngine)
	}

	switch c.LLM.LLMProvider {
	case "ollama":
	case "mistral":
		if c.LLM.MistralAPIKey == "" {
			return fmt.Errorf("config: mistral provider requires CICERONE_MISTRAL_API_KEY")
		}
	default:
		return fmt.Errorf("config: unsupported LLM provider %q", c.LLM.LLMProvider)
	}

	if c.Security.SecurityMode == "production" && c.Security.APIToken == "" {
		return fmt.Errorf("config: production security mode requires CICERONE_API_TOKEN")
	}

	return nil
}

// getEnv retrieves a string environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default value.
// If the environment variable exists but cannot be parsed as an integer,
// it returns the default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat retrieves a float environment variable or returns a default value.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable or returns a default value.
// Accepts the forms strconv.ParseBool accepts (1, t, true, 0, f, false, ...).
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
