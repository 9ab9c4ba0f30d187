package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// MistralConfig holds configuration for the Mistral client.
type MistralConfig struct {
	APIKey  string
	Model   string        // default: mistral-small-latest
	BaseURL string        // default: https://api.mistral.ai
	Timeout time.Duration // default: 30s
}

// MistralClient implements TextGenerator using the Mistral chat completions
// API. The hosted API is rate limited, so callers should retry 429 responses
// with backoff at the orchestration layer.
type MistralClient struct {
	cfg            MistralConfig
	client         *http.Client
	circuitBreaker *CircuitBreaker
}

// NewMistralClient creates a new Mistral client with the given configuration.
func NewMistralClient(cfg MistralConfig) *MistralClient {
	if cfg.Model == "" {
		cfg.Model = "mistral-small-latest"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.mistral.ai"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &MistralClient{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		circuitBreaker: NewCircuitBreaker(),
	}
}

// mistralChatRequest is the request body for POST /v1/chat/completions.
type mistralChatRequest struct {
	Model       string               `json:"model"`
	Messages    []mistralChatMessage `json:"messages"`
	Temperature float64              `json:"temperature"`
	MaxTokens   int                  `json:"max_tokens,omitempty"`
}

type mistralChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// mistralChatResponse is the response body from POST /v1/chat/completions.
type mistralChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// ErrRateLimited is returned when the API answers 429; the caller may retry
// after a backoff.
var ErrRateLimited = errors.New("rate limited by LLM API")

// Complete sends a single-turn completion to Mistral and returns the response
// text, wrapped with circuit breaker protection.
func (c *MistralClient) Complete(ctx context.Context, prompt string) (string, error) {
	result, err := c.circuitBreaker.Execute(ctx, func() (interface{}, error) {
		return c.complete(ctx, prompt)
	})
	if err != nil {
		if errors.Is(err, ErrCircuitOpen) {
			return "", fmt.Errorf("mistral circuit breaker open: %w", err)
		}
		return "", err
	}
	return result.(string), nil
}

func (c *MistralClient) complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	reqBody := mistralChatRequest{
		Model: c.cfg.Model,
		Messages: []mistralChatMessage{
			{Role: "user", Content: prompt},
		},
		Temperature: 0.2,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("mistral request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("mistral returned status %d: %s", resp.StatusCode, data)
	}

	var chatResp mistralChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("mistral returned no choices")
	}

	return chatResp.Choices[0].Message.Content, nil
}

// GetModel returns the configured model name.
func (c *MistralClient) GetModel() string {
	return c.cfg.Model
}

// CircuitState exposes the breaker state for health reporting.
func (c *MistralClient) CircuitState() string {
	return c.circuitBreaker.State()
}
