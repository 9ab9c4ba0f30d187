package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"cicerone/internal/llm"
)

const (
	defaultTavilyURL     = "https://api.tavily.com/search"
	defaultTavilyTimeout = 10 * time.Second
	defaultMaxRaw        = 5
)

// TavilyConfig holds settings for the Tavily search client.
type TavilyConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
	Filter  FilterConfig
}

// TavilyClient queries the Tavily web search API. Calls run through a circuit
// breaker so a degraded upstream fails fast instead of stalling every turn.
type TavilyClient struct {
	config     TavilyConfig
	httpClient *http.Client
	breaker    *llm.CircuitBreaker
}

// NewTavilyClient creates a Tavily-backed Searcher.
func NewTavilyClient(config TavilyConfig) *TavilyClient {
	if config.BaseURL == "" {
		config.BaseURL = defaultTavilyURL
	}
	if config.Timeout == 0 {
		config.Timeout = defaultTavilyTimeout
	}
	return &TavilyClient{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		breaker:    llm.NewCircuitBreaker(),
	}
}

type tavilyRequest struct {
	APIKey      string `json:"api_key"`
	Query       string `json:"query"`
	MaxResults  int    `json:"max_results"`
	SearchDepth string `json:"search_depth"`
}

type tavilyResponse struct {
	Results []struct {
		Title   string  `json:"title"`
		Content string  `json:"content"`
		URL     string  `json:"url"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

// Search runs the query and returns only results that pass the validity
// filter. An empty result set with a nil error means the query found nothing
// usable; the caller answers from its own knowledge in that case.
func (c *TavilyClient) Search(ctx context.Context, query string) ([]Result, error) {
	if query == "" {
		return nil, fmt.Errorf("search query is empty")
	}

	result, err := c.breaker.Execute(ctx, func() (interface{}, error) {
		return c.doSearch(ctx, query)
	})
	if err != nil {
		return nil, err
	}

	raw := result.([]Result)
	return Filter(raw, c.config.Filter), nil
}

func (c *TavilyClient) doSearch(ctx context.Context, query string) ([]Result, error) {
	body, err := json.Marshal(tavilyRequest{
		APIKey:      c.config.APIKey,
		Query:       query,
		MaxResults:  defaultMaxRaw,
		SearchDepth: "basic",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("search API returned status %d: %s", resp.StatusCode, string(data))
	}

	var parsed tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	results := make([]Result, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		results = append(results, Result{
			Title:   r.Title,
			Snippet: r.Content,
			URL:     r.URL,
			Score:   r.Score,
		})
	}
	return results, nil
}

// BreakerState reports the circuit breaker state for health checks.
func (c *TavilyClient) BreakerState() string {
	return c.breaker.State()
}
