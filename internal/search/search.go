// Package search provides the web-search collaborator: external lookups that
// supply factual listings (restaurants, hotels, activities) used as evidence
// by the answer generator. The core treats results as opaque; only a minimal
// validity filter is applied before they are forwarded.
package search

import (
	"context"
	"strings"
)

// Result is one search hit. The orchestrator forwards valid results to the
// answer generator without interpreting them.
type Result struct {
	Title   string  `json:"title"`
	Snippet string  `json:"snippet"`
	URL     string  `json:"url"`
	Score   float64 `json:"score"`
}

// Searcher is the collaborator contract. Implementations must return within
// a bounded time; the orchestrator treats errors and timeouts as "no
// evidence" and proceeds with a degraded answer.
type Searcher interface {
	Search(ctx context.Context, query string) ([]Result, error)
}

// FilterConfig tunes the validity filter.
type FilterConfig struct {
	// ScoreFloor rejects results scored below it. Default 0.3.
	ScoreFloor float64

	// MinSnippetLen rejects results whose snippet is too short to be useful.
	// Default 30.
	MinSnippetLen int

	// MaxResults caps how many valid results are kept. Default 3.
	MaxResults int
}

func (c *FilterConfig) normalize() {
	if c.ScoreFloor == 0 {
		c.ScoreFloor = 0.3
	}
	if c.MinSnippetLen == 0 {
		c.MinSnippetLen = 30
	}
	if c.MaxResults == 0 {
		c.MaxResults = 3
	}
}

// negativePhrases disqualify listings for places that no longer exist.
var negativePhrases = []string{
	"permanently closed",
	"no longer exists",
	"no longer in business",
	"closed for good",
}

// Filter applies the minimal validity filter: non-empty title/snippet/url,
// score at or above the floor, a usable snippet, and no closed-down markers.
// Order is preserved; at most cfg.MaxResults survive.
func Filter(results []Result, cfg FilterConfig) []Result {
	cfg.normalize()

	var out []Result
	for _, r := range results {
		if !valid(r, cfg) {
			continue
		}
		out = append(out, r)
		if len(out) >= cfg.MaxResults {
			break
		}
	}
	return out
}

func valid(r Result, cfg FilterConfig) bool {
	if r.Title == "" || r.Snippet == "" || r.URL == "" {
		return false
	}
	if r.Score < cfg.ScoreFloor {
		return false
	}
	if len(r.Snippet) < cfg.MinSnippetLen {
		return false
	}
	snippet := strings.ToLower(r.Snippet)
	for _, phrase := range negativePhrases {
		if strings.Contains(snippet, phrase) {
			return false
		}
	}
	return true
}
