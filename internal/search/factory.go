package search

import (
	"context"
	"fmt"
)

// FactoryConfig selects and configures the search backend.
type FactoryConfig struct {
	// Backend is one of "tavily", "places", or "none".
	Backend string
	Tavily  TavilyConfig
	Places  PlacesConfig
}

// NewSearcher creates the configured search backend. "none" yields a searcher
// that always reports no evidence, which keeps the answering path functional
// on deployments without API keys.
func NewSearcher(config FactoryConfig) (Searcher, error) {
	switch config.Backend {
	case "tavily":
		if config.Tavily.APIKey == "" {
			return nil, fmt.Errorf("tavily backend requires an API key")
		}
		return NewTavilyClient(config.Tavily), nil
	case "places":
		if config.Places.APIKey == "" {
			return nil, fmt.Errorf("places backend requires an API key")
		}
		return NewPlacesClient(config.Places)
	case "none", "":
		return disabledSearcher{}, nil
	default:
		return nil, fmt.Errorf("unsupported search backend: %s", config.Backend)
	}
}

type disabledSearcher struct{}

func (disabledSearcher) Search(context.Context, string) ([]Result, error) {
	return nil, nil
}
