package search

import (
	"context"
	"fmt"
	"strings"

	"googlemaps.github.io/maps"
)

// PlacesConfig holds settings for the Google Places search backend.
type PlacesConfig struct {
	APIKey string
	Filter FilterConfig
}

// PlacesClient answers location-centric queries (restaurants, hotels,
// attractions) from the Google Places text search API. It is an alternative
// Searcher backend for deployments that prefer structured place data over
// general web search.
type PlacesClient struct {
	client *maps.Client
	filter FilterConfig
}

// NewPlacesClient creates a Places-backed Searcher.
func NewPlacesClient(config PlacesConfig) (*PlacesClient, error) {
	client, err := maps.NewClient(maps.WithAPIKey(config.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create places client: %w", err)
	}
	return &PlacesClient{client: client, filter: config.Filter}, nil
}

// Search runs a text search and maps places onto the common Result shape.
// Ratings (0-5) are normalized onto the 0-1 score scale the filter expects.
func (c *PlacesClient) Search(ctx context.Context, query string) ([]Result, error) {
	if query == "" {
		return nil, fmt.Errorf("search query is empty")
	}

	resp, err := c.client.TextSearch(ctx, &maps.TextSearchRequest{Query: query})
	if err != nil {
		return nil, fmt.Errorf("places api error: %w", err)
	}

	results := make([]Result, 0, len(resp.Results))
	for _, place := range resp.Results {
		snippet := placeSnippet(place.FormattedAddress, place.Rating, place.UserRatingsTotal)
		results = append(results, Result{
			Title:   place.Name,
			Snippet: snippet,
			URL:     placeURL(place.PlaceID),
			Score:   float64(place.Rating) / 5.0,
		})
	}
	return Filter(results, c.filter), nil
}

func placeSnippet(address string, rating float32, ratings int) string {
	var b strings.Builder
	if address != "" {
		b.WriteString(address)
	}
	if rating > 0 {
		if b.Len() > 0 {
			b.WriteString(". ")
		}
		fmt.Fprintf(&b, "Rated %.1f/5 from %d reviews", rating, ratings)
	}
	return b.String()
}

func placeURL(placeID string) string {
	return "https://www.google.com/maps/place/?q=place_id:" + placeID
}
