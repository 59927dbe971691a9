package openroute

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/samirrijal/greenroute/internal/core/domain"
)

type geocodeResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"features"`
}

// Geocode returns the highest-ranked match for query.
func (c *Client) Geocode(ctx context.Context, query string) (domain.Coordinate, error) {
	params := url.Values{}
	params.Set("api_key", c.apiKey)
	params.Set("text", query)
	params.Set("size", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/geocode/search?"+params.Encode(), nil)
	if err != nil {
		return domain.Coordinate{}, fmt.Errorf("build geocode request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	var resp geocodeResponse
	if err := c.do(req, &resp); err != nil {
		return domain.Coordinate{}, err
	}
	if len(resp.Features) == 0 {
		return domain.Coordinate{}, fmt.Errorf("%w: address %q", domain.ErrNotFound, query)
	}

	// [lng, lat]
	coords := resp.Features[0].Geometry.Coordinates
	if len(coords) < 2 {
		return domain.Coordinate{}, &domain.UpstreamError{Provider: ProviderName, Body: "malformed geocode coordinate"}
	}
	return domain.Coordinate{Lat: coords[1], Lng: coords[0]}, nil
}
