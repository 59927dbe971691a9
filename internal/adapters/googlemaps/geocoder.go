// Package googlemaps adapts Google Maps Platform geocoding and Street View.
package googlemaps

import (
	"context"
	"fmt"
	"strings"
	"time"

	maps "googlemaps.github.io/maps"

	"github.com/samirrijal/greenroute/internal/core/domain"
	"github.com/samirrijal/greenroute/internal/pkg/metrics"
)

const geocoderName = "google-geocoding"

// Geocoder implements ports.Geocoder with the Google Geocoding API.
type Geocoder struct {
	client *maps.Client
}

// NewGeocoder creates a new Geocoder. baseURL may be empty; the client library
// adds the /maps/api path itself, so a configured base ending in it is trimmed.
func NewGeocoder(apiKey, baseURL string) (*Geocoder, error) {
	opts := []maps.ClientOption{maps.WithAPIKey(apiKey)}
	baseURL = strings.TrimSuffix(strings.TrimRight(baseURL, "/"), "/maps/api")
	if baseURL != "" {
		opts = append(opts, maps.WithBaseURL(baseURL))
	}
	client, err := maps.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("maps.NewClient: %w", err)
	}
	return &Geocoder{client: client}, nil
}

// Geocode returns the first result Google ranks for query.
func (g *Geocoder) Geocode(ctx context.Context, query string) (_ domain.Coordinate, err error) {
	start := time.Now()
	defer func() { metrics.ObserveProvider(geocoderName, start, err) }()

	results, err := g.client.Geocode(ctx, &maps.GeocodingRequest{Address: query})
	if err != nil {
		if strings.Contains(err.Error(), "ZERO_RESULTS") {
			return domain.Coordinate{}, fmt.Errorf("%w: address %q", domain.ErrNotFound, query)
		}
		return domain.Coordinate{}, &domain.UpstreamError{Provider: geocoderName, Err: err}
	}
	if len(results) == 0 {
		return domain.Coordinate{}, fmt.Errorf("%w: address %q", domain.ErrNotFound, query)
	}

	loc := results[0].Geometry.Location
	return domain.Coordinate{Lat: loc.Lat, Lng: loc.Lng}, nil
}
