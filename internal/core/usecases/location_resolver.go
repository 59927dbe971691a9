package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/samirrijal/greenroute/internal/core/domain"
	"github.com/samirrijal/greenroute/internal/core/ports"
	"github.com/samirrijal/greenroute/internal/pkg/logging"
	"github.com/samirrijal/greenroute/internal/pkg/metrics"
)

// geocodeTTLSeconds keeps geocoding answers for a day; addresses rarely move.
const geocodeTTLSeconds = 24 * 60 * 60

// LocationResolver turns user-supplied endpoint strings into coordinates.
type LocationResolver struct {
	geocoder ports.Geocoder
	cache    ports.CacheService
}

// NewLocationResolver creates a new LocationResolver. cache may be nil.
func NewLocationResolver(geocoder ports.Geocoder, cache ports.CacheService) *LocationResolver {
	return &LocationResolver{geocoder: geocoder, cache: cache}
}

// Resolve interprets "lat,lng" input directly and geocodes anything else.
// Numeric input is not checked for plausibility.
func (r *LocationResolver) Resolve(ctx context.Context, input string) (domain.Coordinate, error) {
	if c, ok := parseLatLng(input); ok {
		return c, nil
	}

	query := strings.TrimSpace(input)
	if query == "" {
		return domain.Coordinate{}, fmt.Errorf("%w: empty location", domain.ErrInput)
	}

	// Try cache
	cacheKey := "geocode:" + strings.ToLower(query)
	if r.cache != nil {
		if data, err := r.cache.Get(ctx, cacheKey); err == nil {
			var c domain.Coordinate
			if err := json.Unmarshal(data, &c); err == nil {
				metrics.CacheHits.WithLabelValues("geocode").Inc()
				return c, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("geocode").Inc()
	}

	c, err := r.geocoder.Geocode(ctx, query)
	if err != nil {
		return domain.Coordinate{}, err
	}
	logging.FromContext(ctx).Debug("geocoded location", "query", query, "lat", c.Lat, "lng", c.Lng)

	if r.cache != nil {
		if data, err := json.Marshal(c); err == nil {
			_ = r.cache.Set(ctx, cacheKey, data, geocodeTTLSeconds)
		}
	}

	return c, nil
}

// parseLatLng accepts exactly two comma-separated finite floating point numbers.
func parseLatLng(input string) (domain.Coordinate, bool) {
	parts := strings.Split(input, ",")
	if len(parts) != 2 {
		return domain.Coordinate{}, false
	}
	lat, ok := parseFinite(parts[0])
	if !ok {
		return domain.Coordinate{}, false
	}
	lng, ok := parseFinite(parts[1])
	if !ok {
		return domain.Coordinate{}, false
	}
	return domain.Coordinate{Lat: lat, Lng: lng}, true
}

func parseFinite(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
