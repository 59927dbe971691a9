// Package mapillary finds crowdsourced street-level imagery through the Mapillary Graph API.
package mapillary

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/samirrijal/greenroute/internal/core/domain"
	"github.com/samirrijal/greenroute/internal/pkg/metrics"
)

const (
	DefaultBaseURL   = "https://graph.mapillary.com"
	DefaultTimeout   = 5 * time.Second
	DefaultHalfWidth = 500.0
	DefaultLimit     = 10

	fields = "id,thumb_1024_url,computed_geometry,geometry"
)

// Config configures a Provider.
type Config struct {
	AccessToken string
	BaseURL     string
	// Timeout bounds every lookup; imagery must never stall a request.
	Timeout         time.Duration
	HalfWidthMeters float64
	Limit           int
	HTTPClient      *http.Client
}

// Provider implements ports.ImageryProvider.
type Provider struct {
	token     string
	baseURL   string
	halfWidth float64
	limit     int
	http      *http.Client
}

// New creates a new Mapillary provider.
func New(cfg Config) *Provider {
	p := &Provider{
		token:     cfg.AccessToken,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		halfWidth: cfg.HalfWidthMeters,
		limit:     cfg.Limit,
		http:      cfg.HTTPClient,
	}
	if p.baseURL == "" {
		p.baseURL = DefaultBaseURL
	}
	if p.halfWidth <= 0 {
		p.halfWidth = DefaultHalfWidth
	}
	if p.limit <= 0 {
		p.limit = DefaultLimit
	}
	if p.http == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		p.http = &http.Client{Timeout: timeout}
	}
	return p
}

func (p *Provider) Name() domain.ImagerySource { return domain.SourceMapillary }

func (p *Provider) Configured() bool { return p.token != "" }

type point struct {
	Coordinates []float64 `json:"coordinates"`
}

type image struct {
	ID               string `json:"id"`
	Thumb1024URL     string `json:"thumb_1024_url"`
	ComputedGeometry *point `json:"computed_geometry"`
	Geometry         *point `json:"geometry"`
}

type imagesResponse struct {
	Data []image `json:"data"`
}

// location prefers the corrected position over the raw capture position.
func (img image) location() (domain.Coordinate, bool) {
	for _, g := range []*point{img.ComputedGeometry, img.Geometry} {
		if g != nil && len(g.Coordinates) >= 2 {
			return domain.Coordinate{Lat: g.Coordinates[1], Lng: g.Coordinates[0]}, true
		}
	}
	return domain.Coordinate{}, false
}

// FindImage returns the image closest to at inside the search box, or nil
// when the box has no coverage.
func (p *Provider) FindImage(ctx context.Context, at domain.Coordinate) (_ *domain.StreetImage, err error) {
	start := time.Now()
	defer func() { metrics.ObserveProvider(string(domain.SourceMapillary), start, err) }()

	b := domain.BoundsAround(at, p.halfWidth)
	params := url.Values{}
	params.Set("access_token", p.token)
	params.Set("fields", fields)
	params.Set("bbox", strings.Join([]string{
		ftoa(b.MinLon), ftoa(b.MinLat), ftoa(b.MaxLon), ftoa(b.MaxLat),
	}, ","))
	params.Set("limit", strconv.Itoa(p.limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/images?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build mapillary request: %w", err)
	}

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, &domain.UpstreamError{Provider: string(domain.SourceMapillary), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &domain.UpstreamError{Provider: string(domain.SourceMapillary), Status: resp.StatusCode, Body: string(body)}
	}

	var out imagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &domain.UpstreamError{Provider: string(domain.SourceMapillary), Body: "invalid response", Err: err}
	}

	return nearest(at, out.Data), nil
}

// nearest picks the image with the smallest great-circle distance to at.
// Images without a thumbnail are ignored.
func nearest(at domain.Coordinate, images []image) *domain.StreetImage {
	var best *domain.StreetImage
	bestDist := math.Inf(1)
	for _, img := range images {
		if img.Thumb1024URL == "" {
			continue
		}
		loc, ok := img.location()
		dist := math.MaxFloat64
		if ok {
			dist = at.DistanceTo(loc)
		}
		if best != nil && dist >= bestDist {
			continue
		}
		bestDist = dist
		best = &domain.StreetImage{ID: img.ID, URL: img.Thumb1024URL, Source: domain.SourceMapillary}
		if ok {
			l := loc
			best.Location = &l
		}
	}
	return best
}

func ftoa(f float64) string {
	return strconv.FormatFloat(f, 'f', 6, 64)
}
