package googlemaps

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/samirrijal/greenroute/internal/core/domain"
	"github.com/samirrijal/greenroute/internal/pkg/metrics"
)

const (
	DefaultBaseURL = "https://maps.googleapis.com/maps/api"
	DefaultTimeout = 5 * time.Second

	imageSize = "600x400"
)

// StreetView implements ports.ImageryProvider using Street View metadata
// lookups, which are free, and returns a Static API image URL on a hit.
type StreetView struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewStreetView creates a new StreetView provider. timeout bounds each lookup.
func NewStreetView(apiKey, baseURL string, timeout time.Duration) *StreetView {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &StreetView{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (s *StreetView) Name() domain.ImagerySource { return domain.SourceStreetView }

func (s *StreetView) Configured() bool { return s.apiKey != "" }

type metadataResponse struct {
	Status   string `json:"status"`
	PanoID   string `json:"pano_id"`
	Location *struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	} `json:"location"`
	ErrorMessage string `json:"error_message"`
}

// FindImage asks for panorama metadata near at. ZERO_RESULTS and NOT_FOUND
// mean no coverage; any other non-OK status is an upstream failure.
func (s *StreetView) FindImage(ctx context.Context, at domain.Coordinate) (_ *domain.StreetImage, err error) {
	start := time.Now()
	defer func() { metrics.ObserveProvider(string(domain.SourceStreetView), start, err) }()

	location := latLng(at)
	params := url.Values{}
	params.Set("location", location)
	params.Set("key", s.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/streetview/metadata?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build streetview request: %w", err)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, &domain.UpstreamError{Provider: string(domain.SourceStreetView), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &domain.UpstreamError{Provider: string(domain.SourceStreetView), Status: resp.StatusCode, Body: string(body)}
	}

	var meta metadataResponse
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, &domain.UpstreamError{Provider: string(domain.SourceStreetView), Body: "invalid response", Err: err}
	}

	switch meta.Status {
	case "OK":
	case "ZERO_RESULTS", "NOT_FOUND":
		return nil, nil
	default:
		return nil, &domain.UpstreamError{
			Provider: string(domain.SourceStreetView),
			Body:     strings.TrimSpace(meta.Status + " " + meta.ErrorMessage),
		}
	}

	img := &domain.StreetImage{ID: meta.PanoID, URL: s.imageURL(location), Source: domain.SourceStreetView}
	if meta.Location != nil {
		img.Location = &domain.Coordinate{Lat: meta.Location.Lat, Lng: meta.Location.Lng}
	}
	return img, nil
}

func (s *StreetView) imageURL(location string) string {
	params := url.Values{}
	params.Set("size", imageSize)
	params.Set("location", location)
	params.Set("heading", "0")
	params.Set("pitch", "0")
	params.Set("key", s.apiKey)
	return s.baseURL + "/streetview?" + params.Encode()
}

func latLng(c domain.Coordinate) string {
	return strconv.FormatFloat(c.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(c.Lng, 'f', -1, 64)
}
