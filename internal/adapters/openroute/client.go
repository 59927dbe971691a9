// Package openroute adapts the OpenRouteService directions and geocoding APIs.
package openroute

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/samirrijal/greenroute/internal/core/domain"
	"github.com/samirrijal/greenroute/internal/pkg/metrics"
)

const (
	ProviderName   = "openrouteservice"
	DefaultBaseURL = "https://api.openrouteservice.org"

	FormatGeoJSON = "geojson"
	FormatJSON    = "json"

	// maxErrorBody caps how much of a failed response is kept for diagnostics.
	maxErrorBody = 4096
)

// Config configures a Client.
type Config struct {
	APIKey  string
	BaseURL string
	// Format selects the directions response format, FormatGeoJSON or FormatJSON.
	Format     string
	HTTPClient *http.Client
}

// Client implements ports.RouteProvider and ports.Geocoder against OpenRouteService.
type Client struct {
	apiKey  string
	baseURL string
	format  string
	http    *http.Client
}

// New creates a new OpenRouteService client.
func New(cfg Config) *Client {
	c := &Client{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		format:  cfg.Format,
		http:    cfg.HTTPClient,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.format != FormatJSON {
		c.format = FormatGeoJSON
	}
	if c.http == nil {
		// Bounded by the request context rather than a client timeout.
		c.http = &http.Client{}
	}
	return c
}

// Configured reports whether a directions credential is present.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// do issues req and decodes a 2xx JSON body into out. Anything else becomes
// a *domain.UpstreamError carrying the raw status and body.
func (c *Client) do(req *http.Request, out any) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveProvider(ProviderName, start, err) }()

	resp, err := c.http.Do(req)
	if err != nil {
		return &domain.UpstreamError{Provider: ProviderName, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &domain.UpstreamError{Provider: ProviderName, Status: resp.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &domain.UpstreamError{Provider: ProviderName, Body: "invalid response", Err: err}
	}
	return nil
}

func (c *Client) newJSONRequest(ctx context.Context, url string, body any) (*http.Request, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Accept", "application/json, application/geo+json")
	return req, nil
}
