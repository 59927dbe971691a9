// Package gemini classifies images with Google's Gemini models.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/samirrijal/greenroute/internal/core/domain"
	"github.com/samirrijal/greenroute/internal/pkg/metrics"
)

const (
	ProviderName   = "gemini"
	DefaultBaseURL = "https://generativelanguage.googleapis.com"
	APIVersion     = "v1beta"

	listPageSize = 100
)

// ErrEmptyAnswer is returned when a model answers without any text.
var ErrEmptyAnswer = errors.New("gemini: empty answer")

// Client implements ports.VisionModel on the Gemini API backend of genai.
type Client struct {
	genai *genai.Client
}

// New creates a new Client. An empty apiKey yields an unconfigured client;
// baseURL may be empty and may carry the API version suffix.
func New(ctx context.Context, apiKey, baseURL string) (*Client, error) {
	if apiKey == "" {
		return &Client{}, nil
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	baseURL = strings.TrimSuffix(strings.TrimRight(baseURL, "/"), "/"+APIVersion)

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    baseURL + "/",
			APIVersion: APIVersion,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &Client{genai: gc}, nil
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c.genai != nil
}

// ListModels returns the model catalog visible to the API key.
func (c *Client) ListModels(ctx context.Context) (_ []domain.VisionModelInfo, err error) {
	start := time.Now()
	defer func() { metrics.ObserveProvider(ProviderName, start, err) }()

	page, err := c.genai.Models.List(ctx, &genai.ListModelsConfig{PageSize: listPageSize})
	var out []domain.VisionModelInfo
	for err == nil {
		for _, m := range page.Items {
			out = append(out, domain.VisionModelInfo{Name: m.Name, SupportedGenerationMethods: m.SupportedActions})
		}
		page, err = page.Next(ctx)
	}
	if !errors.Is(err, genai.ErrPageDone) {
		return nil, upstreamError("models", err)
	}
	return out, nil
}

// Generate sends instruction and image to model and returns the concatenated answer text.
func (c *Client) Generate(ctx context.Context, model, instruction string, image *domain.ImageData) (_ string, err error) {
	start := time.Now()
	defer func() { metrics.ObserveProvider(ProviderName, start, err) }()

	parts := []*genai.Part{genai.NewPartFromText(instruction)}
	if image != nil {
		parts = append(parts, genai.NewPartFromBytes(image.Bytes, image.MIMEType))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	model = strings.TrimPrefix(model, "models/")
	resp, err := c.genai.Models.GenerateContent(ctx, model, contents, nil)
	if err != nil {
		return "", upstreamError(model, err)
	}

	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, p := range cand.Content.Parts {
			if p != nil {
				sb.WriteString(p.Text)
			}
		}
		if sb.Len() > 0 {
			break
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", ErrEmptyAnswer
	}
	return sb.String(), nil
}

// upstreamError keeps the HTTP status of genai API errors.
func upstreamError(label string, err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &domain.UpstreamError{Provider: ProviderName, Status: apiErr.Code, Body: apiErr.Message}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return &domain.UpstreamError{Provider: ProviderName, Status: apiErrPtr.Code, Body: apiErrPtr.Message}
	}
	return &domain.UpstreamError{Provider: ProviderName, Err: fmt.Errorf("%s: %w", label, err)}
}
