package gemini

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/samirrijal/greenroute/internal/core/domain"
)

// maxImageBytes caps a downloaded image; inline request data is limited upstream.
const maxImageBytes = 10 << 20

// Fetcher implements ports.ImageFetcher.
type Fetcher struct {
	http *http.Client
}

// NewFetcher creates a new Fetcher. timeout bounds each download.
func NewFetcher(timeout time.Duration) *Fetcher {
	return &Fetcher{http: &http.Client{Timeout: timeout}}
}

// Fetch downloads url and sniffs its MIME type when the server omits it.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*domain.ImageData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := f.http.Do(req)
	if err != nil {
		return nil, &domain.UpstreamError{Provider: "image", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &domain.UpstreamError{Provider: "image", Status: resp.StatusCode, Body: resp.Status}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, &domain.UpstreamError{Provider: "image", Err: err}
	}
	if len(data) > maxImageBytes {
		return nil, fmt.Errorf("image %s exceeds %d bytes", url, maxImageBytes)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("image %s is empty", url)
	}

	mimeType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}
	return &domain.ImageData{MIMEType: mimeType, Bytes: data}, nil
}
