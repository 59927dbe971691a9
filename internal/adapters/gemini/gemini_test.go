package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/greenroute/internal/core/domain"
)

func newServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func newClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := New(context.Background(), "gm-key", baseURL)
	require.NoError(t, err)
	return c
}

func TestListModels(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models", r.URL.Path)
		assert.Equal(t, "gm-key", r.Header.Get("x-goog-api-key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"models":[
			{"name":"models/embedding-001","supportedGenerationMethods":["embedContent"]},
			{"name":"models/gemini-1.5-flash","supportedGenerationMethods":["generateContent","countTokens"]}
		]}`)
	})

	models, err := newClient(t, srv.URL).ListModels(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.Equal(t, "models/gemini-1.5-flash", models[1].Name)
	assert.Contains(t, models[1].SupportedGenerationMethods, "generateContent")
}

func TestGenerate_SendsInstructionAndInlineImage(t *testing.T) {
	img := &domain.ImageData{MIMEType: "image/jpeg", Bytes: []byte{0xff, 0xd8, 0xff}}

	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1beta/models/gemini-1.5-flash:generateContent", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		parts := body["contents"].([]any)[0].(map[string]any)["parts"].([]any)
		require.Len(t, parts, 2)
		assert.Equal(t, "list obstacles", parts[0].(map[string]any)["text"])
		inline := parts[1].(map[string]any)["inlineData"].(map[string]any)
		assert.Equal(t, "image/jpeg", inline["mimeType"])
		assert.Equal(t, base64.StdEncoding.EncodeToString(img.Bytes), inline["data"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"[\"stairs\"]"}]}}]}`)
	})

	text, err := newClient(t, srv.URL).Generate(context.Background(), "models/gemini-1.5-flash", "list obstacles", img)
	require.NoError(t, err)
	assert.Equal(t, `["stairs"]`, text)
}

func TestGenerate_ModelNotFound(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":{"code":404,"message":"models/gemini-pro-vision is not found","status":"NOT_FOUND"}}`)
	})

	_, err := newClient(t, srv.URL).Generate(context.Background(), "gemini-pro-vision", "x", nil)
	var upstream *domain.UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, http.StatusNotFound, upstream.Status)
}

func TestGenerate_EmptyAnswer(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"candidates":[]}`)
	})

	_, err := newClient(t, srv.URL).Generate(context.Background(), "gemini-1.5-pro", "x", nil)
	assert.ErrorIs(t, err, ErrEmptyAnswer)
}

func TestNew_BaseURLWithVersion(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"models":[]}`)
	})

	_, err := newClient(t, srv.URL+"/v1beta/").ListModels(context.Background())
	require.NoError(t, err)
}

func TestConfigured(t *testing.T) {
	unconfigured, err := New(context.Background(), "", "")
	require.NoError(t, err)
	assert.False(t, unconfigured.Configured())
	assert.True(t, newClient(t, "").Configured())
}

func TestFetcher(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n0000")
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/typed.jpg":
			w.Header().Set("Content-Type", "image/jpeg; charset=binary")
			_, _ = w.Write([]byte{0xff, 0xd8, 0xff})
		case "/untyped":
			w.Header().Set("Content-Type", "application/octet-stream")
			_, _ = w.Write(png)
		default:
			http.NotFound(w, r)
		}
	})
	f := NewFetcher(time.Second)

	img, err := f.Fetch(context.Background(), srv.URL+"/typed.jpg")
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", img.MIMEType)

	img, err = f.Fetch(context.Background(), srv.URL+"/untyped")
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.MIMEType)
	assert.Equal(t, png, img.Bytes)

	_, err = f.Fetch(context.Background(), srv.URL+"/missing")
	assert.True(t, domain.IsUpstream(err))
}
