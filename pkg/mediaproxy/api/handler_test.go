package api_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/media-proxy/pkg/mediaproxy"
	"github.com/tendant/media-proxy/pkg/mediaproxy/activity"
	"github.com/tendant/media-proxy/pkg/mediaproxy/api"
	memorystorage "github.com/tendant/media-proxy/pkg/mediaproxy/storage/memory"
)

func setupServer(t *testing.T, cfg api.Config) (*httptest.Server, mediaproxy.Service, *activity.Registry) {
	t.Helper()

	svc, err := mediaproxy.New(
		mediaproxy.WithObjectStore(memorystorage.New()),
		mediaproxy.WithRetryDelay(time.Millisecond),
	)
	require.NoError(t, err)

	registry := activity.NewRegistry(15*time.Minute, time.Hour)
	t.Cleanup(registry.Close)

	handler := api.NewHandler(svc, registry, cfg, nil)
	server := httptest.NewServer(handler.Routes())
	t.Cleanup(server.Close)

	return server, svc, registry
}

func seedMedia(t *testing.T, svc mediaproxy.Service, category mediaproxy.Category, filename string, data []byte) *mediaproxy.MediaReference {
	t.Helper()
	ref, err := svc.StoreMedia(context.Background(), mediaproxy.StoreMediaRequest{
		Category:     category,
		Filename:     filename,
		Reader:       bytes.NewReader(data),
		KeepFilename: true,
	})
	require.NoError(t, err)
	return ref
}

func TestServeMedia(t *testing.T) {
	server, svc, _ := setupServer(t, api.Config{})
	data := []byte("fake png bytes")
	ref := seedMedia(t, svc, mediaproxy.CategoryForum, "abc.png", data)

	resp, err := http.Get(server.URL + ref.ExternalURL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.Equal(t, "public, max-age=86400", resp.Header.Get("Cache-Control"))

	got, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestServeMediaLegacyShape(t *testing.T) {
	server, svc, _ := setupServer(t, api.Config{})
	data := []byte("fake png bytes")
	seedMedia(t, svc, mediaproxy.CategoryForum, "abc.png", data)

	// Double-nested legacy URL still resolves to the same object.
	resp, err := http.Get(server.URL + "/media-proxy/FORUM/forum/forum/abc.png")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	got, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestServeMediaErrors(t *testing.T) {
	server, _, _ := setupServer(t, api.Config{})

	tests := []struct {
		name       string
		path       string
		wantStatus int
	}{
		{"malformed reference", "/media-proxy/SHOP/items/x.png", http.StatusBadRequest},
		{"missing object", "/media-proxy/FORUM/forum/nope.png", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(server.URL + tt.path)
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}

func TestServeMediaPlaceholderOnImageMiss(t *testing.T) {
	placeholder := filepath.Join(t.TempDir(), "placeholder.png")
	require.NoError(t, os.WriteFile(placeholder, []byte("placeholder bytes"), 0644))

	server, _, _ := setupServer(t, api.Config{PlaceholderPath: placeholder})

	resp, err := http.Get(server.URL + "/media-proxy/FORUM/forum/nope.png")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	got, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, []byte("placeholder bytes"), got)
}

func multipartUpload(t *testing.T, url, category, filename string, data []byte) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("category", category))
	fw, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	resp, err := http.Post(url+"/api/media", w.FormDataContentType(), &buf)
	require.NoError(t, err)
	return resp
}

func TestUpload(t *testing.T) {
	server, svc, _ := setupServer(t, api.Config{})
	data := []byte("uploaded file contents")

	resp := multipartUpload(t, server.URL, "calendar", "photo.JPG", data)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var uploaded api.UploadResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&uploaded))
	assert.Equal(t, "CALENDAR", uploaded.Bucket)
	assert.Regexp(t, `^/media-proxy/CALENDAR/events/calendar-\d+-[a-z0-9]+\.JPG$`, uploaded.ExternalURL)

	rc, err := svc.FetchMedia(context.Background(), mediaproxy.Bucket(uploaded.Bucket), uploaded.StorageKey)
	require.NoError(t, err)
	defer rc.Close()
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestUploadRejectsUnknownCategory(t *testing.T) {
	server, _, _ := setupServer(t, api.Config{})

	resp := multipartUpload(t, server.URL, "storefront", "x.png", []byte("0123456789"))
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUploadRejectsEmptyFile(t *testing.T) {
	server, _, _ := setupServer(t, api.Config{})

	resp := multipartUpload(t, server.URL, "forum", "x.png", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDelete(t *testing.T) {
	server, svc, _ := setupServer(t, api.Config{})
	ref := seedMedia(t, svc, mediaproxy.CategoryForum, "abc.png", []byte("0123456789"))

	req, err := http.NewRequest(http.MethodDelete, server.URL+"/api/media/FORUM/"+ref.StorageKey, nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Second delete reports the absence.
	resp, err = http.DefaultClient.Do(req.Clone(context.Background()))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestExtractInline(t *testing.T) {
	server, _, _ := setupServer(t, api.Config{})

	inline := base64.StdEncoding.EncodeToString([]byte("0123456789abcdefghij"))
	body, err := json.Marshal(api.ExtractInlineRequest{
		HTML:    `<img src="data:image/png;base64,` + inline + `">`,
		Section: "forum",
	})
	require.NoError(t, err)

	resp, err := http.Post(server.URL+"/api/media/extract", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var extracted api.ExtractInlineResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&extracted))
	assert.NotContains(t, extracted.HTML, "data:image/")
	assert.Contains(t, extracted.HTML, "/media-proxy/FORUM/forum/")
}

func TestHealthCountsActivity(t *testing.T) {
	server, _, _ := setupServer(t, api.Config{})

	req, err := http.NewRequest(http.MethodGet, server.URL+"/healthz", nil)
	require.NoError(t, err)
	req.Header.Set("X-Session-ID", "session-1")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var health struct {
		Status         string `json:"status"`
		ActiveSessions int    `json:"active_sessions"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 1, health.ActiveSessions)
}
