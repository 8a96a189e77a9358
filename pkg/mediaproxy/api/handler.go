package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth"
	"github.com/go-chi/render"

	"github.com/tendant/media-proxy/pkg/mediaproxy"
	"github.com/tendant/media-proxy/pkg/mediaproxy/activity"
)

// proxyCacheControl is the cache policy for served media (one day).
const proxyCacheControl = "public, max-age=86400"

// Handler serves the media proxy and management endpoints
type Handler struct {
	service         mediaproxy.Service
	registry        *activity.Registry
	tokenAuth       *jwtauth.JWTAuth
	placeholderPath string
	logger          *slog.Logger
}

// Config options for the HTTP handler
type Config struct {
	// JWTSecret protects the management API (HS256). Empty disables auth,
	// for development only.
	JWTSecret string

	// PlaceholderPath, when set, is a static asset served in place of a 404
	// for image requests. Serving it is HTTP-layer policy; the resolver
	// itself never substitutes placeholder bytes.
	PlaceholderPath string
}

// NewHandler creates the HTTP handler for the media proxy service
func NewHandler(service mediaproxy.Service, registry *activity.Registry, cfg Config, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		service:         service,
		registry:        registry,
		placeholderPath: cfg.PlaceholderPath,
		logger:          logger,
	}
	if cfg.JWTSecret != "" {
		h.tokenAuth = jwtauth.New("HS256", []byte(cfg.JWTSecret), nil)
	}
	return h
}

// Routes returns the full router: the public proxy surface plus the
// JWT-protected management API.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	if h.registry != nil {
		r.Use(TrackActivity(h.registry))
	}

	r.Get("/healthz", h.Health)
	r.Get("/media-proxy/*", h.ServeMedia)

	r.Route("/api/media", func(r chi.Router) {
		if h.tokenAuth != nil {
			r.Use(jwtauth.Verifier(h.tokenAuth))
			r.Use(jwtauth.Authenticator)
		}
		r.Post("/", h.Upload)
		r.Post("/extract", h.ExtractInline)
		r.Delete("/{bucket}/*", h.Delete)
	})

	return r
}

// Health reports liveness plus the advisory active-session count
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"status": "ok"}
	if h.registry != nil {
		resp["active_sessions"] = h.registry.Count()
	}
	render.JSON(w, r, resp)
}

// ServeMedia resolves a canonical or legacy proxy URL and streams the bytes
func (h *Handler) ServeMedia(w http.ResponseWriter, r *http.Request) {
	resolved, err := h.service.Resolve(r.URL.Path)
	if err != nil {
		http.Error(w, "malformed media reference", http.StatusBadRequest)
		return
	}

	rc, err := h.service.FetchMedia(r.Context(), resolved.Bucket, resolved.StorageKey)
	if err != nil {
		if errors.Is(err, mediaproxy.ErrObjectNotFound) {
			h.serveMiss(w, r, resolved)
			return
		}
		h.logger.Error("failed to fetch media", "bucket", resolved.Bucket, "key", resolved.StorageKey, "error", err)
		http.Error(w, "media store unavailable", http.StatusServiceUnavailable)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", resolved.ContentType)
	w.Header().Set("Cache-Control", proxyCacheControl)
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn("failed to stream media", "bucket", resolved.Bucket, "key", resolved.StorageKey, "error", err)
	}
}

// serveMiss handles a well-formed reference with no object behind it.
// Image requests get the configured placeholder asset when one is set.
func (h *Handler) serveMiss(w http.ResponseWriter, r *http.Request, resolved mediaproxy.ResolvedReference) {
	if h.placeholderPath != "" && strings.HasPrefix(resolved.ContentType, "image/") {
		http.ServeFile(w, r, h.placeholderPath)
		return
	}
	http.Error(w, "media not found", http.StatusNotFound)
}

// UploadResponse is returned after a successful upload.
type UploadResponse struct {
	Category    string `json:"category"`
	Bucket      string `json:"bucket"`
	StorageKey  string `json:"storage_key"`
	ExternalURL string `json:"external_url"`
	ContentType string `json:"content_type"`
}

// Upload stores a multipart file upload and returns its media reference
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	const maxUploadBytes = 64 << 20
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}

	category := mediaproxy.Category(r.FormValue("category"))
	if !category.Valid() {
		http.Error(w, "unknown media category", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing file field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	ref, err := h.service.StoreMedia(r.Context(), mediaproxy.StoreMediaRequest{
		Category:        category,
		Filename:        header.Filename,
		Reader:          file,
		ContentTypeHint: header.Header.Get("Content-Type"),
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.logger.Info("media uploaded", "bucket", ref.Bucket, "key", ref.StorageKey)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, UploadResponse{
		Category:    string(ref.Category),
		Bucket:      string(ref.Bucket),
		StorageKey:  ref.StorageKey,
		ExternalURL: ref.ExternalURL,
		ContentType: ref.ContentType,
	})
}

// Delete removes a stored object
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	bucket := mediaproxy.Bucket(chi.URLParam(r, "bucket"))
	if !mediaproxy.ValidBucket(bucket) {
		http.Error(w, "unknown bucket", http.StatusBadRequest)
		return
	}
	key := chi.URLParam(r, "*")
	if key == "" {
		http.Error(w, "missing storage key", http.StatusBadRequest)
		return
	}

	if err := h.service.DeleteMedia(r.Context(), bucket, key); err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.logger.Info("media deleted", "bucket", bucket, "key", key)
	render.JSON(w, r, map[string]string{"status": "deleted"})
}

// ExtractInlineRequest carries a rich-text document whose embedded base64
// images should be externalized.
type ExtractInlineRequest struct {
	HTML    string `json:"html"`
	Section string `json:"section"`
}

// ExtractInlineResponse returns the rewritten document.
type ExtractInlineResponse struct {
	HTML string `json:"html"`
}

// ExtractInline externalizes inline base64 images in rich-text HTML
func (h *Handler) ExtractInline(w http.ResponseWriter, r *http.Request) {
	var req ExtractInlineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	html := h.service.ExtractInlineImages(r.Context(), req.HTML, req.Section)
	render.JSON(w, r, ExtractInlineResponse{HTML: html})
}

// writeServiceError maps the service error taxonomy onto HTTP statuses.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, mediaproxy.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, mediaproxy.ErrMalformedReference):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, mediaproxy.ErrObjectNotFound):
		http.Error(w, "media not found", http.StatusNotFound)
	case errors.Is(err, mediaproxy.ErrStoreUnavailable):
		http.Error(w, "media store unavailable", http.StatusServiceUnavailable)
	default:
		h.logger.Error("unexpected service error", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
