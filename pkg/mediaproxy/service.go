package mediaproxy

import (
	"context"
	"io"
)

// Service defines the main interface for the media-proxy library
type Service interface {
	// StoreMedia writes bytes to the object store and returns the reference
	// the caller persists on its parent entity.
	StoreMedia(ctx context.Context, req StoreMediaRequest) (*MediaReference, error)

	// Resolve normalizes a canonical or legacy URL to its bucket and
	// storage key without touching the store.
	Resolve(url string) (ResolvedReference, error)

	// FetchMedia reads the bytes for a resolved reference.
	FetchMedia(ctx context.Context, bucket Bucket, key string) (io.ReadCloser, error)

	// DeleteMedia removes the bytes for a resolved reference. Deleting an
	// absent key returns ErrObjectNotFound; callers treating deletes as
	// idempotent may ignore it.
	DeleteMedia(ctx context.Context, bucket Bucket, key string) error

	// ExtractInlineImages externalizes base64 data URIs embedded in
	// rich-text HTML, returning the rewritten document.
	ExtractInlineImages(ctx context.Context, html string, sectionLabel string) string
}

// StoreMediaRequest contains parameters for storing a media object
type StoreMediaRequest struct {
	Category Category
	Filename string
	Reader   io.Reader

	// ContentTypeHint overrides the extension-derived content type when set.
	ContentTypeHint string

	// KeepFilename disables the unique-name policy and stores under the
	// sanitized original filename. Off by default.
	KeepFilename bool
}
