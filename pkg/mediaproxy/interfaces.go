package mediaproxy

import (
	"context"
	"io"
	"time"
)

// ObjectStore defines the interface for bucket-partitioned storage backends.
// Buckets are drawn from the closed Bucket enum; keys are prefix/filename
// storage keys.
type ObjectStore interface {
	// Put durably writes an object. The write completes before Put returns.
	Put(ctx context.Context, bucket Bucket, key string, reader io.Reader, contentType string) error

	// Get reads an object. Misses return ErrObjectNotFound.
	Get(ctx context.Context, bucket Bucket, key string) (io.ReadCloser, error)

	// Delete removes an object. Absent keys return ErrObjectNotFound.
	Delete(ctx context.Context, bucket Bucket, key string) error

	// Exists reports whether an object is present.
	Exists(ctx context.Context, bucket Bucket, key string) (bool, error)

	// Meta retrieves metadata for an object.
	Meta(ctx context.Context, bucket Bucket, key string) (*ObjectMeta, error)
}

// ObjectMeta contains metadata about an object in storage
type ObjectMeta struct {
	Bucket      Bucket
	Key         string
	Size        int64
	ContentType string
	UpdatedAt   time.Time
	ETag        string
}

// EventSink defines the interface for media lifecycle event handling.
// Sink failures are logged by the service and never fail the operation.
type EventSink interface {
	// MediaStored is fired after an object is durably written
	MediaStored(ctx context.Context, ref *MediaReference) error

	// MediaDeleted is fired after an object is removed
	MediaDeleted(ctx context.Context, bucket Bucket, key string) error
}
