package memory

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	"github.com/tendant/media-proxy/pkg/mediaproxy"
)

// Backend is an in-memory implementation of the mediaproxy.ObjectStore
// interface, partitioned by bucket
type Backend struct {
	mu      sync.RWMutex
	buckets map[mediaproxy.Bucket]map[string]object
}

type object struct {
	data        []byte
	contentType string
	updatedAt   time.Time
}

// New creates a new in-memory storage backend
func New() mediaproxy.ObjectStore {
	return &Backend{
		buckets: make(map[mediaproxy.Bucket]map[string]object),
	}
}

// Put stores an object in memory
func (b *Backend) Put(ctx context.Context, bucket mediaproxy.Bucket, key string, reader io.Reader, contentType string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.buckets[bucket] == nil {
		b.buckets[bucket] = make(map[string]object)
	}
	b.buckets[bucket][key] = object{data: data, contentType: contentType, updatedAt: time.Now()}
	return nil
}

// Get retrieves an object from memory
func (b *Backend) Get(ctx context.Context, bucket mediaproxy.Bucket, key string) (io.ReadCloser, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	obj, exists := b.buckets[bucket][key]
	if !exists {
		return nil, mediaproxy.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

// Delete removes an object from memory
func (b *Backend) Delete(ctx context.Context, bucket mediaproxy.Bucket, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.buckets[bucket][key]; !exists {
		return mediaproxy.ErrObjectNotFound
	}
	delete(b.buckets[bucket], key)
	return nil
}

// Exists reports whether an object is present
func (b *Backend) Exists(ctx context.Context, bucket mediaproxy.Bucket, key string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	_, exists := b.buckets[bucket][key]
	return exists, nil
}

// Meta retrieves metadata for an object in memory
func (b *Backend) Meta(ctx context.Context, bucket mediaproxy.Bucket, key string) (*mediaproxy.ObjectMeta, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	obj, exists := b.buckets[bucket][key]
	if !exists {
		return nil, mediaproxy.ErrObjectNotFound
	}
	return &mediaproxy.ObjectMeta{
		Bucket:      bucket,
		Key:         key,
		Size:        int64(len(obj.data)),
		ContentType: obj.contentType,
		UpdatedAt:   obj.updatedAt,
	}, nil
}
