package mediaproxy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// service implements the Service interface
type service struct {
	store       ObjectStore
	events      EventSink
	logger      *slog.Logger
	uniqueNames bool
	putTimeout  time.Duration
	retryDelay  time.Duration

	// Injected for deterministic tests.
	now      func() time.Time
	newToken func() string
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithObjectStore sets the object store backend for the service
func WithObjectStore(store ObjectStore) Option {
	return func(s *service) {
		s.store = store
	}
}

// WithEventSink sets the event sink for the service
func WithEventSink(sink EventSink) Option {
	return func(s *service) {
		s.events = sink
	}
}

// WithLogger sets the logger used for operational messages
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// WithUniqueNames controls the unique-name policy. When enabled (the
// default), stored filenames are replaced with a collision-free generated
// name; when disabled the sanitized original filename is kept.
func WithUniqueNames(enabled bool) Option {
	return func(s *service) {
		s.uniqueNames = enabled
	}
}

// WithStoreTimeout bounds each object store write attempt
func WithStoreTimeout(d time.Duration) Option {
	return func(s *service) {
		s.putTimeout = d
	}
}

// WithRetryDelay sets the delay before the single write retry
func WithRetryDelay(d time.Duration) Option {
	return func(s *service) {
		s.retryDelay = d
	}
}

// WithClock overrides the time source used for generated names
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		s.now = now
	}
}

// WithTokenSource overrides the random token source used for generated names
func WithTokenSource(fn func() string) Option {
	return func(s *service) {
		s.newToken = fn
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		uniqueNames: true,
		putTimeout:  30 * time.Second,
		retryDelay:  250 * time.Millisecond,
		now:         time.Now,
		newToken:    newNameToken,
	}

	for _, option := range options {
		option(s)
	}

	if s.store == nil {
		return nil, fmt.Errorf("object store is required")
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	return s, nil
}

// newNameToken returns a short lowercase-alphanumeric token.
func newNameToken() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
}

func (s *service) StoreMedia(ctx context.Context, req StoreMediaRequest) (*MediaReference, error) {
	if !req.Category.Valid() {
		return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidInput, req.Category)
	}

	filename, err := SanitizeFilename(req.Filename)
	if err != nil {
		return nil, fmt.Errorf("%w: unusable filename %q", ErrInvalidInput, req.Filename)
	}

	if req.Reader == nil {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidInput)
	}
	data, err := io.ReadAll(req.Reader)
	if err != nil {
		return nil, fmt.Errorf("%w: reading payload: %v", ErrInvalidInput, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidInput)
	}

	if s.uniqueNames && !req.KeepFilename {
		filename = s.uniqueName(req.Category, filename)
	}

	ref := NewMediaReference(req.Category, filename)
	if req.ContentTypeHint != "" {
		ref.ContentType = req.ContentTypeHint
	}

	if err := s.putWithRetry(ctx, ref, data); err != nil {
		return nil, err
	}

	if s.events != nil {
		if err := s.events.MediaStored(ctx, ref); err != nil {
			s.logger.Warn("media stored event failed", "bucket", ref.Bucket, "key", ref.StorageKey, "error", err)
		}
	}

	return ref, nil
}

// uniqueName builds "{category}-{unixMillis}-{token}.{ext}", preserving the
// original extension's case so historical URLs keep their spelling.
func (s *service) uniqueName(category Category, sanitized string) string {
	ext := path.Ext(sanitized)
	return fmt.Sprintf("%s-%d-%s%s", category, s.now().UnixMilli(), s.newToken(), ext)
}

// transientClassifier is optionally implemented by backends that can tell
// retryable failures from permanent ones. Backends without it get the retry
// unconditionally.
type transientClassifier interface {
	IsTransient(error) bool
}

// putWithRetry performs the bounded-timeout write with a single retry on
// failure. A StoreUnavailable result is never reported as success.
func (s *service) putWithRetry(ctx context.Context, ref *MediaReference, data []byte) error {
	err := s.put(ctx, ref, data)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		// The caller is gone; retrying would write on behalf of nobody.
		return s.unavailable(ref, err)
	}
	if c, ok := s.store.(transientClassifier); ok && !c.IsTransient(err) {
		return s.unavailable(ref, err)
	}

	s.logger.Warn("object store write failed, retrying once",
		"bucket", ref.Bucket, "key", ref.StorageKey, "error", err)

	select {
	case <-time.After(s.retryDelay):
	case <-ctx.Done():
		return s.unavailable(ref, ctx.Err())
	}

	if err := s.put(ctx, ref, data); err != nil {
		return s.unavailable(ref, err)
	}
	return nil
}

func (s *service) put(ctx context.Context, ref *MediaReference, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, s.putTimeout)
	defer cancel()
	return s.store.Put(ctx, ref.Bucket, ref.StorageKey, bytes.NewReader(data), ref.ContentType)
}

func (s *service) unavailable(ref *MediaReference, cause error) error {
	err := &StorageError{
		Bucket: ref.Bucket,
		Key:    ref.StorageKey,
		Op:     "put",
		Err:    fmt.Errorf("%w: %v", ErrStoreUnavailable, cause),
	}
	s.logger.Error("object store unavailable", "bucket", ref.Bucket, "key", ref.StorageKey, "error", cause)
	return err
}

func (s *service) Resolve(url string) (ResolvedReference, error) {
	return ResolveURL(url)
}

func (s *service) FetchMedia(ctx context.Context, bucket Bucket, key string) (io.ReadCloser, error) {
	rc, err := s.store.Get(ctx, bucket, key)
	if err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			return nil, err
		}
		return nil, &StorageError{Bucket: bucket, Key: key, Op: "get", Err: fmt.Errorf("%w: %v", ErrStoreUnavailable, err)}
	}
	return rc, nil
}

func (s *service) DeleteMedia(ctx context.Context, bucket Bucket, key string) error {
	if err := s.store.Delete(ctx, bucket, key); err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			return err
		}
		return &StorageError{Bucket: bucket, Key: key, Op: "delete", Err: fmt.Errorf("%w: %v", ErrStoreUnavailable, err)}
	}

	if s.events != nil {
		if err := s.events.MediaDeleted(ctx, bucket, key); err != nil {
			s.logger.Warn("media deleted event failed", "bucket", bucket, "key", key, "error", err)
		}
	}
	return nil
}
