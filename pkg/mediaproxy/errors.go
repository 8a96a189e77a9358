package mediaproxy

import (
	"errors"
	"fmt"
)

// Error types
var (
	// ErrInvalidInput indicates bad caller-supplied data (empty payload,
	// unsanitizable filename, unknown category). Never retried.
	ErrInvalidInput = errors.New("invalid input")

	// ErrMalformedReference indicates a URL string matching none of the
	// recognized reference shapes. Surfaced as a 400-class condition.
	ErrMalformedReference = errors.New("malformed media reference")

	// ErrObjectNotFound indicates a well-formed reference whose object is
	// absent from the store. An expected outcome, not a failure.
	ErrObjectNotFound = errors.New("object not found")

	// ErrStoreUnavailable indicates an object store I/O failure that
	// persisted after retry. Surfaced as a 5xx-class condition.
	ErrStoreUnavailable = errors.New("object store unavailable")
)

// StorageError represents an error related to object store operations
type StorageError struct {
	Bucket Bucket
	Key    string
	Op     string
	Err    error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for key %s in bucket %s: %v", e.Op, e.Key, e.Bucket, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
