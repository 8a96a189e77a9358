// Package mediaproxy provides a single source of truth for the platform's
// media references: it turns (category, filename, bytes) into a stored
// object plus a canonical public URL, and turns any previously emitted URL
// shape (including legacy and malformed ones) back into the object it names.
//
// It exposes a Service interface over a pluggable ObjectStore. Backends
// (memory, filesystem, S3) live under subpackages. URL resolution is a pure
// function of the fixed category tables; the store is never consulted to
// decide which bucket a reference belongs to.
package mediaproxy
