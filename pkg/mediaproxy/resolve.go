package mediaproxy

import "strings"

// ResolvedReference is the result of normalizing an external or legacy URL.
type ResolvedReference struct {
	Bucket      Bucket
	StorageKey  string
	ContentType string
}

// ExternalURL returns the canonical URL for the resolved reference.
func (r ResolvedReference) ExternalURL() string {
	return ExternalURL(r.Bucket, r.StorageKey)
}

const proxyPrefix = "/media-proxy/"

// ResolveURL normalizes the canonical /media-proxy/{bucket}/{key} form and
// the enumerated legacy shapes to a (bucket, storage key) pair. It is a pure
// function of the input string and the category tables; it never consults
// the object store. Recognized legacy shapes, each with one deterministic
// rule:
//
//   - double-nested keys (forum/forum/x.png): the duplicated prefix segment
//     is collapsed;
//   - bucket-missing proxy URLs (/media-proxy/forum/x.png): the bucket is
//     inferred from the leading prefix segment;
//   - bare category-relative paths (events/x.jpg): same inference, no proxy
//     prefix.
//
// Anything else is ErrMalformedReference.
func ResolveURL(raw string) (ResolvedReference, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ResolvedReference{}, ErrMalformedReference
	}
	// Strip any query or fragment clients appended (cache busters).
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}

	switch {
	case strings.HasPrefix(s, proxyPrefix):
		return resolveProxyPath(strings.TrimPrefix(s, proxyPrefix))
	case strings.HasPrefix(s, "/"):
		return ResolvedReference{}, ErrMalformedReference
	default:
		// Bare category-relative path: prefix/filename.
		return resolveRelativePath(s)
	}
}

// resolveProxyPath handles everything after "/media-proxy/": either
// bucket/key, or a bucket-missing prefix/key.
func resolveProxyPath(rest string) (ResolvedReference, error) {
	seg := splitSegments(rest)
	if seg == nil {
		return ResolvedReference{}, ErrMalformedReference
	}

	if ValidBucket(Bucket(seg[0])) {
		bucket := Bucket(seg[0])
		key, err := normalizeKey(seg[1:])
		if err != nil {
			return ResolvedReference{}, err
		}
		// The bucket/prefix mapping is 1:1; a key filed under another
		// category's prefix is not a shape any writer ever produced.
		if owner, _ := bucketForPrefix(strings.SplitN(key, "/", 2)[0]); owner != bucket {
			return ResolvedReference{}, ErrMalformedReference
		}
		return resolved(bucket, key), nil
	}

	// Bucket-missing form: leading segment is a category prefix instead.
	if bucket, ok := bucketForPrefix(seg[0]); ok {
		key, err := normalizeKey(seg)
		if err != nil {
			return ResolvedReference{}, err
		}
		return resolved(bucket, key), nil
	}

	return ResolvedReference{}, ErrMalformedReference
}

// resolveRelativePath handles bare prefix/filename paths with no proxy
// prefix, as persisted by early upload code.
func resolveRelativePath(s string) (ResolvedReference, error) {
	seg := splitSegments(s)
	if seg == nil {
		return ResolvedReference{}, ErrMalformedReference
	}
	bucket, ok := bucketForPrefix(seg[0])
	if !ok {
		return ResolvedReference{}, ErrMalformedReference
	}
	key, err := normalizeKey(seg)
	if err != nil {
		return ResolvedReference{}, err
	}
	return resolved(bucket, key), nil
}

// normalizeKey rebuilds a storage key from path segments: the leading
// segment must be a known prefix, duplicated prefix segments are collapsed,
// and at least a filename must remain.
func normalizeKey(seg []string) (string, error) {
	if len(seg) < 2 || !knownPrefix(seg[0]) {
		return "", ErrMalformedReference
	}
	prefix := seg[0]
	rest := seg[1:]
	// Collapse double-nested keys written by older upload paths.
	for len(rest) > 1 && rest[0] == prefix {
		rest = rest[1:]
	}
	if len(rest) != 1 || rest[0] == "" {
		return "", ErrMalformedReference
	}
	if strings.Contains(rest[0], "..") {
		return "", ErrMalformedReference
	}
	return prefix + "/" + rest[0], nil
}

// splitSegments splits a slash path into non-empty segments, rejecting
// traversal segments. Returns nil when the path is unusable.
func splitSegments(s string) []string {
	parts := strings.Split(strings.Trim(s, "/"), "/")
	out := parts[:0]
	for _, p := range parts {
		if p == "" {
			continue
		}
		if p == "." || p == ".." {
			return nil
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func resolved(bucket Bucket, key string) ResolvedReference {
	return ResolvedReference{
		Bucket:      bucket,
		StorageKey:  key,
		ContentType: ContentTypeForFilename(key),
	}
}
