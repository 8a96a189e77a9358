package mediaproxy

import (
	"path"
	"strings"
)

// Category is the domain type for logical media classes. The set is closed;
// every category maps to exactly one bucket and one path prefix.
type Category string

// Category constants (typed).
const (
	CategoryCalendar   Category = "calendar"
	CategoryForum      Category = "forum"
	CategoryAvatar     Category = "avatar"
	CategoryBanner     Category = "banner"
	CategoryRealEstate Category = "real-estate"
	CategoryVendor     Category = "vendor"
	CategoryCommunity  Category = "community"
	CategoryContent    Category = "content"
)

// Bucket is the domain type for object store partitions, one per category.
type Bucket string

// Bucket constants (typed). BucketGeneral doubles as the default bucket.
const (
	BucketCalendar   Bucket = "CALENDAR"
	BucketForum      Bucket = "FORUM"
	BucketAvatars    Bucket = "AVATARS"
	BucketBanners    Bucket = "BANNERS"
	BucketRealEstate Bucket = "REALESTATE"
	BucketVendors    Bucket = "VENDORS"
	BucketCommunity  Bucket = "COMMUNITY"
	BucketGeneral    Bucket = "GENERAL"
)

// categoryBuckets maps each category to its bucket. Total by construction;
// Valid() guards lookups from uncontrolled input.
var categoryBuckets = map[Category]Bucket{
	CategoryCalendar:   BucketCalendar,
	CategoryForum:      BucketForum,
	CategoryAvatar:     BucketAvatars,
	CategoryBanner:     BucketBanners,
	CategoryRealEstate: BucketRealEstate,
	CategoryVendor:     BucketVendors,
	CategoryCommunity:  BucketCommunity,
	CategoryContent:    BucketGeneral,
}

// categoryPrefixes maps each category to its storage key prefix.
var categoryPrefixes = map[Category]string{
	CategoryCalendar:   "events",
	CategoryForum:      "forum",
	CategoryAvatar:     "avatars",
	CategoryBanner:     "banners",
	CategoryRealEstate: "listings",
	CategoryVendor:     "vendors",
	CategoryCommunity:  "community",
	CategoryContent:    "content",
}

// Valid reports whether c is a member of the closed category set.
func (c Category) Valid() bool {
	_, ok := categoryBuckets[c]
	return ok
}

// Bucket returns the bucket for the category. Unknown categories fall back
// to the general bucket; callers validating input should check Valid first.
func (c Category) Bucket() Bucket {
	if b, ok := categoryBuckets[c]; ok {
		return b
	}
	return BucketGeneral
}

// PathPrefix returns the storage key prefix for the category.
func (c Category) PathPrefix() string {
	if p, ok := categoryPrefixes[c]; ok {
		return p
	}
	return categoryPrefixes[CategoryContent]
}

// Categories returns every member of the category set.
func Categories() []Category {
	out := make([]Category, 0, len(categoryBuckets))
	for c := range categoryBuckets {
		out = append(out, c)
	}
	return out
}

// ValidBucket reports whether b is a member of the closed bucket set.
func ValidBucket(b Bucket) bool {
	for _, bucket := range categoryBuckets {
		if bucket == b {
			return true
		}
	}
	return false
}

// bucketForPrefix returns the bucket owning a storage key prefix. Used to
// recover the bucket from legacy bucket-missing URL shapes.
func bucketForPrefix(prefix string) (Bucket, bool) {
	for c, p := range categoryPrefixes {
		if p == prefix {
			return categoryBuckets[c], true
		}
	}
	return "", false
}

// knownPrefix reports whether s is one of the category path prefixes.
func knownPrefix(s string) bool {
	_, ok := bucketForPrefix(s)
	return ok
}

// MediaReference ties a logical upload to its bucket, storage key, and
// public URL. References are immutable; replacing media means constructing
// a new reference and overwriting the parent entity's stored URL.
type MediaReference struct {
	Category    Category `json:"category"`
	Bucket      Bucket   `json:"bucket"`
	PathPrefix  string   `json:"path_prefix"`
	Filename    string   `json:"filename"`
	StorageKey  string   `json:"storage_key"`
	ExternalURL string   `json:"external_url"`
	ContentType string   `json:"content_type"`
}

// NewMediaReference derives the storage key and canonical external URL for
// a category and an already-sanitized filename.
func NewMediaReference(category Category, filename string) *MediaReference {
	prefix := category.PathPrefix()
	key := prefix + "/" + filename
	return &MediaReference{
		Category:    category,
		Bucket:      category.Bucket(),
		PathPrefix:  prefix,
		Filename:    filename,
		StorageKey:  key,
		ExternalURL: ExternalURL(category.Bucket(), key),
		ContentType: ContentTypeForFilename(filename),
	}
}

// ExternalURL builds the canonical externally-served URL for a bucket and
// storage key. This is the only URL form persisted going forward.
func ExternalURL(bucket Bucket, storageKey string) string {
	return "/media-proxy/" + string(bucket) + "/" + storageKey
}

// mimeTypes is the fixed extension to MIME type table.
var mimeTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
	".mp4":  "video/mp4",
	".m4v":  "video/mp4",
	".webm": "video/webm",
	".mov":  "video/quicktime",
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".pdf":  "application/pdf",
	".txt":  "text/plain",
	".json": "application/json",
}

// ContentTypeForFilename returns the MIME type for a filename's extension.
// The table is total: unknown extensions yield application/octet-stream.
func ContentTypeForFilename(filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	if mime, ok := mimeTypes[ext]; ok {
		return mime
	}
	return "application/octet-stream"
}

// filenameSanitizer strips characters that are unsafe in storage keys,
// matching what upload clients have historically sent.
var filenameSanitizer = strings.NewReplacer(
	"\\", "_",
	":", "_",
	"*", "_",
	"?", "_",
	"\"", "_",
	"<", "_",
	">", "_",
	"|", "_",
	" ", "_",
	"#", "_",
	"%", "_",
)

// SanitizeFilename strips directory components and disallowed characters
// from a caller-supplied filename. Returns ErrInvalidInput when nothing
// usable remains or the name carries path-traversal segments.
func SanitizeFilename(name string) (string, error) {
	// Drop any directory components, whichever separator the client used.
	name = name[strings.LastIndexByte(name, '/')+1:]
	name = name[strings.LastIndexByte(name, '\\')+1:]

	name = filenameSanitizer.Replace(strings.TrimSpace(name))
	if name == "" || name == "." || strings.Contains(name, "..") {
		return "", ErrInvalidInput
	}
	return name, nil
}
