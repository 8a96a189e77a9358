package mediaproxy_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/media-proxy/pkg/mediaproxy"
)

func TestResolveURL(t *testing.T) {
	tests := []struct {
		name       string
		url        string
		wantBucket mediaproxy.Bucket
		wantKey    string
		wantType   string
	}{
		{
			name:       "canonical form",
			url:        "/media-proxy/FORUM/forum/abc.png",
			wantBucket: mediaproxy.BucketForum,
			wantKey:    "forum/abc.png",
			wantType:   "image/png",
		},
		{
			name:       "double-nested legacy form",
			url:        "/media-proxy/FORUM/forum/forum/abc.png",
			wantBucket: mediaproxy.BucketForum,
			wantKey:    "forum/abc.png",
			wantType:   "image/png",
		},
		{
			name:       "triple-nested legacy form",
			url:        "/media-proxy/FORUM/forum/forum/forum/abc.png",
			wantBucket: mediaproxy.BucketForum,
			wantKey:    "forum/abc.png",
			wantType:   "image/png",
		},
		{
			name:       "bucket-missing form",
			url:        "/media-proxy/events/summer.jpg",
			wantBucket: mediaproxy.BucketCalendar,
			wantKey:    "events/summer.jpg",
			wantType:   "image/jpeg",
		},
		{
			name:       "bare category-relative path",
			url:        "events/foo.jpg",
			wantBucket: mediaproxy.BucketCalendar,
			wantKey:    "events/foo.jpg",
			wantType:   "image/jpeg",
		},
		{
			name:       "bare path with duplicate prefix",
			url:        "listings/listings/house.webp",
			wantBucket: mediaproxy.BucketRealEstate,
			wantKey:    "listings/house.webp",
			wantType:   "image/webp",
		},
		{
			name:       "query string stripped",
			url:        "/media-proxy/CALENDAR/events/fair.png?v=3",
			wantBucket: mediaproxy.BucketCalendar,
			wantKey:    "events/fair.png",
			wantType:   "image/png",
		},
		{
			name:       "general bucket",
			url:        "/media-proxy/GENERAL/content/page.pdf",
			wantBucket: mediaproxy.BucketGeneral,
			wantKey:    "content/page.pdf",
			wantType:   "application/pdf",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := mediaproxy.ResolveURL(tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.wantBucket, got.Bucket)
			assert.Equal(t, tt.wantKey, got.StorageKey)
			assert.Equal(t, tt.wantType, got.ContentType)
		})
	}
}

func TestResolveURLMalformed(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"not a url at all", "not a url at all"},
		{"empty", ""},
		{"whitespace", "   "},
		{"unknown leading path", "/somewhere/else.png"},
		{"proxy prefix only", "/media-proxy/"},
		{"bucket without key", "/media-proxy/FORUM"},
		{"bucket with bare filename", "/media-proxy/FORUM/abc.png"},
		{"unknown bucket and prefix", "/media-proxy/SHOP/items/x.png"},
		{"key prefix mismatch", "/media-proxy/FORUM/events/abc.png"},
		{"traversal segment", "/media-proxy/FORUM/forum/../secret.png"},
		{"nested key after collapse", "/media-proxy/FORUM/forum/sub/abc.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := mediaproxy.ResolveURL(tt.url)
			assert.ErrorIs(t, err, mediaproxy.ErrMalformedReference)
		})
	}
}

// Resolving an already-normalized URL must be a fixed point: for every
// legacy shape x, resolve(canonical(x)) == resolve(x).
func TestResolveURLIdempotent(t *testing.T) {
	legacy := []string{
		"/media-proxy/FORUM/forum/forum/abc.png",
		"/media-proxy/events/summer.jpg",
		"events/foo.jpg",
		"banners/banners/wide.png",
		"/media-proxy/AVATARS/avatars/u42.webp",
	}

	for _, url := range legacy {
		first, err := mediaproxy.ResolveURL(url)
		require.NoError(t, err, url)

		second, err := mediaproxy.ResolveURL(first.ExternalURL())
		require.NoError(t, err, first.ExternalURL())
		assert.Equal(t, first, second, "resolve not idempotent for %s", url)
	}
}

func TestResolveDoubleNestedMatchesCanonical(t *testing.T) {
	nested, err := mediaproxy.ResolveURL("/media-proxy/FORUM/forum/forum/abc.png")
	require.NoError(t, err)

	canonical, err := mediaproxy.ResolveURL("/media-proxy/FORUM/forum/abc.png")
	require.NoError(t, err)

	assert.Equal(t, canonical, nested)
}
