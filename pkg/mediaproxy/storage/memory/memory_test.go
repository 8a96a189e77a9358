package memory_test

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/media-proxy/pkg/mediaproxy"
	"github.com/tendant/media-proxy/pkg/mediaproxy/storage/memory"
)

func TestPutGetRoundTrip(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	data := []byte("hello world")

	err := store.Put(ctx, mediaproxy.BucketForum, "forum/a.txt", bytes.NewReader(data), "text/plain")
	require.NoError(t, err)

	rc, err := store.Get(ctx, mediaproxy.BucketForum, "forum/a.txt")
	require.NoError(t, err)
	defer rc.Close()

	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestBucketsAreIsolated(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, mediaproxy.BucketForum, "forum/a.txt", bytes.NewReader([]byte("x")), "text/plain"))

	_, err := store.Get(ctx, mediaproxy.BucketCalendar, "forum/a.txt")
	assert.ErrorIs(t, err, mediaproxy.ErrObjectNotFound)
}

func TestGetMissing(t *testing.T) {
	store := memory.New()

	_, err := store.Get(context.Background(), mediaproxy.BucketForum, "forum/missing.txt")
	assert.ErrorIs(t, err, mediaproxy.ErrObjectNotFound)
}

func TestDelete(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, mediaproxy.BucketForum, "forum/a.txt", bytes.NewReader([]byte("x")), "text/plain"))
	require.NoError(t, store.Delete(ctx, mediaproxy.BucketForum, "forum/a.txt"))

	err := store.Delete(ctx, mediaproxy.BucketForum, "forum/a.txt")
	assert.ErrorIs(t, err, mediaproxy.ErrObjectNotFound)
}

func TestExists(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	exists, err := store.Exists(ctx, mediaproxy.BucketForum, "forum/a.txt")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, store.Put(ctx, mediaproxy.BucketForum, "forum/a.txt", bytes.NewReader([]byte("x")), "text/plain"))

	exists, err = store.Exists(ctx, mediaproxy.BucketForum, "forum/a.txt")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestMeta(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, mediaproxy.BucketForum, "forum/a.txt", bytes.NewReader([]byte("hello")), "text/plain"))

	meta, err := store.Meta(ctx, mediaproxy.BucketForum, "forum/a.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(5), meta.Size)
	assert.Equal(t, "text/plain", meta.ContentType)
	assert.Equal(t, mediaproxy.BucketForum, meta.Bucket)

	_, err = store.Meta(ctx, mediaproxy.BucketForum, "forum/missing.txt")
	assert.ErrorIs(t, err, mediaproxy.ErrObjectNotFound)
}
