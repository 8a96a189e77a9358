package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/tendant/media-proxy/pkg/mediaproxy"
)

// Backend is a filesystem implementation of the mediaproxy.ObjectStore
// interface. Objects live under baseDir/{bucket}/{storage key}.
type Backend struct {
	baseDir string
}

// Config options for the filesystem backend
type Config struct {
	BaseDir string // Base directory for storing objects
}

// New creates a new filesystem storage backend
func New(config Config) (mediaproxy.ObjectStore, error) {
	if config.BaseDir == "" {
		return nil, errors.New("base directory is required")
	}

	if err := os.MkdirAll(config.BaseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &Backend{baseDir: config.BaseDir}, nil
}

func (b *Backend) objectPath(bucket mediaproxy.Bucket, key string) string {
	return filepath.Join(b.baseDir, string(bucket), filepath.FromSlash(key))
}

// Put writes an object to the filesystem
func (b *Backend) Put(ctx context.Context, bucket mediaproxy.Bucket, key string, reader io.Reader, contentType string) error {
	filePath := b.objectPath(bucket, key)

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, reader); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// Get reads an object from the filesystem
func (b *Backend) Get(ctx context.Context, bucket mediaproxy.Bucket, key string) (io.ReadCloser, error) {
	file, err := os.Open(b.objectPath(bucket, key))
	if os.IsNotExist(err) {
		return nil, mediaproxy.ErrObjectNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

// Delete removes an object from the filesystem
func (b *Backend) Delete(ctx context.Context, bucket mediaproxy.Bucket, key string) error {
	filePath := b.objectPath(bucket, key)

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return mediaproxy.ErrObjectNotFound
	}

	if err := os.Remove(filePath); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	b.cleanupEmptyDirectories(filepath.Dir(filePath))
	return nil
}

// Exists reports whether an object is present on disk
func (b *Backend) Exists(ctx context.Context, bucket mediaproxy.Bucket, key string) (bool, error) {
	_, err := os.Stat(b.objectPath(bucket, key))
	if os.IsNotExist(err) {
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("failed to stat file: %w", err)
	}
	return true, nil
}

// Meta retrieves metadata for an object on disk. The content type is taken
// from the key's extension, with sniffing as a fallback for unknown ones.
func (b *Backend) Meta(ctx context.Context, bucket mediaproxy.Bucket, key string) (*mediaproxy.ObjectMeta, error) {
	filePath := b.objectPath(bucket, key)

	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return nil, mediaproxy.ErrObjectNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to get file info: %w", err)
	}

	contentType := mediaproxy.ContentTypeForFilename(key)
	if contentType == "application/octet-stream" {
		if file, err := os.Open(filePath); err == nil {
			defer file.Close()
			buffer := make([]byte, 512)
			if n, err := file.Read(buffer); err == nil {
				contentType = http.DetectContentType(buffer[:n])
			}
		}
	}

	return &mediaproxy.ObjectMeta{
		Bucket:      bucket,
		Key:         key,
		Size:        info.Size(),
		ContentType: contentType,
		UpdatedAt:   info.ModTime(),
	}, nil
}

// cleanupEmptyDirectories recursively removes empty directories up to baseDir
func (b *Backend) cleanupEmptyDirectories(dir string) {
	if dir == b.baseDir {
		return
	}

	if entries, err := os.ReadDir(dir); err == nil && len(entries) == 0 {
		if os.Remove(dir) == nil {
			b.cleanupEmptyDirectories(filepath.Dir(dir))
		}
	}
}
