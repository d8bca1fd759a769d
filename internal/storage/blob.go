package storage

import (
	"context"
	"strings"
)

// Blob is the object store behind uploaded images.
type Blob interface {
	Put(ctx context.Context, key, contentType string, data []byte) error
	Remove(ctx context.Context, key string) error
	// URL is the public download URL for key.
	URL(key string) string
	// KeyFromURL reports the key of a URL served by this store.
	KeyFromURL(url string) (string, bool)
}

type baseURL string

func (b baseURL) URL(key string) string {
	return strings.TrimRight(string(b), "/") + "/" + key
}

func (b baseURL) KeyFromURL(url string) (string, bool) {
	prefix := strings.TrimRight(string(b), "/") + "/"
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}
	key := strings.TrimPrefix(url, prefix)
	if i := strings.IndexAny(key, "?#"); i >= 0 {
		key = key[:i]
	}
	return key, key != ""
}
