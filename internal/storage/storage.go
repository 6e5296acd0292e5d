// Package storage persists uploaded media under slash-separated keys such as
// "posts/<uuid>.jpg" and resolves the public URL of each key.
package storage

import (
	"context"
	"fmt"
	"path"
	"strings"
)

// Store is an object store for post images.
type Store interface {
	Put(ctx context.Context, key, contentType string, data []byte) error
	Delete(ctx context.Context, key string) error
	URL(key string) string
	// Ready reports whether the backend can accept writes.
	Ready(ctx context.Context) error
	// Name identifies the backend in logs and metrics.
	Name() string
}

// CleanKey rejects absolute keys and keys escaping the store root.
func CleanKey(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return cleaned, nil
}

func joinURL(base, key string) string {
	if base == "" {
		return "/" + key
	}
	return strings.TrimSuffix(base, "/") + "/" + key
}
