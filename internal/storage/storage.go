// Package storage persists uploaded images and resolves their public URLs.
package storage

import (
	"context"
	"errors"
)

// ErrInvalidKey is returned for keys that are empty or escape the store root.
var ErrInvalidKey = errors.New("invalid storage key")

// ImageStore stores image bytes under a key such as "recipes/<id>.png".
type ImageStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Delete(ctx context.Context, key string) error
	URL(key string) string
}
