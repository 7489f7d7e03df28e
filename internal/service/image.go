package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/pageza/larder/backend/internal/logger"
	"github.com/pageza/larder/backend/internal/storage"
)

const maxImageBytes = 10 << 20

var (
	ErrNotImage      = errors.New("file is not a supported image")
	ErrImageTooLarge = errors.New("image exceeds 10 MB")
	ErrBadDataURI    = errors.New("expected a data:image/<type>;base64,<payload> string")
)

// Image is a decoded upload waiting to be stored.
type Image struct {
	Data        []byte
	ContentType string
	Ext         string
}

// NewImage sniffs raw bytes and accepts them only if they are an image.
func NewImage(data []byte) (*Image, error) {
	if len(data) == 0 {
		return nil, ErrNotImage
	}
	if len(data) > maxImageBytes {
		return nil, ErrImageTooLarge
	}
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return nil, ErrNotImage
	}
	return &Image{Data: data, ContentType: mt.String(), Ext: mt.Extension()}, nil
}

// DecodeDataURI decodes "data:image/png;base64,...". The declared type is
// only a hint; the payload is sniffed.
func DecodeDataURI(s string) (*Image, error) {
	header, payload, ok := strings.Cut(s, ",")
	if !ok || !strings.HasPrefix(header, "data:image/") || !strings.HasSuffix(header, ";base64") {
		return nil, ErrBadDataURI
	}
	if base64.StdEncoding.DecodedLen(len(payload)) > maxImageBytes+3 {
		return nil, ErrImageTooLarge
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadDataURI, err)
	}
	return NewImage(data)
}

// ImageService names uploads and hands them to the configured store.
type ImageService struct {
	store storage.ImageStore
	log   *logger.Logger
}

func NewImageService(store storage.ImageStore, log *logger.Logger) *ImageService {
	return &ImageService{store: store, log: log.With("service", "image")}
}

// Save stores img under prefix with a random name and returns its key.
func (s *ImageService) Save(ctx context.Context, prefix string, img *Image) (string, error) {
	key := fmt.Sprintf("%s/%s%s", prefix, uuid.NewString(), img.Ext)
	if err := s.store.Put(ctx, key, img.Data, img.ContentType); err != nil {
		return "", fmt.Errorf("failed to store image: %w", err)
	}
	return key, nil
}

// Discard deletes a stored image, logging instead of failing: an orphaned
// file must not fail a request whose database work already committed.
func (s *ImageService) Discard(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.store.Delete(ctx, key); err != nil {
		s.log.Warn("failed to delete image", "key", key, "error", err)
	}
}

func (s *ImageService) URL(key string) string {
	return s.store.URL(key)
}
