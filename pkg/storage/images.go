package storage

import (
	"context"
	"errors"
	"path"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventia/backend/internal/apperr"
)

// FolderEvents is the key prefix for event images.
const FolderEvents = "events"

// ObjectStore is the bucket the offloader writes to. *S3 implements it.
type ObjectStore interface {
	Upload(ctx context.Context, key, contentType string, body []byte) (string, error)
	DeleteObject(ctx context.Context, key string) error
	KeyFromURL(rawURL string) (string, bool)
}

// ImageOffloader replaces inline data URL images with object URLs.
type ImageOffloader struct {
	store  ObjectStore
	logger *zap.Logger
}

// NewImageOffloader creates an offloader on store.
func NewImageOffloader(store ObjectStore, logger *zap.Logger) *ImageOffloader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImageOffloader{store: store, logger: logger}
}

// EventImageKey returns the object key: events/{event_id}/{image_id}{ext}.
func EventImageKey(eventID uuid.UUID, ext string) string {
	return path.Join(FolderEvents, eventID.String(), uuid.NewString()+ext)
}

// Offload uploads a data URL image and returns its object URL. Any other
// value, e.g. an external link, is returned unchanged.
func (o *ImageOffloader) Offload(ctx context.Context, eventID uuid.UUID, image string) (string, error) {
	if !IsDataURL(image) {
		return image, nil
	}
	contentType, data, err := ParseDataURL(image)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnsupportedImage):
			return "", apperr.Validation("image", "unsupported image type")
		case errors.Is(err, ErrImageTooLarge):
			return "", apperr.Validation("image", "image is too large")
		default:
			return "", apperr.Validation("image", "invalid image data")
		}
	}
	key := EventImageKey(eventID, AllowedImageTypes[contentType])
	url, err := o.store.Upload(ctx, key, contentType, data)
	if err != nil {
		return "", err
	}
	o.logger.Debug("event image uploaded", zap.String("event_id", eventID.String()), zap.String("key", key), zap.Int("bytes", len(data)))
	return url, nil
}

// Remove deletes the object behind image when it lives in the bucket.
func (o *ImageOffloader) Remove(ctx context.Context, image string) error {
	key, ok := o.store.KeyFromURL(image)
	if !ok {
		return nil
	}
	return o.store.DeleteObject(ctx, key)
}
