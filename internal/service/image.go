package service

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ImageURLTTL is how long a presigned image URL stays valid.
const ImageURLTTL = time.Hour

var (
	// ErrUnsupportedImage is returned for uploads that are not images
	ErrUnsupportedImage = errors.New("unsupported image content type")
	// ErrStorageDisabled is returned for uploads when no bucket is configured
	ErrStorageDisabled = errors.New("image storage is not configured")
)

// ObjectStore is the subset of the S3 bucket the catalog needs.
type ObjectStore interface {
	GeneratePresignedURL(ctx context.Context, objectKey string, expiration time.Duration) (string, error)
	PutObject(ctx context.Context, objectKey string, data []byte, contentType string) error
}

// ImageService resolves stored recipe images to URLs and uploads new ones.
// Recipe images are stored either as full URLs, which pass through, or as
// keys in the image bucket, which are presigned.
type ImageService struct {
	store  ObjectStore
	logger *zap.Logger
}

// NewImageService creates an ImageService. store may be nil, in which case
// keys are returned unchanged and uploads fail.
func NewImageService(store ObjectStore, logger *zap.Logger) *ImageService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImageService{store: store, logger: logger}
}

// ResolveURL returns a URL the client can load for image.
func (s *ImageService) ResolveURL(ctx context.Context, image string) string {
	if image == "" || isURL(image) || s.store == nil {
		return image
	}
	url, err := s.store.GeneratePresignedURL(ctx, image, ImageURLTTL)
	if err != nil {
		s.logger.Warn("failed to presign recipe image", zap.String("key", image), zap.Error(err))
		return ""
	}
	return url
}

// UploadRecipeImage stores data under a fresh key for recipeID and returns
// the key.
func (s *ImageService) UploadRecipeImage(ctx context.Context, recipeID int64, data []byte, contentType string) (string, error) {
	if s.store == nil {
		return "", ErrStorageDisabled
	}
	if !strings.HasPrefix(contentType, "image/") {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedImage, contentType)
	}

	ext := ".img"
	if exts, _ := mime.ExtensionsByType(contentType); len(exts) > 0 {
		ext = exts[0]
	}
	key := fmt.Sprintf("recipe-images/%d-%s%s", recipeID, uuid.New().String(), ext)

	if err := s.store.PutObject(ctx, key, data, contentType); err != nil {
		return "", fmt.Errorf("failed to upload recipe image: %w", err)
	}
	s.logger.Info("uploaded recipe image", zap.Int64("recipe_id", recipeID), zap.String("key", key))
	return key, nil
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
