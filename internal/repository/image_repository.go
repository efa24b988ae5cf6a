package repository

import (
	"context"
	"fmt"
	"image"

	"go-spine-inspector/internal/storage"
	"go-spine-inspector/pkg/validation"
)

// SourceImageRepository implements ImageRepository on top of a scheme-routing fetcher
type SourceImageRepository struct {
	fetcher   storage.ImageFetcher
	validator *validation.URLValidator
}

// NewSourceImageRepository creates a new image repository
func NewSourceImageRepository(fetcher storage.ImageFetcher, validator *validation.URLValidator) ImageRepository {
	if validator == nil {
		validator = validation.NewURLValidator()
	}
	return &SourceImageRepository{
		fetcher:   fetcher,
		validator: validator,
	}
}

// FetchImage retrieves a photograph
func (r *SourceImageRepository) FetchImage(ctx context.Context, ref string) (image.Image, error) {
	return r.fetcher.FetchImage(ctx, ref)
}

// ValidateImageRef validates if the provided reference is acceptable
func (r *SourceImageRepository) ValidateImageRef(ref string) error {
	if err := r.validator.ValidateImageURL(ref); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidImageURL, err)
	}
	return nil
}
