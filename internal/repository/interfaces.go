package repository

import (
	"context"
	"fmt"
	"image"

	"go-spine-inspector/pkg/models"
)

// ImageRepository defines the interface for photograph access
type ImageRepository interface {
	// FetchImage loads a photograph from an http(s), azblob or file reference
	FetchImage(ctx context.Context, ref string) (image.Image, error)

	// ValidateImageRef validates if the provided reference is acceptable
	ValidateImageRef(ref string) error
}

// DiagnosisRepository stores screening outcomes per user
type DiagnosisRepository interface {
	// Save stores a new diagnosis. ID, UserID and CreatedAt must be set.
	Save(ctx context.Context, d models.Diagnosis) error

	// Get retrieves one diagnosis by ID
	Get(ctx context.Context, id string) (*models.Diagnosis, error)

	// ListByUser returns up to limit diagnoses of a user, newest first. limit <= 0 means all.
	ListByUser(ctx context.Context, userID string, limit int) ([]models.Diagnosis, error)

	// Close releases backend resources
	Close() error
}

func validateDiagnosis(d models.Diagnosis) error {
	switch {
	case d.ID == "":
		return fmt.Errorf("%w: missing id", ErrInvalidDiagnosis)
	case d.UserID == "":
		return fmt.Errorf("%w: missing user_id", ErrInvalidDiagnosis)
	case d.CreatedAt.IsZero():
		return fmt.Errorf("%w: missing created_at", ErrInvalidDiagnosis)
	}
	return nil
}
