package repository

import "errors"

var (
	// ErrInvalidImageURL indicates an invalid image reference
	ErrInvalidImageURL = errors.New("invalid image URL")

	// ErrDiagnosisNotFound indicates the diagnosis record was not found
	ErrDiagnosisNotFound = errors.New("diagnosis not found")

	// ErrInvalidDiagnosis indicates a record that cannot be stored
	ErrInvalidDiagnosis = errors.New("invalid diagnosis")

	// ErrRepositoryUnavailable indicates the repository is unavailable
	ErrRepositoryUnavailable = errors.New("repository unavailable")
)
