package analyzer

import "errors"

var (
	// ErrInvalidImageFormat indicates an unreadable or zero-dimension input
	ErrInvalidImageFormat = errors.New("invalid image format")

	// ErrNoContourFound indicates the binary mask holds no external boundary
	ErrNoContourFound = errors.New("no contour found")

	// ErrAnalysisFailed indicates an unexpected fault inside the pipeline
	ErrAnalysisFailed = errors.New("analysis failed")
)

// IsFailure reports whether err is one of the pipeline's own failure kinds
func IsFailure(err error) bool {
	return errors.Is(err, ErrInvalidImageFormat) ||
		errors.Is(err, ErrNoContourFound) ||
		errors.Is(err, ErrAnalysisFailed)
}
