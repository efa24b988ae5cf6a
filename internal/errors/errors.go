package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeNetwork    ErrorType = "network"
	ErrorTypeProcessing ErrorType = "processing"
	ErrorTypeTimeout    ErrorType = "timeout"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeInternal   ErrorType = "internal"
)

var statusCodes = map[ErrorType]int{
	ErrorTypeValidation: http.StatusBadRequest,
	ErrorTypeNetwork:    http.StatusBadGateway,
	ErrorTypeProcessing: http.StatusUnprocessableEntity,
	ErrorTypeTimeout:    http.StatusGatewayTimeout,
	ErrorTypeNotFound:   http.StatusNotFound,
	ErrorTypeInternal:   http.StatusInternalServerError,
}

// StatusCode returns the HTTP status for an error category. Unknown types map to 500.
func (t ErrorType) StatusCode() int {
	if code, ok := statusCodes[t]; ok {
		return code
	}
	return http.StatusInternalServerError
}

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	Details    string    `json:"details,omitempty"`
	StatusCode int       `json:"status_code"`
	Cause      error     `json:"-"`
}

// New creates an AppError of the given type with its HTTP status filled in
func New(t ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:       t,
		Message:    message,
		StatusCode: t.StatusCode(),
		Cause:      cause,
	}
}

func (e *AppError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Type, e.Message)
	}
	return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetails returns a copy of the error carrying extra detail for the client
func (e *AppError) WithDetails(details string) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

// NewValidationError reports a bad request: unusable reference, unknown test type, oversized upload
func NewValidationError(message string, cause error) *AppError {
	return New(ErrorTypeValidation, message, cause)
}

// NewNetworkError reports a failure reaching the image source
func NewNetworkError(message string, cause error) *AppError {
	return New(ErrorTypeNetwork, message, cause)
}

// NewProcessingError reports a photograph that could not be screened
func NewProcessingError(message string, cause error) *AppError {
	return New(ErrorTypeProcessing, message, cause)
}

// NewTimeoutError reports a fetch or analysis that ran out of time
func NewTimeoutError(message string, cause error) *AppError {
	return New(ErrorTypeTimeout, message, cause)
}

func NewInternalError(message string, cause error) *AppError {
	return New(ErrorTypeInternal, message, cause)
}

func NewNotFoundError(message string, cause error) *AppError {
	return New(ErrorTypeNotFound, message, cause)
}

// As finds the first AppError in err's chain
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsType checks if the error is of a specific type
func IsType(err error, errorType ErrorType) bool {
	appErr, ok := As(err)
	return ok && appErr.Type == errorType
}

// GetStatusCode extracts the HTTP status code from an error
func GetStatusCode(err error) int {
	if appErr, ok := As(err); ok {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}
