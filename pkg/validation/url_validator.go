package validation

import (
	"net/url"
	"slices"
	"strings"

	apperrors "go-spine-inspector/internal/errors"
)

// DefaultSchemes are the image sources the service accepts out of the box
var DefaultSchemes = []string{"http", "https", "azblob"}

// URLValidator handles URL validation logic
type URLValidator struct {
	allowedSchemes []string
	allowedHosts   []string
}

// NewURLValidator creates a new URL validator with default settings
func NewURLValidator() *URLValidator {
	return &URLValidator{
		allowedSchemes: append([]string(nil), DefaultSchemes...),
		allowedHosts:   []string{}, // empty means all hosts allowed
	}
}

// NewURLValidatorWithOptions creates a URL validator with custom options
func NewURLValidatorWithOptions(schemes []string, hosts []string) *URLValidator {
	return &URLValidator{
		allowedSchemes: schemes,
		allowedHosts:   hosts,
	}
}

// ValidateImageURL validates if the provided image reference is acceptable. Host
// restrictions apply to http(s) URLs; for azblob the host is the container name.
func (v *URLValidator) ValidateImageURL(imageURL string) error {
	if strings.TrimSpace(imageURL) == "" {
		return apperrors.NewValidationError("URL cannot be empty", nil)
	}

	parsedURL, err := url.Parse(imageURL)
	if err != nil {
		return apperrors.NewValidationError("Invalid URL format", err)
	}

	if !v.isSchemeAllowed(parsedURL.Scheme) {
		return apperrors.NewValidationError("URL scheme not allowed", nil)
	}

	if strings.EqualFold(parsedURL.Scheme, "file") {
		if parsedURL.Path == "" {
			return apperrors.NewValidationError("file URL must have a path", nil)
		}
		return nil
	}

	if parsedURL.Host == "" {
		return apperrors.NewValidationError("URL must have a valid host", nil)
	}

	isWeb := strings.EqualFold(parsedURL.Scheme, "http") || strings.EqualFold(parsedURL.Scheme, "https")
	if isWeb && !v.isHostAllowed(parsedURL.Hostname()) {
		return apperrors.NewValidationError("URL host not allowed", nil)
	}

	return nil
}

// isSchemeAllowed reports whether scheme is listed, ignoring case
func (v *URLValidator) isSchemeAllowed(scheme string) bool {
	return slices.ContainsFunc(v.allowedSchemes, func(allowed string) bool {
		return strings.EqualFold(scheme, allowed)
	})
}

// isHostAllowed reports whether host may serve photographs. An empty list allows every host.
func (v *URLValidator) isHostAllowed(host string) bool {
	return len(v.allowedHosts) == 0 || slices.Contains(v.allowedHosts, host)
}
