package validation

// QualityThresholds defines configurable thresholds for capture validation
type QualityThresholds struct {
	// Sharpness thresholds
	MinLaplacianVariance float64

	// Brightness thresholds (mean gray level, 0-255)
	MinBrightness float64
	MaxBrightness float64

	// Minimum gray level standard deviation; flat frames hide the silhouette
	MinContrast float64

	// Resolution thresholds
	MinWidth  int
	MinHeight int
}

// DefaultQualityThresholds returns the default capture thresholds
func DefaultQualityThresholds() QualityThresholds {
	return QualityThresholds{
		MinLaplacianVariance: 10.0,
		MinBrightness:        40.0,
		MaxBrightness:        230.0,
		MinContrast:          8.0,
		MinWidth:             64,
		MinHeight:            64,
	}
}

// QualityValidator checks whether a photograph is fit for screening
type QualityValidator struct {
	thresholds QualityThresholds
}

// NewQualityValidator creates a new quality validator with default thresholds
func NewQualityValidator() *QualityValidator {
	return &QualityValidator{
		thresholds: DefaultQualityThresholds(),
	}
}

// NewQualityValidatorWithThresholds creates a quality validator with custom thresholds
func NewQualityValidatorWithThresholds(thresholds QualityThresholds) *QualityValidator {
	return &QualityValidator{
		thresholds: thresholds,
	}
}

// Severity levels of a QualityIssue
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// QualityIssue represents a quality validation issue
type QualityIssue struct {
	Type        string  `json:"type"`
	Message     string  `json:"message"`
	Severity    string  `json:"severity"`
	ActualValue float64 `json:"actual_value,omitempty"`
	Threshold   float64 `json:"threshold,omitempty"`
}

// CaptureMetrics represents the measurements needed for capture validation
type CaptureMetrics struct {
	Width        int
	Height       int
	Brightness   float64
	Contrast     float64
	LaplacianVar float64
}

// ValidateCapture reports problems that make a screening score unreliable
func (qv *QualityValidator) ValidateCapture(metrics CaptureMetrics) []QualityIssue {
	var issues []QualityIssue

	// 1. Resolution
	if metrics.Width < qv.thresholds.MinWidth || metrics.Height < qv.thresholds.MinHeight {
		issues = append(issues, QualityIssue{
			Type:        "low_resolution",
			Message:     "Image is too small. Move closer or use a higher camera resolution.",
			Severity:    SeverityError,
			ActualValue: float64(min(metrics.Width, metrics.Height)),
			Threshold:   float64(min(qv.thresholds.MinWidth, qv.thresholds.MinHeight)),
		})
	}

	// 2. Brightness
	if metrics.Brightness < qv.thresholds.MinBrightness {
		issues = append(issues, QualityIssue{
			Type:        "too_dark",
			Message:     "Image is too dark. Use more light.",
			Severity:    SeverityWarning,
			ActualValue: metrics.Brightness,
			Threshold:   qv.thresholds.MinBrightness,
		})
	} else if metrics.Brightness > qv.thresholds.MaxBrightness {
		issues = append(issues, QualityIssue{
			Type:        "too_bright",
			Message:     "Image has too much light. Move to a less bright area.",
			Severity:    SeverityWarning,
			ActualValue: metrics.Brightness,
			Threshold:   qv.thresholds.MaxBrightness,
		})
	}

	// 3. Contrast
	if metrics.Contrast < qv.thresholds.MinContrast {
		issues = append(issues, QualityIssue{
			Type:        "low_contrast",
			Message:     "The body does not stand out from the background. Use a plain, contrasting backdrop.",
			Severity:    SeverityWarning,
			ActualValue: metrics.Contrast,
			Threshold:   qv.thresholds.MinContrast,
		})
	}

	// 4. Sharpness
	if metrics.LaplacianVar < qv.thresholds.MinLaplacianVariance {
		issues = append(issues, QualityIssue{
			Type:        "blurriness",
			Message:     "Image is blurry. Please hold the camera steady and try again.",
			Severity:    SeverityWarning,
			ActualValue: metrics.LaplacianVar,
			Threshold:   qv.thresholds.MinLaplacianVariance,
		})
	}

	return issues
}

// ConvertIssuesToMessages converts quality issues to plain messages
func (qv *QualityValidator) ConvertIssuesToMessages(issues []QualityIssue) []string {
	var messages []string
	for _, issue := range issues {
		messages = append(messages, issue.Message)
	}
	return messages
}

// HasCriticalIssues checks if there are any critical (error severity) issues
func (qv *QualityValidator) HasCriticalIssues(issues []QualityIssue) bool {
	for _, issue := range issues {
		if issue.Severity == SeverityError {
			return true
		}
	}
	return false
}
