package models

// ScreeningRequest asks for one photograph to be screened
type ScreeningRequest struct {
	URL    string `json:"url" binding:"required"`
	UserID string `json:"user_id,omitempty"`
}

// BatchScreeningRequest asks for several photographs of the same test type to be screened
type BatchScreeningRequest struct {
	URLs   []string `json:"urls" binding:"required,min=1,max=20,dive,required"`
	UserID string   `json:"user_id,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// ScreeningResponse is the outcome of screening one photograph
type ScreeningResponse struct {
	DiagnosisID       string             `json:"diagnosis_id,omitempty"`
	UserID            string             `json:"user_id,omitempty"`
	TestType          TestType           `json:"test_type"`
	ImageRef          string             `json:"image_ref"`
	Timestamp         string             `json:"timestamp"`
	ProcessingTimeSec float64            `json:"processing_time_sec"`
	Timings           map[string]float64 `json:"timings_sec,omitempty"`
	Score             float64            `json:"score"`
	Bounds            Box                `json:"bounds"`
	Bend              *BendMetrics       `json:"bend,omitempty"`
	Posture           *PostureMetrics    `json:"posture,omitempty"`
	Capture           *CaptureQuality    `json:"capture,omitempty"`
	Warnings          []string           `json:"warnings,omitempty"`
	Recommendation    *Recommendation    `json:"recommendation,omitempty"`
}

// BatchItem is the outcome for one URL of a batch
type BatchItem struct {
	URL    string             `json:"url"`
	Result *ScreeningResponse `json:"result,omitempty"`
	Error  *ErrorResponse     `json:"error,omitempty"`
}

// BatchScreeningResponse collects the per-URL outcomes of a batch in request order
type BatchScreeningResponse struct {
	TestType  TestType    `json:"test_type"`
	Succeeded int         `json:"succeeded"`
	Failed    int         `json:"failed"`
	Items     []BatchItem `json:"items"`
}

// HistoryResponse lists a user's diagnoses, newest first
type HistoryResponse struct {
	UserID    string      `json:"user_id"`
	Diagnoses []Diagnosis `json:"diagnoses"`
}
