package models

import (
	"fmt"
	"time"
)

// TestType identifies which screening a photograph was taken for
type TestType string

const (
	// TestAdams is the Adams forward-bend test scored by spinal curvature
	TestAdams TestType = "adams_test"
	// TestPosture is the standing posture check scored by left/right asymmetry
	TestPosture TestType = "posture_check"
)

// ParseTestType validates a test type name
func ParseTestType(name string) (TestType, error) {
	switch t := TestType(name); t {
	case TestAdams, TestPosture:
		return t, nil
	default:
		return "", fmt.Errorf("unknown test type %q (want %s or %s)", name, TestAdams, TestPosture)
	}
}

// Diagnosis is one stored screening outcome
type Diagnosis struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	TestType  TestType  `json:"test_type"`
	Score     float64   `json:"score"`
	ImageRef  string    `json:"image_ref,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Point is a pixel coordinate
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Box is an upright bounding rectangle
type Box struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// BendMetrics is the detail of an Adams forward-bend analysis
type BendMetrics struct {
	CurvatureScore   float64 `json:"curvature_score"`
	MaxAngle         float64 `json:"max_angle_degrees"`
	TriplesEvaluated int     `json:"triples_evaluated"`
	TriplesSkipped   int     `json:"triples_skipped"`
	Polygon          []Point `json:"polygon"`
}

// PostureMetrics is the detail of a standing posture analysis
type PostureMetrics struct {
	ShoulderDifference float64 `json:"shoulder_difference"`
	HipDifference      float64 `json:"hip_difference"`
	SpineAlignment     float64 `json:"spine_alignment"`
	Overall            float64 `json:"overall"`
}

// CaptureQuality reports exposure and sharpness of the submitted photograph
type CaptureQuality struct {
	Width        int     `json:"width"`
	Height       int     `json:"height"`
	Brightness   float64 `json:"brightness"`
	Contrast     float64 `json:"contrast"`
	LaplacianVar float64 `json:"laplacian_variance"`
	IsValid      bool    `json:"is_valid"`
}

// Exercise is one recommended exercise
type Exercise struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	DurationMinutes int    `json:"duration_minutes"`
	Image           string `json:"image,omitempty"`
}

// Recommendation is the exercise program picked for a score
type Recommendation struct {
	Score        float64    `json:"score"`
	Tier         string     `json:"tier"`
	TotalMinutes int        `json:"total_minutes"`
	Exercises    []Exercise `json:"exercises"`
}
