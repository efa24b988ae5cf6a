package analyzer

import "image"

// BendResult is the outcome of an Adams forward-bend analysis
type BendResult struct {
	Curvature
	Polygon     []image.Point   // simplified boundary, contour order
	Bounds      image.Rectangle // bounding box of the dominant contour
	ContourArea float64
}

// PostureResult is the outcome of a standing posture analysis
type PostureResult struct {
	Metrics     PostureMetrics
	Bounds      image.Rectangle
	ContourArea float64
}

// Score is the single scalar stored for a posture check
func (r PostureResult) Score() float64 {
	return r.Metrics.Overall()
}
