package analyzer

import (
	"image"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// Curvature is the bend-test measurement taken from a simplified polygon
type Curvature struct {
	Score     float64 // MaxAngle / reference angle, not clamped
	MaxAngle  float64 // degrees
	Evaluated int     // vertex triples that produced an angle
	Skipped   int     // triples dropped because an edge had zero length
}

// curvatureEstimator scores how sharply a polygon turns when walked top to bottom
type curvatureEstimator struct {
	referenceAngle float64
}

func newCurvatureEstimator(opts AnalysisOptions) *curvatureEstimator {
	return &curvatureEstimator{referenceAngle: opts.ReferenceAngle}
}

// Estimate sorts the vertices by y and returns the largest turning angle between
// consecutive edges. Fewer than three vertices score zero.
func (ce *curvatureEstimator) Estimate(polygon []image.Point) Curvature {
	var result Curvature
	if len(polygon) < 3 {
		return result
	}

	sorted := append([]image.Point(nil), polygon...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Y < sorted[j].Y })

	for i := 0; i+2 < len(sorted); i++ {
		angle, ok := turningAngle(sorted[i], sorted[i+1], sorted[i+2])
		if !ok {
			result.Skipped++
			continue
		}
		result.Evaluated++
		result.MaxAngle = math.Max(result.MaxAngle, angle)
	}

	result.Score = result.MaxAngle / ce.referenceAngle
	return result
}

// turningAngle returns the angle in degrees between p2-p1 and p3-p2. It reports
// false when either vector has zero length.
func turningAngle(p1, p2, p3 image.Point) (float64, bool) {
	v1 := []float64{float64(p2.X - p1.X), float64(p2.Y - p1.Y)}
	v2 := []float64{float64(p3.X - p2.X), float64(p3.Y - p2.Y)}

	n1, n2 := floats.Norm(v1, 2), floats.Norm(v2, 2)
	if n1 == 0 || n2 == 0 {
		return 0, false
	}

	cos := floats.Dot(v1, v2) / (n1 * n2)
	cos = math.Max(-1, math.Min(1, cos))
	return math.Acos(cos) * 180 / math.Pi, true
}
