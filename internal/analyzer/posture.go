package analyzer

import (
	"image"
	"math"

	"gonum.org/v1/gonum/stat"
)

// PostureMetrics is the asymmetry profile of a standing pose. Every value is in [0, 1].
type PostureMetrics struct {
	ShoulderDifference float64 `json:"shoulder_difference"`
	HipDifference      float64 `json:"hip_difference"`
	SpineAlignment     float64 `json:"spine_alignment"`
}

// Overall is the mean of the three metrics, used as the single posture score
func (m PostureMetrics) Overall() float64 {
	return (m.ShoulderDifference + m.HipDifference + m.SpineAlignment) / 3
}

// postureAnalyzer samples the mask inside the silhouette's bounding box
type postureAnalyzer struct {
	stripHalfWidth int
}

func newPostureAnalyzer(opts AnalysisOptions) *postureAnalyzer {
	return &postureAnalyzer{stripHalfWidth: opts.SpineStripHalfWidth}
}

// Regions returns the sampling rectangles for box: top-left, top-right,
// bottom-left, bottom-right and the spine strip. They are not clipped.
func (pa *postureAnalyzer) Regions(box image.Rectangle) (tl, tr, bl, br, spine image.Rectangle) {
	return PostureRegions(box, pa.stripHalfWidth)
}

// PostureRegions splits a silhouette box into the shoulder quadrants (top quarter),
// the hip quadrants (bottom quarter) and the vertical spine strip around the centre line.
func PostureRegions(box image.Rectangle, stripHalfWidth int) (tl, tr, bl, br, spine image.Rectangle) {
	x, y, w, h := box.Min.X, box.Min.Y, box.Dx(), box.Dy()
	midX := x + w/2

	tl = image.Rect(x, y, midX, y+h/4)
	tr = image.Rect(midX, y, x+w, y+h/4)
	bl = image.Rect(x, y+3*h/4, midX, y+h)
	br = image.Rect(midX, y+3*h/4, x+w, y+h)
	spine = image.Rect(midX-stripHalfWidth, y, midX+stripHalfWidth, y+h)
	return
}

// Measure computes the posture metrics of mask within box
func (pa *postureAnalyzer) Measure(mask *image.Gray, box image.Rectangle) PostureMetrics {
	tl, tr, bl, br, spine := pa.Regions(box)

	shoulder := math.Abs(regionMean(mask, tl)-regionMean(mask, tr)) / 255
	hip := math.Abs(regionMean(mask, bl)-regionMean(mask, br)) / 255
	_, std := regionMeanStd(mask, spine)

	return PostureMetrics{
		ShoulderDifference: math.Min(shoulder, 1),
		HipDifference:      math.Min(hip, 1),
		SpineAlignment:     math.Min(std/255, 1),
	}
}

func regionMean(mask *image.Gray, r image.Rectangle) float64 {
	mean, _ := regionMeanStd(mask, r)
	return mean
}

// regionMeanStd returns the mean and population standard deviation of the pixels
// in r clipped to the mask. An empty region yields zeros.
func regionMeanStd(mask *image.Gray, r image.Rectangle) (float64, float64) {
	r = r.Intersect(mask.Rect)
	if r.Empty() {
		return 0, 0
	}
	values := make([]float64, 0, r.Dx()*r.Dy())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			values = append(values, float64(mask.GrayAt(x, y).Y))
		}
	}
	return stat.PopMeanStdDev(values, nil)
}
