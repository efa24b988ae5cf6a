package analyzer

import (
	"image"

	"gonum.org/v1/gonum/stat"
)

// CaptureMetrics describes how usable a photograph is before any screening score is trusted
type CaptureMetrics struct {
	Width        int     `json:"width"`
	Height       int     `json:"height"`
	Brightness   float64 `json:"brightness"`         // mean gray level, 0-255
	Contrast     float64 `json:"contrast"`           // gray level standard deviation
	LaplacianVar float64 `json:"laplacian_variance"` // sharpness
}

// MeasureCapture computes exposure and sharpness metrics of img
func MeasureCapture(img image.Image) (CaptureMetrics, error) {
	gray, err := Normalize(img)
	if err != nil {
		return CaptureMetrics{}, err
	}

	width, height := gray.Rect.Dx(), gray.Rect.Dy()
	values := make([]float64, len(gray.Pix))
	for i, v := range gray.Pix {
		values[i] = float64(v)
	}
	brightness, contrast := stat.PopMeanStdDev(values, nil)

	return CaptureMetrics{
		Width:        width,
		Height:       height,
		Brightness:   brightness,
		Contrast:     contrast,
		LaplacianVar: laplacianVariance(gray),
	}, nil
}

// laplacianVariance applies the 4-neighbour Laplacian kernel to the interior pixels
// and returns the variance of the response
func laplacianVariance(gray *image.Gray) float64 {
	width, height := gray.Rect.Dx(), gray.Rect.Dy()
	if width < 3 || height < 3 {
		return 0
	}

	// Laplacian kernel: [0, 1, 0; 1, -4, 1; 0, 1, 0]
	data := make([]float64, 0, (width-2)*(height-2))
	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			center := float64(gray.Pix[y*gray.Stride+x])
			top := float64(gray.Pix[(y-1)*gray.Stride+x])
			bottom := float64(gray.Pix[(y+1)*gray.Stride+x])
			left := float64(gray.Pix[y*gray.Stride+x-1])
			right := float64(gray.Pix[y*gray.Stride+x+1])

			data = append(data, -4*center+top+bottom+left+right)
		}
	}
	return stat.Variance(data, nil)
}
