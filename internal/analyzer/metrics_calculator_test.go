package analyzer

import (
	"errors"
	"image"
	"image/color"
	"math"
	"testing"
)

func uniformImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestMeasureCapture_Uniform(t *testing.T) {
	m, err := MeasureCapture(uniformImage(50, 40, color.RGBA{128, 128, 128, 255}))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if m.Width != 50 || m.Height != 40 {
		t.Errorf("Expected 50x40, got %dx%d", m.Width, m.Height)
	}
	if math.Abs(m.Brightness-128) > 0.5 {
		t.Errorf("Expected brightness ~128, got %f", m.Brightness)
	}
	if m.Contrast != 0 {
		t.Errorf("Expected zero contrast, got %f", m.Contrast)
	}
	if m.LaplacianVar != 0 {
		t.Errorf("Expected zero Laplacian variance for a flat image, got %f", m.LaplacianVar)
	}
}

func TestMeasureCapture_Checkerboard(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 20, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			if (x+y)%2 == 0 {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}

	m, err := MeasureCapture(img)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if m.LaplacianVar < 1000 {
		t.Errorf("Expected high Laplacian variance for sharp edges, got %f", m.LaplacianVar)
	}
	if math.Abs(m.Contrast-127.5) > 1e-9 {
		t.Errorf("Expected contrast 127.5, got %f", m.Contrast)
	}
}

func TestMeasureCapture_Invalid(t *testing.T) {
	if _, err := MeasureCapture(image.NewGray(image.Rect(0, 0, 0, 3))); !errors.Is(err, ErrInvalidImageFormat) {
		t.Errorf("Expected ErrInvalidImageFormat, got %v", err)
	}
}

func TestLaplacianVariance_SmallImage(t *testing.T) {
	if v := laplacianVariance(image.NewGray(image.Rect(0, 0, 2, 2))); v != 0 {
		t.Errorf("Expected 0 for images without interior pixels, got %f", v)
	}
}
