package analyzer

import (
	"errors"
	"image"
	"image/color"
	"math"
	"reflect"
	"sync"
	"testing"
)

func newTestAnalyzer(t *testing.T) *coreAnalyzer {
	t.Helper()
	a, err := NewImageAnalyzer(DefaultOptions())
	if err != nil {
		t.Fatalf("Failed to create analyzer: %v", err)
	}
	return a.(*coreAnalyzer)
}

// createTestImage draws a bright figure with a bent top on a dark background
func createTestImage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: 30, G: 40, B: 50, A: 255})
		}
	}
	for y := height / 4; y < height*3/4; y++ {
		shift := 0
		if y < height/2 {
			shift = (height/2 - y) / 2
		}
		for x := width/3 + shift; x < width*2/3+shift && x < width; x++ {
			img.Set(x, y, color.RGBA{R: 220, G: 200, B: 180, A: 255})
		}
	}
	return img
}

func TestBendFromMask_Square(t *testing.T) {
	ca := newTestAnalyzer(t)
	mask := newMask(40, 40, image.Rect(10, 10, 30, 30))

	result, err := ca.bendFromMask(mask)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(result.Polygon) != 4 {
		t.Errorf("Expected 4 polygon vertices, got %v", result.Polygon)
	}
	if math.Abs(result.Score-2.25) > 1e-9 {
		t.Errorf("Expected score 2.25, got %f", result.Score)
	}
	if result.Evaluated != 2 {
		t.Errorf("Expected 2 evaluated triples, got %d", result.Evaluated)
	}
	if result.Bounds != image.Rect(10, 10, 30, 30) {
		t.Errorf("Expected bounds (10,10)-(30,30), got %v", result.Bounds)
	}
	if result.ContourArea != 19*19 {
		t.Errorf("Expected contour area 361, got %f", result.ContourArea)
	}
}

func TestPostureFromMask_Square(t *testing.T) {
	ca := newTestAnalyzer(t)
	mask := newMask(40, 40, image.Rect(10, 10, 30, 30))

	result, err := ca.postureFromMask(mask)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result.Score() != 0 {
		t.Errorf("Expected symmetric square to score 0, got %f", result.Score())
	}
}

func TestEmptyMask_NoContourFound(t *testing.T) {
	ca := newTestAnalyzer(t)
	mask := newMask(16, 16)

	if _, err := ca.bendFromMask(mask); !errors.Is(err, ErrNoContourFound) {
		t.Errorf("Expected ErrNoContourFound for bend, got %v", err)
	}
	if _, err := ca.postureFromMask(mask); !errors.Is(err, ErrNoContourFound) {
		t.Errorf("Expected ErrNoContourFound for posture, got %v", err)
	}
}

func TestAnalyze_ZeroDimension(t *testing.T) {
	ca := newTestAnalyzer(t)
	empty := image.NewRGBA(image.Rect(0, 0, 0, 0))

	if _, err := ca.AnalyzeBend(empty); !errors.Is(err, ErrInvalidImageFormat) {
		t.Errorf("Expected ErrInvalidImageFormat for bend, got %v", err)
	}
	if _, err := ca.AnalyzePosture(empty); !errors.Is(err, ErrInvalidImageFormat) {
		t.Errorf("Expected ErrInvalidImageFormat for posture, got %v", err)
	}
	if _, err := ca.AnalyzeBendRaster(Raster{Channels: 3}); !errors.Is(err, ErrInvalidImageFormat) {
		t.Errorf("Expected ErrInvalidImageFormat for raster, got %v", err)
	}
}

func TestAnalyzeRaster_HugeDimensions(t *testing.T) {
	ca := newTestAnalyzer(t)
	huge := Raster{Width: 1 << 32, Height: 1 << 32, Channels: 1}

	if _, err := ca.AnalyzeBendRaster(huge); !errors.Is(err, ErrInvalidImageFormat) {
		t.Errorf("Expected ErrInvalidImageFormat for bend, got %v", err)
	}
	if _, err := ca.AnalyzePostureRaster(huge); !errors.Is(err, ErrInvalidImageFormat) {
		t.Errorf("Expected ErrInvalidImageFormat for posture, got %v", err)
	}
}

func TestAnalyze_Deterministic(t *testing.T) {
	ca := newTestAnalyzer(t)
	img := createTestImage(80, 120)

	first, err := ca.AnalyzeBend(img)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	second, _ := ca.AnalyzeBend(img)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Expected identical bend results, got %+v and %+v", first, second)
	}

	p1, err := ca.AnalyzePosture(img)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	p2, _ := ca.AnalyzePosture(img)
	if p1 != p2 {
		t.Errorf("Expected identical posture results, got %+v and %+v", p1, p2)
	}
	for _, v := range []float64{p1.Metrics.ShoulderDifference, p1.Metrics.HipDifference, p1.Metrics.SpineAlignment} {
		if v < 0 || v > 1 {
			t.Errorf("Expected posture metric in [0, 1], got %f", v)
		}
	}
	if first.Score < 0 {
		t.Errorf("Expected non-negative score, got %f", first.Score)
	}
}

func TestAnalyze_ConcurrentCalls(t *testing.T) {
	ca := newTestAnalyzer(t)
	img := createTestImage(60, 90)
	want, err := ca.AnalyzeBend(img)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := ca.AnalyzeBend(img)
			if err != nil || !reflect.DeepEqual(got, want) {
				t.Errorf("Expected concurrent result %+v, got %+v (err %v)", want, got, err)
			}
		}()
	}
	wg.Wait()
}

func TestAnalyzeRaster_BGRMatchesRGB(t *testing.T) {
	ca := newTestAnalyzer(t)
	img := createTestImage(64, 96)

	rgb := Raster{Width: 64, Height: 96, Channels: 3, Order: OrderRGB}
	bgr := Raster{Width: 64, Height: 96, Channels: 3, Order: OrderBGR}
	for y := 0; y < 96; y++ {
		for x := 0; x < 64; x++ {
			c := img.RGBAAt(x, y)
			rgb.Pix = append(rgb.Pix, c.R, c.G, c.B)
			bgr.Pix = append(bgr.Pix, c.B, c.G, c.R)
		}
	}

	fromImage, err := ca.AnalyzeBend(img)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	fromRGB, err := ca.AnalyzeBendRaster(rgb)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	fromBGR, err := ca.AnalyzeBendRaster(bgr)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !reflect.DeepEqual(fromRGB, fromBGR) || !reflect.DeepEqual(fromRGB, fromImage) {
		t.Errorf("Expected identical results, got image %+v, rgb %+v, bgr %+v", fromImage, fromRGB, fromBGR)
	}

	postureRGB, _ := ca.AnalyzePostureRaster(rgb)
	postureBGR, _ := ca.AnalyzePostureRaster(bgr)
	if postureRGB != postureBGR {
		t.Errorf("Expected identical posture results, got %+v and %+v", postureRGB, postureBGR)
	}
}

type panickingPreprocessor struct{}

func (panickingPreprocessor) Preprocess(*image.Gray) *image.Gray { panic("boom") }

func TestAnalyze_RecoversPanic(t *testing.T) {
	ca := newTestAnalyzer(t)
	ca.preprocessor = panickingPreprocessor{}

	if _, err := ca.AnalyzeBend(createTestImage(10, 10)); !errors.Is(err, ErrAnalysisFailed) {
		t.Errorf("Expected ErrAnalysisFailed, got %v", err)
	}
	if _, err := ca.AnalyzePosture(createTestImage(10, 10)); !errors.Is(err, ErrAnalysisFailed) {
		t.Errorf("Expected ErrAnalysisFailed, got %v", err)
	}
}

func TestIsFailure(t *testing.T) {
	if !IsFailure(ErrNoContourFound) || !IsFailure(ErrInvalidImageFormat) || !IsFailure(ErrAnalysisFailed) {
		t.Error("Expected pipeline errors to be recognised")
	}
	if IsFailure(errors.New("other")) {
		t.Error("Expected unrelated error not to be recognised")
	}
}
