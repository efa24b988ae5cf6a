// Command spinecheck screens a single photograph from the command line and prints
// the result as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"

	"go-spine-inspector/internal/analyzer"
	"go-spine-inspector/internal/config"
	"go-spine-inspector/internal/exercise"
	"go-spine-inspector/internal/factory"
	"go-spine-inspector/internal/logger"
	"go-spine-inspector/internal/render"
	"go-spine-inspector/internal/repository"
	"go-spine-inspector/internal/service"
	"go-spine-inspector/internal/storage"
	"go-spine-inspector/internal/strategy"
	"go-spine-inspector/pkg/models"
	"go-spine-inspector/pkg/validation"
)

// capturingRepository remembers the last photograph so the overlay can be drawn without a second fetch
type capturingRepository struct {
	repository.ImageRepository
	mu   sync.Mutex
	last image.Image
}

func (r *capturingRepository) FetchImage(ctx context.Context, ref string) (image.Image, error) {
	img, err := r.ImageRepository.FetchImage(ctx, ref)
	r.mu.Lock()
	r.last = img
	r.mu.Unlock()
	return img, err
}

func main() {
	in := flag.String("in", "", "photograph: local path, file://, http(s):// or azblob:// reference")
	test := flag.String("test", string(models.TestAdams), "test type: adams_test or posture_check")
	debug := flag.String("debug", "", "write a debug overlay to this path (.png, .jpg or .webp)")
	quality := flag.Int("quality", 90, "jpeg/webp quality of the debug overlay")
	flag.Parse()

	if err := run(*in, *test, *debug, *quality); err != nil {
		fmt.Fprintln(os.Stderr, "spinecheck:", err)
		os.Exit(1)
	}
}

func run(in, test, debugPath string, quality int) error {
	if in == "" {
		return fmt.Errorf("-in is required")
	}
	testType, err := models.ParseTestType(test)
	if err != nil {
		return err
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}
	cfg.Sources.AllowFiles = true

	// Keep stdout for the JSON result
	logger.SetOutput(os.Stderr)
	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		return err
	}

	ref := in
	if storage.SchemeOf(in) == "" {
		abs, err := filepath.Abs(in)
		if err != nil {
			return err
		}
		ref = storage.FileScheme + "://" + filepath.ToSlash(abs)
	}

	components := factory.NewComponentFactory(cfg)
	a, err := components.CreateAnalyzer()
	if err != nil {
		return err
	}
	images, err := components.CreateImageRepository()
	if err != nil {
		return err
	}
	capturing := &capturingRepository{ImageRepository: images}

	pool := analyzer.NewWorkerPool(1)
	pool.Start()
	defer pool.Close()

	svc := service.NewScreeningService(
		capturing,
		repository.NewMemoryDiagnosisRepository(),
		strategy.NewDefaultRegistry(a),
		exercise.NewCatalog(),
		validation.NewQualityValidator(),
		nil,
		pool,
		service.Options{
			FetchTimeout:    cfg.ImageFetchTimeout,
			AnalysisTimeout: cfg.AnalysisTimeout,
			MaxUploadBytes:  storage.DefaultMaxImageBytes,
		},
	)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	defer cancel()

	resp, err := svc.Screen(ctx, testType, ref, "")
	if err != nil {
		return err
	}

	if debugPath != "" {
		capturing.mu.Lock()
		img := capturing.last
		capturing.mu.Unlock()
		if err := render.Save(render.Draw(img, overlayFor(resp, cfg.Analysis)), debugPath, quality); err != nil {
			return fmt.Errorf("failed to write debug overlay: %w", err)
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

// overlayFor converts a screening response back into drawable geometry
func overlayFor(resp *models.ScreeningResponse, opts analyzer.AnalysisOptions) render.Overlay {
	bounds := image.Rect(resp.Bounds.X, resp.Bounds.Y, resp.Bounds.X+resp.Bounds.Width, resp.Bounds.Y+resp.Bounds.Height)
	o := render.Overlay{Bounds: bounds}

	if resp.Bend != nil {
		o.Polygon = make([]image.Point, len(resp.Bend.Polygon))
		for i, p := range resp.Bend.Polygon {
			o.Polygon[i] = image.Pt(p.X, p.Y)
		}
	}
	if resp.Posture != nil {
		tl, tr, bl, br, spine := analyzer.PostureRegions(bounds, opts.SpineStripHalfWidth)
		o.Regions = []image.Rectangle{tl, tr, bl, br, spine}
	}
	return o
}
