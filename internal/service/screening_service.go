package service

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"sync"
	"time"

	"github.com/gofrs/uuid"

	"go-spine-inspector/internal/analyzer"
	apperrors "go-spine-inspector/internal/errors"
	"go-spine-inspector/internal/exercise"
	"go-spine-inspector/internal/observer"
	"go-spine-inspector/internal/repository"
	"go-spine-inspector/internal/storage"
	"go-spine-inspector/internal/strategy"
	"go-spine-inspector/pkg/models"
	"go-spine-inspector/pkg/validation"
)

// ScreeningService turns photographs into stored diagnoses and exercise programs
type ScreeningService interface {
	// Screen fetches the photograph at imageRef and scores it for testType
	Screen(ctx context.Context, testType models.TestType, imageRef, userID string) (*models.ScreeningResponse, error)

	// ScreenUpload scores an uploaded photograph
	ScreenUpload(ctx context.Context, testType models.TestType, r io.Reader, filename, userID string) (*models.ScreeningResponse, error)

	// ScreenBatch scores several photographs concurrently; items keep request order
	ScreenBatch(ctx context.Context, testType models.TestType, imageRefs []string, userID string) (*models.BatchScreeningResponse, error)

	// History lists a user's diagnoses, newest first
	History(ctx context.Context, userID string, limit int) (*models.HistoryResponse, error)

	// Recommend returns the exercise program for a score
	Recommend(score float64) models.Recommendation

	// ValidateImageRef validates the image reference
	ValidateImageRef(imageRef string) error
}

// Options tunes the service's timeouts and limits
type Options struct {
	FetchTimeout    time.Duration
	AnalysisTimeout time.Duration
	MaxUploadBytes  int64
	MaxBatchItems   int
}

// DefaultMaxBatchItems bounds how many references one batch request may carry
const DefaultMaxBatchItems = 20

// DefaultOptions returns the limits used when none are configured
func DefaultOptions() Options {
	return Options{
		FetchTimeout:    15 * time.Second,
		AnalysisTimeout: 20 * time.Second,
		MaxUploadBytes:  storage.DefaultMaxImageBytes,
		MaxBatchItems:   DefaultMaxBatchItems,
	}
}

// screeningService implements ScreeningService
type screeningService struct {
	imageRepo  repository.ImageRepository
	diagnoses  repository.DiagnosisRepository
	strategies *strategy.Registry
	catalog    *exercise.Catalog
	quality    *validation.QualityValidator
	events     observer.Subject
	pool       *analyzer.WorkerPool
	opts       Options
	now        func() time.Time
}

// NewScreeningService creates a new screening service. pool must be started and is
// shared by all batches; events may be nil.
func NewScreeningService(
	imageRepository repository.ImageRepository,
	diagnosisRepository repository.DiagnosisRepository,
	strategies *strategy.Registry,
	catalog *exercise.Catalog,
	quality *validation.QualityValidator,
	events observer.Subject,
	pool *analyzer.WorkerPool,
	opts Options,
) ScreeningService {
	if events == nil {
		events = observer.NewEventPublisher()
	}
	if opts.MaxBatchItems <= 0 {
		opts.MaxBatchItems = DefaultMaxBatchItems
	}
	return &screeningService{
		imageRepo:  imageRepository,
		diagnoses:  diagnosisRepository,
		strategies: strategies,
		catalog:    catalog,
		quality:    quality,
		events:     events,
		pool:       pool,
		opts:       opts,
		now:        time.Now,
	}
}

// Screen fetches and scores one photograph
func (s *screeningService) Screen(ctx context.Context, testType models.TestType, imageRef, userID string) (*models.ScreeningResponse, error) {
	start := s.now()
	s.notify(ctx, observer.ScreeningEvent{EventType: observer.ScreeningStarted, TestType: string(testType), UserID: userID, ImageRef: imageRef})

	if err := s.ValidateImageRef(imageRef); err != nil {
		return nil, s.fail(ctx, testType, imageRef, userID, start, apperrors.NewValidationError("invalid image URL", err))
	}

	img, fetchTime, err := s.fetch(ctx, testType, imageRef)
	if err != nil {
		return nil, s.fail(ctx, testType, imageRef, userID, start, err)
	}

	resp, err := s.screenImage(ctx, testType, img, imageRef, userID, start)
	if err != nil {
		return nil, s.fail(ctx, testType, imageRef, userID, start, err)
	}
	resp.Timings["fetch"] = fetchTime.Seconds()
	return resp, nil
}

// ScreenUpload decodes and scores an uploaded photograph
func (s *screeningService) ScreenUpload(ctx context.Context, testType models.TestType, r io.Reader, filename, userID string) (*models.ScreeningResponse, error) {
	start := s.now()
	imageRef := "upload:" + filename
	s.notify(ctx, observer.ScreeningEvent{EventType: observer.ScreeningStarted, TestType: string(testType), UserID: userID, ImageRef: imageRef})

	img, _, err := storage.DecodeImage(r, s.opts.MaxUploadBytes)
	if err != nil {
		return nil, s.fail(ctx, testType, imageRef, userID, start, classifySourceError(err))
	}
	decodeTime := s.now().Sub(start)

	resp, err := s.screenImage(ctx, testType, img, imageRef, userID, start)
	if err != nil {
		return nil, s.fail(ctx, testType, imageRef, userID, start, err)
	}
	resp.Timings["decode"] = decodeTime.Seconds()
	return resp, nil
}

// ScreenBatch fans the references out on the shared worker pool
func (s *screeningService) ScreenBatch(ctx context.Context, testType models.TestType, imageRefs []string, userID string) (*models.BatchScreeningResponse, error) {
	if len(imageRefs) == 0 {
		return nil, apperrors.NewValidationError("at least one URL is required", nil)
	}
	if len(imageRefs) > s.opts.MaxBatchItems {
		return nil, apperrors.NewValidationError("too many URLs in one batch", nil).
			WithDetails(fmt.Sprintf("got %d, limit is %d", len(imageRefs), s.opts.MaxBatchItems))
	}
	if _, err := s.strategies.Get(testType); err != nil {
		return nil, apperrors.NewValidationError("unsupported test type", err)
	}

	items := make([]models.BatchItem, len(imageRefs))
	var wg sync.WaitGroup

	for i, ref := range imageRefs {
		i, ref := i, ref
		items[i].URL = ref

		wg.Add(1)
		job := func() {
			defer wg.Done()
			result, err := s.Screen(ctx, testType, ref, userID)
			if err != nil {
				items[i].Error = ToErrorResponse(err)
				return
			}
			items[i].Result = result
		}
		if !s.pool.Submit(job) {
			wg.Done()
			items[i].Error = ToErrorResponse(apperrors.NewInternalError("worker pool is closed", nil))
		}
	}
	wg.Wait()

	resp := &models.BatchScreeningResponse{TestType: testType, Items: items}
	for _, item := range items {
		if item.Error != nil {
			resp.Failed++
		} else {
			resp.Succeeded++
		}
	}
	return resp, nil
}

// History lists a user's stored diagnoses
func (s *screeningService) History(ctx context.Context, userID string, limit int) (*models.HistoryResponse, error) {
	if userID == "" {
		return nil, apperrors.NewValidationError("user_id is required", nil)
	}

	diagnoses, err := s.diagnoses.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to load diagnoses", err)
	}
	return &models.HistoryResponse{UserID: userID, Diagnoses: diagnoses}, nil
}

// Recommend maps a score to its exercise program
func (s *screeningService) Recommend(score float64) models.Recommendation {
	program := s.catalog.ProgramFor(score)

	rec := models.Recommendation{
		Score:        score,
		Tier:         string(program.Tier),
		TotalMinutes: int(program.TotalDuration().Minutes()),
		Exercises:    make([]models.Exercise, 0, len(program.Exercises)),
	}
	for _, e := range program.Exercises {
		rec.Exercises = append(rec.Exercises, models.Exercise{
			Name:            e.Name,
			Description:     e.Description,
			DurationMinutes: e.Minutes,
			Image:           e.Image,
		})
	}
	return rec
}

// ValidateImageRef validates the image reference
func (s *screeningService) ValidateImageRef(imageRef string) error {
	return s.imageRepo.ValidateImageRef(imageRef)
}

func (s *screeningService) fetch(ctx context.Context, testType models.TestType, imageRef string) (image.Image, time.Duration, error) {
	start := s.now()
	fetchCtx, cancel := context.WithTimeout(ctx, s.opts.FetchTimeout)
	defer cancel()

	img, err := s.imageRepo.FetchImage(fetchCtx, imageRef)
	elapsed := s.now().Sub(start)
	if err != nil {
		s.notify(ctx, observer.ScreeningEvent{
			EventType:      observer.ImageFetchFailed,
			TestType:       string(testType),
			ImageRef:       imageRef,
			ProcessingTime: elapsed,
			ErrorMessage:   err.Error(),
		})
		return nil, elapsed, classifySourceError(err)
	}

	s.notify(ctx, observer.ScreeningEvent{
		EventType:      observer.ImageFetched,
		TestType:       string(testType),
		ImageRef:       imageRef,
		ProcessingTime: elapsed,
		Success:        true,
	})
	return img, elapsed, nil
}

// screenImage runs capture checks, the analysis pipeline and persistence for a decoded photograph
func (s *screeningService) screenImage(ctx context.Context, testType models.TestType, img image.Image, imageRef, userID string, start time.Time) (*models.ScreeningResponse, error) {
	screener, err := s.strategies.Get(testType)
	if err != nil {
		return nil, apperrors.NewValidationError("unsupported test type", err)
	}
	timings := make(map[string]float64)

	stageStart := s.now()
	capture, warnings, err := s.checkCapture(img)
	if err != nil {
		return nil, err
	}
	timings["capture"] = s.now().Sub(stageStart).Seconds()

	stageStart = s.now()
	outcome, err := s.analyze(ctx, screener, img)
	if err != nil {
		return nil, err
	}
	timings["analysis"] = s.now().Sub(stageStart).Seconds()

	createdAt := s.now().UTC()
	resp := &models.ScreeningResponse{
		UserID:   userID,
		TestType: testType,
		ImageRef: imageRef,
		Score:    outcome.Score,
		Bounds:   toBox(outcome.Bounds),
		Capture:  capture,
		Warnings: warnings,
		Timings:  timings,
	}
	if outcome.Bend != nil {
		resp.Bend = toBendMetrics(outcome.Bend)
	}
	if outcome.Posture != nil {
		resp.Posture = toPostureMetrics(outcome.Posture)
	}
	rec := s.Recommend(outcome.Score)
	resp.Recommendation = &rec

	if userID != "" {
		stageStart = s.now()
		id, err := uuid.NewV4()
		if err != nil {
			return nil, apperrors.NewInternalError("failed to generate diagnosis id", err)
		}
		d := models.Diagnosis{
			ID:        id.String(),
			UserID:    userID,
			TestType:  testType,
			Score:     outcome.Score,
			ImageRef:  imageRef,
			CreatedAt: createdAt,
		}
		if err := s.diagnoses.Save(ctx, d); err != nil {
			return nil, apperrors.NewInternalError("failed to store diagnosis", err)
		}
		resp.DiagnosisID = d.ID
		timings["store"] = s.now().Sub(stageStart).Seconds()
	}

	elapsed := s.now().Sub(start)
	resp.Timestamp = createdAt.Format(time.RFC3339)
	resp.ProcessingTimeSec = elapsed.Seconds()

	s.notify(ctx, observer.ScreeningEvent{
		EventType:      observer.ScreeningCompleted,
		TestType:       string(testType),
		UserID:         userID,
		ImageRef:       imageRef,
		ProcessingTime: elapsed,
		Score:          outcome.Score,
		Success:        true,
		Metadata:       map[string]interface{}{"warnings": len(warnings)},
	})
	return resp, nil
}

// checkCapture rejects unusable photographs and collects warnings for doubtful ones
func (s *screeningService) checkCapture(img image.Image) (*models.CaptureQuality, []string, error) {
	m, err := analyzer.MeasureCapture(img)
	if err != nil {
		return nil, nil, apperrors.NewProcessingError("invalid image format", err)
	}

	issues := s.quality.ValidateCapture(validation.CaptureMetrics{
		Width:        m.Width,
		Height:       m.Height,
		Brightness:   m.Brightness,
		Contrast:     m.Contrast,
		LaplacianVar: m.LaplacianVar,
	})
	critical := s.quality.HasCriticalIssues(issues)
	capture := &models.CaptureQuality{
		Width:        m.Width,
		Height:       m.Height,
		Brightness:   m.Brightness,
		Contrast:     m.Contrast,
		LaplacianVar: m.LaplacianVar,
		IsValid:      !critical,
	}

	if critical {
		var details string
		for _, issue := range issues {
			if issue.Severity == validation.SeverityError {
				details = issue.Message
				break
			}
		}
		return capture, nil, apperrors.NewProcessingError("image unusable for screening", nil).WithDetails(details)
	}
	return capture, s.quality.ConvertIssuesToMessages(issues), nil
}

type analysisResult struct {
	outcome strategy.Outcome
	err     error
}

// analyze runs the strategy under the analysis timeout. The pipeline itself is not
// interruptible; on timeout its result is discarded.
func (s *screeningService) analyze(ctx context.Context, screener strategy.ScreeningStrategy, img image.Image) (strategy.Outcome, error) {
	analysisCtx, cancel := context.WithTimeout(ctx, s.opts.AnalysisTimeout)
	defer cancel()

	done := make(chan analysisResult, 1)
	go func() {
		outcome, err := screener.Screen(img)
		done <- analysisResult{outcome: outcome, err: err}
	}()

	select {
	case <-analysisCtx.Done():
		return strategy.Outcome{}, apperrors.NewTimeoutError("analysis timed out", analysisCtx.Err())
	case r := <-done:
		if r.err != nil {
			return strategy.Outcome{}, classifyAnalysisError(r.err)
		}
		return r.outcome, nil
	}
}

func (s *screeningService) fail(ctx context.Context, testType models.TestType, imageRef, userID string, start time.Time, err error) error {
	s.notify(ctx, observer.ScreeningEvent{
		EventType:      observer.ScreeningFailed,
		TestType:       string(testType),
		UserID:         userID,
		ImageRef:       imageRef,
		ProcessingTime: s.now().Sub(start),
		ErrorMessage:   err.Error(),
	})
	return err
}

func (s *screeningService) notify(ctx context.Context, event observer.ScreeningEvent) {
	s.events.NotifyObservers(ctx, event)
}

func classifyAnalysisError(err error) error {
	switch {
	case errors.Is(err, analyzer.ErrNoContourFound):
		return apperrors.NewProcessingError("no body silhouette found", err)
	case errors.Is(err, analyzer.ErrInvalidImageFormat):
		return apperrors.NewProcessingError("invalid image format", err)
	default:
		return apperrors.NewProcessingError("analysis failed", err)
	}
}

func classifySourceError(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.NewTimeoutError("image fetch timed out", err)
	case errors.Is(err, storage.ErrImageTooLarge):
		return apperrors.NewValidationError("image too large", err)
	case errors.Is(err, storage.ErrUnsupportedFormat):
		return apperrors.NewProcessingError("invalid image format", err)
	case errors.Is(err, storage.ErrSourceUnavailable):
		return apperrors.NewValidationError("image source not configured", err)
	default:
		return apperrors.NewNetworkError("failed to fetch image", err)
	}
}

// ToErrorResponse renders err as the uniform error body used by the API
func ToErrorResponse(err error) *models.ErrorResponse {
	if appErr, ok := apperrors.As(err); ok {
		msg := appErr.Message
		if appErr.Details != "" {
			msg = fmt.Sprintf("%s: %s", msg, appErr.Details)
		}
		return &models.ErrorResponse{Error: string(appErr.Type), Message: msg}
	}
	return &models.ErrorResponse{Error: string(apperrors.ErrorTypeInternal), Message: err.Error()}
}

func toBox(r image.Rectangle) models.Box {
	return models.Box{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

func toBendMetrics(b *analyzer.BendResult) *models.BendMetrics {
	polygon := make([]models.Point, len(b.Polygon))
	for i, p := range b.Polygon {
		polygon[i] = models.Point{X: p.X, Y: p.Y}
	}
	return &models.BendMetrics{
		CurvatureScore:   b.Score,
		MaxAngle:         b.MaxAngle,
		TriplesEvaluated: b.Evaluated,
		TriplesSkipped:   b.Skipped,
		Polygon:          polygon,
	}
}

func toPostureMetrics(p *analyzer.PostureResult) *models.PostureMetrics {
	return &models.PostureMetrics{
		ShoulderDifference: p.Metrics.ShoulderDifference,
		HipDifference:      p.Metrics.HipDifference,
		SpineAlignment:     p.Metrics.SpineAlignment,
		Overall:            p.Metrics.Overall(),
	}
}
