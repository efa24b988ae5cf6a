package container

import (
	"fmt"
	"net/http"

	"go-spine-inspector/internal/analyzer"
	"go-spine-inspector/internal/config"
	"go-spine-inspector/internal/exercise"
	"go-spine-inspector/internal/factory"
	"go-spine-inspector/internal/logger"
	"go-spine-inspector/internal/observer"
	"go-spine-inspector/internal/repository"
	"go-spine-inspector/internal/service"
	"go-spine-inspector/internal/strategy"
	"go-spine-inspector/internal/transport"
	"go-spine-inspector/pkg/validation"
)

// Container holds all application dependencies
type Container struct {
	config           *config.Config
	imageAnalyzer    analyzer.Analyzer
	imageRepository  repository.ImageRepository
	diagnoses        repository.DiagnosisRepository
	events           *observer.EventPublisher
	metrics          *observer.MetricsObserver
	pool             *analyzer.WorkerPool
	screeningService service.ScreeningService
	handler          http.Handler
}

// NewContainer builds the dependency graph from cfg
func NewContainer(cfg *config.Config) (*Container, error) {
	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	components := factory.NewComponentFactory(cfg)

	imageAnalyzer, err := components.CreateAnalyzer()
	if err != nil {
		return nil, err
	}
	imageRepository, err := components.CreateImageRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to configure image sources: %w", err)
	}
	diagnoses, err := components.CreateDiagnosisRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to open diagnosis repository: %w", err)
	}

	events := observer.NewEventPublisher()
	metrics := observer.NewMetricsObserver()
	events.Subscribe(observer.NewLoggingObserver(logger.Logger))
	events.Subscribe(metrics)

	pool := analyzer.NewWorkerPool(cfg.BatchWorkers)
	pool.Start()

	screeningService := service.NewScreeningService(
		imageRepository,
		diagnoses,
		strategy.NewDefaultRegistry(imageAnalyzer),
		exercise.NewCatalog(),
		validation.NewQualityValidator(),
		events,
		pool,
		service.Options{
			FetchTimeout:    cfg.ImageFetchTimeout,
			AnalysisTimeout: cfg.AnalysisTimeout,
			MaxUploadBytes:  cfg.MaxRequestBodySize,
			MaxBatchItems:   cfg.BatchMaxItems,
		},
	)
	handler := transport.NewHandler(screeningService, metrics, pool, cfg)

	return &Container{
		config:           cfg,
		imageAnalyzer:    imageAnalyzer,
		imageRepository:  imageRepository,
		diagnoses:        diagnoses,
		events:           events,
		metrics:          metrics,
		pool:             pool,
		screeningService: screeningService,
		handler:          handler,
	}, nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Service returns the screening service
func (c *Container) Service() service.ScreeningService {
	return c.screeningService
}

// Close drains the batch workers and pending events, then releases the repository
func (c *Container) Close() error {
	c.pool.Close()
	c.pool.Wait()
	c.events.Wait()
	return c.diagnoses.Close()
}
