package factory

import (
	"fmt"
	"sort"

	"go-spine-inspector/internal/analyzer"
	"go-spine-inspector/internal/config"
	"go-spine-inspector/internal/repository"
	"go-spine-inspector/internal/storage"
	"go-spine-inspector/pkg/validation"
)

// StorageType represents different types of image sources
type StorageType string

const (
	// HTTPStorage for HTTP-based image fetching
	HTTPStorage StorageType = "http"
	// AzureStorage for Azure blob storage
	AzureStorage StorageType = "azure"
	// LocalStorage for local file system
	LocalStorage StorageType = "local"
)

// AnalyzerFactory creates screening analyzers
type AnalyzerFactory interface {
	CreateAnalyzer(opts analyzer.AnalysisOptions) (analyzer.Analyzer, error)
}

// StorageFactory creates image sources
type StorageFactory interface {
	CreateStorage(storageType StorageType) (storage.ImageFetcher, error)
}

// analyzerFactory implements AnalyzerFactory
type analyzerFactory struct{}

// NewAnalyzerFactory creates a new analyzer factory
func NewAnalyzerFactory() AnalyzerFactory {
	return &analyzerFactory{}
}

// CreateAnalyzer creates an analyzer with the given pipeline parameters
func (f *analyzerFactory) CreateAnalyzer(opts analyzer.AnalysisOptions) (analyzer.Analyzer, error) {
	return analyzer.NewImageAnalyzer(opts)
}

// storageFactory implements StorageFactory
type storageFactory struct {
	cfg *config.Config
}

// NewStorageFactory creates a new storage factory
func NewStorageFactory(cfg *config.Config) StorageFactory {
	return &storageFactory{cfg: cfg}
}

// CreateStorage creates an image source based on the specified type
func (f *storageFactory) CreateStorage(storageType StorageType) (storage.ImageFetcher, error) {
	switch storageType {
	case HTTPStorage:
		httpCfg := storage.DefaultHTTPFetcherConfig()
		httpCfg.Timeout = f.cfg.ImageFetchTimeout
		return storage.NewHTTPImageFetcherWithConfig(httpCfg), nil
	case AzureStorage:
		if !f.cfg.Azure.Enabled() {
			return nil, fmt.Errorf("azure storage requires AZURE_STORAGE_ACCOUNT and AZURE_STORAGE_KEY")
		}
		return storage.NewAzureStorage(f.cfg.Azure.Account, f.cfg.Azure.Key, "", storage.DefaultMaxImageBytes)
	case LocalStorage:
		return storage.NewFileImageFetcher(storage.DefaultMaxImageBytes), nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}

// ComponentFactory combines all factories with the configuration that drives them
type ComponentFactory struct {
	AnalyzerFactory AnalyzerFactory
	StorageFactory  StorageFactory
	cfg             *config.Config
}

// NewComponentFactory creates a new component factory
func NewComponentFactory(cfg *config.Config) *ComponentFactory {
	return &ComponentFactory{
		AnalyzerFactory: NewAnalyzerFactory(),
		StorageFactory:  NewStorageFactory(cfg),
		cfg:             cfg,
	}
}

// CreateAnalyzer creates the analyzer configured in the analysis section
func (f *ComponentFactory) CreateAnalyzer() (analyzer.Analyzer, error) {
	return f.AnalyzerFactory.CreateAnalyzer(f.cfg.Analysis)
}

// CreateSourceRouter registers HTTP(S) always, Azure blobs when credentials are set
// and local files when allowed
func (f *ComponentFactory) CreateSourceRouter() (*storage.Router, error) {
	router := storage.NewRouter()

	httpFetcher, err := f.StorageFactory.CreateStorage(HTTPStorage)
	if err != nil {
		return nil, err
	}
	router.Register(httpFetcher, "http", "https")

	if f.cfg.Azure.Enabled() {
		blobFetcher, err := f.StorageFactory.CreateStorage(AzureStorage)
		if err != nil {
			return nil, err
		}
		router.Register(blobFetcher, storage.BlobScheme)
	}

	if f.cfg.Sources.AllowFiles {
		fileFetcher, err := f.StorageFactory.CreateStorage(LocalStorage)
		if err != nil {
			return nil, err
		}
		router.Register(fileFetcher, storage.FileScheme)
	}
	return router, nil
}

// CreateImageRepository wraps the source router with a validator that accepts exactly
// the registered schemes
func (f *ComponentFactory) CreateImageRepository() (repository.ImageRepository, error) {
	router, err := f.CreateSourceRouter()
	if err != nil {
		return nil, err
	}
	schemes := router.Schemes()
	sort.Strings(schemes)
	validator := validation.NewURLValidatorWithOptions(schemes, f.cfg.Sources.AllowedHosts)
	return repository.NewSourceImageRepository(router, validator), nil
}

// CreateDiagnosisRepository opens the configured diagnosis backend
func (f *ComponentFactory) CreateDiagnosisRepository() (repository.DiagnosisRepository, error) {
	switch f.cfg.Repository.Backend {
	case config.BackendMemory:
		return repository.NewMemoryDiagnosisRepository(), nil
	case config.BackendRedis:
		pool := repository.NewRedisPool(f.cfg.Repository.RedisAddress, f.cfg.Repository.RedisMaxConnections)
		repo, err := repository.NewRedisDiagnosisRepository(pool, f.cfg.Repository.KeyPrefix)
		if err != nil {
			pool.Close()
			return nil, err
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unsupported repository backend: %s", f.cfg.Repository.Backend)
	}
}
