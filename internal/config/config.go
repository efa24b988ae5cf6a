package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"go-spine-inspector/internal/analyzer"
)

// Repository backends
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

type Config struct {
	Host               string        `yaml:"host"`
	Port               string        `yaml:"port"`
	RequestTimeout     time.Duration `yaml:"request_timeout"`
	ImageFetchTimeout  time.Duration `yaml:"image_fetch_timeout"`
	AnalysisTimeout    time.Duration `yaml:"analysis_timeout"`
	MaxRequestBodySize int64         `yaml:"max_request_body_size"`
	LogLevel           string        `yaml:"log_level"`
	BatchWorkers       int           `yaml:"batch_workers"`
	BatchMaxItems      int           `yaml:"batch_max_items"`

	Repository RepositoryConfig         `yaml:"repository"`
	Azure      AzureConfig              `yaml:"azure"`
	Sources    SourcesConfig            `yaml:"sources"`
	Analysis   analyzer.AnalysisOptions `yaml:"analysis"`
}

// RepositoryConfig selects where diagnosis records are kept
type RepositoryConfig struct {
	Backend             string `yaml:"backend"`
	RedisAddress        string `yaml:"redis_address"`
	RedisMaxConnections int    `yaml:"redis_max_connections"`
	KeyPrefix           string `yaml:"key_prefix"`
}

// AzureConfig holds the shared-key credentials for azblob:// image sources
type AzureConfig struct {
	Account string `yaml:"account"`
	Key     string `yaml:"key"`
}

// Enabled reports whether blob sources can be used
func (a AzureConfig) Enabled() bool {
	return a.Account != "" && a.Key != ""
}

// SourcesConfig restricts where images may be fetched from
type SourcesConfig struct {
	AllowedHosts []string `yaml:"allowed_hosts"`
	AllowFiles   bool     `yaml:"allow_files"`
}

func (c *Config) ServerAddress() string {
	// Trim any whitespace from host and port
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

// Default returns the configuration used when neither a file nor the environment says otherwise
func Default() *Config {
	return &Config{
		Host:               "0.0.0.0",
		Port:               "8080",
		RequestTimeout:     30 * time.Second,
		ImageFetchTimeout:  15 * time.Second,
		AnalysisTimeout:    20 * time.Second,
		MaxRequestBodySize: 10 * 1024 * 1024, // 10MB
		LogLevel:           "info",
		BatchWorkers:       4,
		BatchMaxItems:      20,
		Repository: RepositoryConfig{
			Backend:             BackendMemory,
			RedisAddress:        "localhost:6379",
			RedisMaxConnections: 10,
			KeyPrefix:           "spine",
		},
		Analysis: analyzer.DefaultOptions(),
	}
}

// LoadFromEnv builds the configuration from defaults, the optional YAML file named by
// CONFIG_FILE and environment variables, in that order of precedence
func LoadFromEnv() (*Config, error) {
	cfg := Default()

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.Host = getEnvOrDefault("HOST", cfg.Host)
	cfg.Port = getEnvOrDefault("PORT", cfg.Port)
	cfg.RequestTimeout = parseDurationOrDefault("REQUEST_TIMEOUT", cfg.RequestTimeout)
	cfg.ImageFetchTimeout = parseDurationOrDefault("IMAGE_FETCH_TIMEOUT", cfg.ImageFetchTimeout)
	cfg.AnalysisTimeout = parseDurationOrDefault("ANALYSIS_TIMEOUT", cfg.AnalysisTimeout)
	cfg.MaxRequestBodySize = parseIntOrDefault("MAX_REQUEST_BODY_SIZE", cfg.MaxRequestBodySize)
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.BatchWorkers = int(parseIntOrDefault("BATCH_WORKERS", int64(cfg.BatchWorkers)))
	cfg.BatchMaxItems = int(parseIntOrDefault("BATCH_MAX_ITEMS", int64(cfg.BatchMaxItems)))
	cfg.Repository.Backend = getEnvOrDefault("REPOSITORY_BACKEND", cfg.Repository.Backend)
	cfg.Repository.RedisAddress = getEnvOrDefault("REDIS_ADDRESS", cfg.Repository.RedisAddress)
	cfg.Repository.RedisMaxConnections = int(parseIntOrDefault("REDIS_MAX_CONNECTIONS", int64(cfg.Repository.RedisMaxConnections)))
	cfg.Azure.Account = getEnvOrDefault("AZURE_STORAGE_ACCOUNT", cfg.Azure.Account)
	cfg.Azure.Key = getEnvOrDefault("AZURE_STORAGE_KEY", cfg.Azure.Key)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("error parsing config file %s: %w", path, err)
	}
	return nil
}

// Validate checks ranges and cross-field requirements
func (c *Config) Validate() error {
	// Validate port is numeric and in range
	p, err := strconv.Atoi(strings.TrimSpace(c.Port))
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("invalid PORT: %q", c.Port)
	}
	if c.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0 (got %d)", c.MaxRequestBodySize)
	}
	if c.RequestTimeout <= 0 || c.ImageFetchTimeout <= 0 || c.AnalysisTimeout <= 0 {
		return fmt.Errorf("timeouts must be > 0 (got request=%s, fetch=%s, analysis=%s)",
			c.RequestTimeout, c.ImageFetchTimeout, c.AnalysisTimeout)
	}
	if c.BatchWorkers < 1 {
		return fmt.Errorf("BATCH_WORKERS must be >= 1 (got %d)", c.BatchWorkers)
	}
	if c.BatchMaxItems < 1 {
		return fmt.Errorf("BATCH_MAX_ITEMS must be >= 1 (got %d)", c.BatchMaxItems)
	}

	switch c.Repository.Backend {
	case BackendMemory:
	case BackendRedis:
		if strings.TrimSpace(c.Repository.RedisAddress) == "" {
			return fmt.Errorf("REDIS_ADDRESS is required for the redis backend")
		}
		if c.Repository.RedisMaxConnections < 1 {
			return fmt.Errorf("REDIS_MAX_CONNECTIONS must be >= 1 (got %d)", c.Repository.RedisMaxConnections)
		}
	default:
		return fmt.Errorf("unknown REPOSITORY_BACKEND %q (want %s or %s)", c.Repository.Backend, BackendMemory, BackendRedis)
	}

	if (c.Azure.Account == "") != (c.Azure.Key == "") {
		return fmt.Errorf("AZURE_STORAGE_ACCOUNT and AZURE_STORAGE_KEY must be set together")
	}

	if err := c.Analysis.Validate(); err != nil {
		return fmt.Errorf("invalid analysis settings: %w", err)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration > 0 {
			return duration
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}
