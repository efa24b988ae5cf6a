package transport

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"go-spine-inspector/internal/analyzer"
	"go-spine-inspector/internal/config"
	apperrors "go-spine-inspector/internal/errors"
	"go-spine-inspector/internal/logger"
	"go-spine-inspector/internal/observer"
	"go-spine-inspector/internal/service"
	"go-spine-inspector/pkg/models"
)

// PoolStatsSource reports batch worker counters; *analyzer.WorkerPool satisfies it
type PoolStatsSource interface {
	GetStats() analyzer.PoolStats
}

// NewHandler wires the screening API routes. pool may be nil.
func NewHandler(svc service.ScreeningService, metrics *observer.MetricsObserver, pool PoolStatsSource, cfg *config.Config) http.Handler {
	r := gin.New()

	// Add middleware
	r.Use(
		gin.Recovery(),
		requestLogger(),
		requestSizeLimiter(cfg.MaxRequestBodySize),
		errorHandler(),
	)

	// Configure routes
	r.GET("/health", healthCheck)
	r.GET("/metrics", metricsReport(metrics, pool))

	v1 := r.Group("/v1")
	v1.POST("/screenings/:test_type", screen(svc, cfg))
	v1.POST("/screenings/:test_type/upload", screenUpload(svc, cfg))
	v1.POST("/screenings/:test_type/batch", screenBatch(svc, cfg))
	v1.GET("/users/:user_id/diagnoses", history(svc, cfg))
	v1.GET("/exercises", exercises(svc))

	return r
}

func screen(svc service.ScreeningService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		testType, ok := bindTestType(c)
		if !ok {
			return
		}

		var req models.ScreeningRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, apperrors.NewValidationError("invalid request format", err))
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.RequestTimeout)
		defer cancel()

		resp, err := svc.Screen(ctx, testType, req.URL, req.UserID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

func screenUpload(svc service.ScreeningService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		testType, ok := bindTestType(c)
		if !ok {
			return
		}

		fileHeader, err := c.FormFile("image")
		if err != nil {
			respondError(c, apperrors.NewValidationError("multipart field \"image\" is required", err))
			return
		}
		file, err := fileHeader.Open()
		if err != nil {
			respondError(c, apperrors.NewValidationError("unreadable upload", err))
			return
		}
		defer file.Close()

		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.RequestTimeout)
		defer cancel()

		resp, err := svc.ScreenUpload(ctx, testType, file, fileHeader.Filename, c.PostForm("user_id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

func screenBatch(svc service.ScreeningService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		testType, ok := bindTestType(c)
		if !ok {
			return
		}

		var req models.BatchScreeningRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, apperrors.NewValidationError("invalid request format", err))
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.RequestTimeout)
		defer cancel()

		resp, err := svc.ScreenBatch(ctx, testType, req.URLs, req.UserID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

func history(svc service.ScreeningService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 0
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				respondError(c, apperrors.NewValidationError("limit must be a non-negative integer", err))
				return
			}
			limit = n
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.RequestTimeout)
		defer cancel()

		resp, err := svc.History(ctx, c.Param("user_id"), limit)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

func exercises(svc service.ScreeningService) gin.HandlerFunc {
	return func(c *gin.Context) {
		score, err := strconv.ParseFloat(c.Query("score"), 64)
		if err != nil || score < 0 || math.IsNaN(score) || math.IsInf(score, 0) {
			respondError(c, apperrors.NewValidationError("score must be a non-negative number", err))
			return
		}
		c.JSON(http.StatusOK, svc.Recommend(score))
	}
}

func metricsReport(metrics *observer.MetricsObserver, pool PoolStatsSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		body := gin.H{"screenings": metrics.GetMetrics()}
		if pool != nil {
			body["batch_pool"] = pool.GetStats()
		}
		c.JSON(http.StatusOK, body)
	}
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "available",
		"version": "1.0.0",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

func bindTestType(c *gin.Context) (models.TestType, bool) {
	testType, err := models.ParseTestType(c.Param("test_type"))
	if err != nil {
		respondError(c, apperrors.NewValidationError("unsupported test type", err))
		return "", false
	}
	return testType, true
}

// Middleware and helper functions
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.WithFields(logrus.Fields{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status_code": c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
			"user_agent":  c.Request.UserAgent(),
			"ip":          c.ClientIP(),
		}).Info("Request handled")
	}
}

func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			respondError(c, c.Errors.Last().Err)
		}
	}
}

func determineStatusCode(err error) int {
	// Check if it's a custom app error first
	if _, ok := apperrors.As(err); ok {
		return apperrors.GetStatusCode(err)
	}

	// Fallback to context-based errors
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	code := determineStatusCode(err)

	// Log the error with context
	entry := logger.WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	})
	if code >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Warn("Request rejected")
	}

	c.AbortWithStatusJSON(code, service.ToErrorResponse(err))
}
