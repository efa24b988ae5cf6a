package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"go-spine-inspector/internal/analyzer"
	"go-spine-inspector/internal/config"
	apperrors "go-spine-inspector/internal/errors"
	"go-spine-inspector/internal/logger"
	"go-spine-inspector/internal/observer"
	"go-spine-inspector/pkg/models"
)

type fakeService struct {
	lastTestType models.TestType
	lastRef      string
	lastUser     string
	lastLimit    int
	uploaded     []byte
	err          error
}

func (f *fakeService) Screen(ctx context.Context, testType models.TestType, imageRef, userID string) (*models.ScreeningResponse, error) {
	f.lastTestType, f.lastRef, f.lastUser = testType, imageRef, userID
	if f.err != nil {
		return nil, f.err
	}
	return &models.ScreeningResponse{TestType: testType, ImageRef: imageRef, UserID: userID, Score: 0.25}, nil
}

func (f *fakeService) ScreenUpload(ctx context.Context, testType models.TestType, r io.Reader, filename, userID string) (*models.ScreeningResponse, error) {
	data, _ := io.ReadAll(r)
	f.uploaded = data
	f.lastTestType, f.lastRef, f.lastUser = testType, "upload:"+filename, userID
	return &models.ScreeningResponse{TestType: testType, ImageRef: "upload:" + filename}, nil
}

func (f *fakeService) ScreenBatch(ctx context.Context, testType models.TestType, imageRefs []string, userID string) (*models.BatchScreeningResponse, error) {
	items := make([]models.BatchItem, len(imageRefs))
	for i, ref := range imageRefs {
		items[i] = models.BatchItem{URL: ref, Result: &models.ScreeningResponse{ImageRef: ref}}
	}
	return &models.BatchScreeningResponse{TestType: testType, Succeeded: len(items), Items: items}, nil
}

func (f *fakeService) History(ctx context.Context, userID string, limit int) (*models.HistoryResponse, error) {
	f.lastUser, f.lastLimit = userID, limit
	return &models.HistoryResponse{UserID: userID, Diagnoses: []models.Diagnosis{{ID: "d1", UserID: userID}}}, nil
}

func (f *fakeService) Recommend(score float64) models.Recommendation {
	return models.Recommendation{Score: score, Tier: "advanced"}
}

func (f *fakeService) ValidateImageRef(string) error { return nil }

func newTestHandler(t *testing.T, svc *fakeService) (http.Handler, *observer.MetricsObserver) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger.SetOutput(io.Discard)
	t.Cleanup(func() { logger.SetOutput(os.Stdout) })

	metrics := observer.NewMetricsObserver()
	return NewHandler(svc, metrics, nil, config.Default()), metrics
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	h, _ := newTestHandler(t, &fakeService{})

	w := doJSON(t, h, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"status":"available"`) {
		t.Errorf("unexpected body %s", w.Body.String())
	}
}

func TestScreenEndpoint(t *testing.T) {
	svc := &fakeService{}
	h, _ := newTestHandler(t, svc)

	w := doJSON(t, h, http.MethodPost, "/v1/screenings/adams_test", `{"url":"https://example.com/back.jpg","user_id":"u1"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if svc.lastTestType != models.TestAdams || svc.lastRef != "https://example.com/back.jpg" || svc.lastUser != "u1" {
		t.Errorf("service called with %s %s %s", svc.lastTestType, svc.lastRef, svc.lastUser)
	}

	var resp models.ScreeningResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if resp.Score != 0.25 {
		t.Errorf("expected score 0.25, got %v", resp.Score)
	}
}

func TestScreenEndpoint_Errors(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		body     string
		svcErr   error
		wantCode int
		wantType string
	}{
		{"unknown test type", "/v1/screenings/scoliometer", `{"url":"https://example.com/a.jpg"}`, nil, http.StatusBadRequest, "validation"},
		{"missing url", "/v1/screenings/adams_test", `{"user_id":"u1"}`, nil, http.StatusBadRequest, "validation"},
		{"malformed body", "/v1/screenings/adams_test", `{`, nil, http.StatusBadRequest, "validation"},
		{
			"no contour", "/v1/screenings/posture_check", `{"url":"https://example.com/a.jpg"}`,
			apperrors.NewProcessingError("no body silhouette found", analyzer.ErrNoContourFound),
			http.StatusUnprocessableEntity, "processing",
		},
		{
			"fetch failure", "/v1/screenings/adams_test", `{"url":"https://example.com/a.jpg"}`,
			apperrors.NewNetworkError("failed to fetch image", nil),
			http.StatusBadGateway, "network",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newTestHandler(t, &fakeService{err: tt.svcErr})

			w := doJSON(t, h, http.MethodPost, tt.path, tt.body)
			if w.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d: %s", tt.wantCode, w.Code, w.Body.String())
			}
			var body models.ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			if body.Error != tt.wantType {
				t.Errorf("expected error type %s, got %s", tt.wantType, body.Error)
			}
		})
	}
}

func TestUploadEndpoint(t *testing.T) {
	svc := &fakeService{}
	h, _ := newTestHandler(t, svc)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", "back.png")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	part.Write([]byte("image-bytes"))
	mw.WriteField("user_id", "u2")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/v1/screenings/posture_check/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if string(svc.uploaded) != "image-bytes" {
		t.Errorf("unexpected upload %q", svc.uploaded)
	}
	if svc.lastUser != "u2" || svc.lastTestType != models.TestPosture {
		t.Errorf("service called with %s %s", svc.lastTestType, svc.lastUser)
	}
}

func TestUploadEndpoint_MissingFile(t *testing.T) {
	h, _ := newTestHandler(t, &fakeService{})

	w := doJSON(t, h, http.MethodPost, "/v1/screenings/adams_test/upload", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestBatchEndpoint(t *testing.T) {
	h, _ := newTestHandler(t, &fakeService{})

	w := doJSON(t, h, http.MethodPost, "/v1/screenings/adams_test/batch", `{"urls":["https://a.example/1.jpg","https://a.example/2.jpg"]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp models.BatchScreeningResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if resp.Succeeded != 2 || len(resp.Items) != 2 || resp.Items[1].URL != "https://a.example/2.jpg" {
		t.Errorf("unexpected batch response %+v", resp)
	}

	w = doJSON(t, h, http.MethodPost, "/v1/screenings/adams_test/batch", `{"urls":[]}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for empty batch, got %d", w.Code)
	}
}

func TestHistoryEndpoint(t *testing.T) {
	svc := &fakeService{}
	h, _ := newTestHandler(t, svc)

	w := doJSON(t, h, http.MethodGet, "/v1/users/u3/diagnoses?limit=5", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if svc.lastUser != "u3" || svc.lastLimit != 5 {
		t.Errorf("service called with %s limit %d", svc.lastUser, svc.lastLimit)
	}

	w = doJSON(t, h, http.MethodGet, "/v1/users/u3/diagnoses?limit=-1", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for negative limit, got %d", w.Code)
	}
}

func TestExercisesEndpoint(t *testing.T) {
	h, _ := newTestHandler(t, &fakeService{})

	w := doJSON(t, h, http.MethodGet, "/v1/exercises?score=0.3", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"tier":"advanced"`) {
		t.Errorf("unexpected body %s", w.Body.String())
	}

	for _, score := range []string{"abc", "-0.1", "NaN", "nan", "Inf", "-Inf", "1e400", ""} {
		w = doJSON(t, h, http.MethodGet, "/v1/exercises?score="+score, "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("score=%q: expected 400, got %d", score, w.Code)
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h, metrics := newTestHandler(t, &fakeService{})
	metrics.OnEvent(context.Background(), observer.ScreeningEvent{EventType: observer.ScreeningStarted, TestType: "adams_test"})

	w := doJSON(t, h, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"adams_test":{"started":1`) {
		t.Errorf("unexpected body %s", w.Body.String())
	}
}

type fixedStats analyzer.PoolStats

func (s fixedStats) GetStats() analyzer.PoolStats { return analyzer.PoolStats(s) }

func TestMetricsEndpoint_BatchPool(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger.SetOutput(io.Discard)
	t.Cleanup(func() { logger.SetOutput(os.Stdout) })

	pool := fixedStats{TotalJobs: 7, CompletedJobs: 5, ActiveWorkers: 2}
	h := NewHandler(&fakeService{}, observer.NewMetricsObserver(), pool, config.Default())

	w := doJSON(t, h, http.MethodGet, "/metrics", "")
	if !strings.Contains(w.Body.String(), `"batch_pool":{"total_jobs":7,"completed_jobs":5,"active_workers":2}`) {
		t.Errorf("unexpected body %s", w.Body.String())
	}
}
