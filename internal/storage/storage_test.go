package storage

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
)

func testImage(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 10), G: uint8(y * 10), B: 80, A: 255})
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode PNG: %v", err)
	}
	return buf.Bytes()
}

func TestDecodeBytes_Formats(t *testing.T) {
	src := testImage(6, 4)

	img, format, err := DecodeBytes(encodePNG(t, src))
	if err != nil {
		t.Fatalf("PNG decode failed: %v", err)
	}
	if format != "png" || img.Bounds().Dx() != 6 || img.Bounds().Dy() != 4 {
		t.Errorf("Expected 6x4 png, got %s %v", format, img.Bounds())
	}

	var buf bytes.Buffer
	if err := webp.Encode(&buf, src, &webp.Options{Lossless: true}); err != nil {
		t.Fatalf("Failed to encode WebP: %v", err)
	}
	img, format, err = DecodeBytes(buf.Bytes())
	if err != nil {
		t.Fatalf("WebP decode failed: %v", err)
	}
	if format != "webp" || img.Bounds().Dx() != 6 {
		t.Errorf("Expected 6px wide webp, got %s %v", format, img.Bounds())
	}
}

func TestDecodeBytes_Unsupported(t *testing.T) {
	_, _, err := DecodeBytes([]byte("definitely not an image"))
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestDecodeImage_SizeLimit(t *testing.T) {
	data := encodePNG(t, testImage(20, 20))

	if _, _, err := DecodeImage(bytes.NewReader(data), int64(len(data)-1)); !errors.Is(err, ErrImageTooLarge) {
		t.Errorf("Expected ErrImageTooLarge, got %v", err)
	}
	if _, _, err := DecodeImage(bytes.NewReader(data), int64(len(data))); err != nil {
		t.Errorf("Expected image at the exact limit to decode, got %v", err)
	}
}

func TestParseBlobRef(t *testing.T) {
	container, blob, err := ParseBlobRef("azblob://screenings/2024/user-1/bend.jpg")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if container != "screenings" || blob != "2024/user-1/bend.jpg" {
		t.Errorf("Unexpected split %q / %q", container, blob)
	}

	for _, ref := range []string{"https://host/a.jpg", "azblob://screenings", "azblob:///a.jpg", "azblob://%zz/a"} {
		if _, _, err := ParseBlobRef(ref); err == nil {
			t.Errorf("Expected error for %q", ref)
		}
	}
}

func TestFileImageFetcher(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pose.png")
	if err := imaging.Save(testImage(8, 12), path); err != nil {
		t.Fatalf("Failed to save test image: %v", err)
	}
	fetcher := NewFileImageFetcher(0)

	for _, ref := range []string{path, "file://" + path} {
		img, err := fetcher.FetchImage(context.Background(), ref)
		if err != nil {
			t.Fatalf("FetchImage(%q) failed: %v", ref, err)
		}
		if img.Bounds().Dx() != 8 || img.Bounds().Dy() != 12 {
			t.Errorf("Expected 8x12 image, got %v", img.Bounds())
		}
	}

	if _, err := fetcher.FetchImage(context.Background(), filepath.Join(t.TempDir(), "missing.png")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected not-exist error, got %v", err)
	}
}

type stubFetcher struct{ name string }

func (s stubFetcher) FetchImage(ctx context.Context, ref string) (image.Image, error) {
	return nil, errors.New(s.name)
}

func TestRouter(t *testing.T) {
	router := NewRouter().
		Register(stubFetcher{"http"}, "http", "https").
		Register(stubFetcher{"file"}, "", FileScheme)

	tests := []struct {
		ref  string
		want string
	}{
		{"https://example.com/a.jpg", "http"},
		{"HTTP://example.com/a.jpg", "http"},
		{"/tmp/a.jpg", "file"},
		{"file:///tmp/a.jpg", "file"},
	}
	for _, tt := range tests {
		_, err := router.FetchImage(context.Background(), tt.ref)
		if err == nil || err.Error() != tt.want {
			t.Errorf("FetchImage(%q) routed to %v, want %s", tt.ref, err, tt.want)
		}
	}

	if _, err := router.FetchImage(context.Background(), "azblob://c/b.jpg"); !errors.Is(err, ErrSourceUnavailable) {
		t.Errorf("Expected ErrSourceUnavailable, got %v", err)
	}
	if len(router.Schemes()) != 3 {
		t.Errorf("Expected 3 named schemes, got %v", router.Schemes())
	}
}

func TestHTTPImageFetcher_ContextCancelledDuringBackoff(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	cfg := DefaultHTTPFetcherConfig()
	cfg.RetryBackoff = time.Hour
	fetcher := NewHTTPImageFetcherWithConfig(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := fetcher.FetchImage(ctx, server.URL)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline error, got %v", err)
	}
	if requests.Load() != 1 {
		t.Errorf("Expected a single request before cancellation, got %d", requests.Load())
	}
}

func TestHTTPImageFetcher_DecodesBody(t *testing.T) {
	data := encodePNG(t, testImage(5, 7))
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(data)
	}))
	defer server.Close()

	img, err := NewHTTPImageFetcher().FetchImage(context.Background(), server.URL+"/pose.png")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if img.Bounds().Dx() != 5 || img.Bounds().Dy() != 7 {
		t.Errorf("Expected 5x7 image, got %v", img.Bounds())
	}
}
