package storage

import (
	"context"
	"crypto/tls"
	"fmt"
	"image"
	"net/http"
	"time"
)

// ImageFetcher loads and decodes an image from a source reference
type ImageFetcher interface {
	FetchImage(ctx context.Context, ref string) (image.Image, error)
}

// HTTPFetcherConfig tunes the HTTP image source
type HTTPFetcherConfig struct {
	Timeout      time.Duration
	MaxBytes     int64
	Attempts     int
	RetryBackoff time.Duration // multiplied by the attempt number
}

// DefaultHTTPFetcherConfig returns the settings used by NewHTTPImageFetcher
func DefaultHTTPFetcherConfig() HTTPFetcherConfig {
	return HTTPFetcherConfig{
		Timeout:      30 * time.Second,
		MaxBytes:     DefaultMaxImageBytes,
		Attempts:     3,
		RetryBackoff: time.Second,
	}
}

// HTTPImageFetcher downloads photographs over HTTP(S) with retries on transient failures
type HTTPImageFetcher struct {
	client *http.Client
	cfg    HTTPFetcherConfig
}

// NewHTTPImageFetcher creates an HTTP image fetcher with default settings
func NewHTTPImageFetcher() *HTTPImageFetcher {
	return NewHTTPImageFetcherWithConfig(DefaultHTTPFetcherConfig())
}

// NewHTTPImageFetcherWithConfig creates an HTTP image fetcher
func NewHTTPImageFetcherWithConfig(cfg HTTPFetcherConfig) *HTTPImageFetcher {
	if cfg.Attempts < 1 {
		cfg.Attempts = 1
	}

	transport := &http.Transport{
		// Connection pooling sized for one photograph per request
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		MaxResponseHeaderBytes: 4096,
		TLSClientConfig:        &tls.Config{MinVersion: tls.VersionTLS12},
	}

	return &HTTPImageFetcher{
		cfg: cfg,
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("too many redirects (limit: 3)")
				}
				return nil
			},
		},
	}
}

// FetchImage downloads and decodes imageURL. 5xx responses and transport errors are
// retried; 4xx responses are not.
func (h *HTTPImageFetcher) FetchImage(ctx context.Context, imageURL string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	req.Header.Set("Accept", "image/jpeg, image/png, image/webp, image/gif, */*")
	req.Header.Set("User-Agent", "Go-Spine-Inspector/1.0")

	var lastErr error
	for attempt := 0; attempt < h.cfg.Attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("fetch cancelled after %d attempts: %w", attempt, ctx.Err())
			case <-time.After(time.Duration(attempt) * h.cfg.RetryBackoff):
			}
		}

		img, retry, err := h.try(req)
		if err == nil {
			return img, nil
		}
		lastErr = err
		if !retry {
			break
		}
	}

	return nil, fmt.Errorf("failed to fetch image after %d attempts: %w", h.cfg.Attempts, lastErr)
}

// try performs one request and reports whether a failure is worth retrying
func (h *HTTPImageFetcher) try(req *http.Request) (image.Image, bool, error) {
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, req.Context().Err() == nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, false, fmt.Errorf("client error: status code %d", resp.StatusCode)
	case resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("server error: status code %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, false, fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}

	img, _, err := DecodeImage(resp.Body, h.cfg.MaxBytes)
	if err != nil {
		return nil, false, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, false, nil
}
