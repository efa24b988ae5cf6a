package storage

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
)

// ErrSourceUnavailable indicates no fetcher is configured for a reference's scheme
var ErrSourceUnavailable = errors.New("image source not available")

// Router dispatches a reference to the fetcher registered for its scheme
type Router struct {
	fetchers map[string]ImageFetcher
}

// NewRouter creates an empty router
func NewRouter() *Router {
	return &Router{fetchers: make(map[string]ImageFetcher)}
}

// Register binds fetcher to one or more schemes. The empty scheme stands for bare paths.
func (r *Router) Register(fetcher ImageFetcher, schemes ...string) *Router {
	for _, s := range schemes {
		r.fetchers[strings.ToLower(s)] = fetcher
	}
	return r
}

// Schemes lists the registered schemes
func (r *Router) Schemes() []string {
	schemes := make([]string, 0, len(r.fetchers))
	for s := range r.fetchers {
		if s != "" {
			schemes = append(schemes, s)
		}
	}
	return schemes
}

func (r *Router) FetchImage(ctx context.Context, ref string) (image.Image, error) {
	scheme := SchemeOf(ref)
	fetcher, ok := r.fetchers[scheme]
	if !ok {
		return nil, fmt.Errorf("%w: scheme %q", ErrSourceUnavailable, scheme)
	}
	return fetcher.FetchImage(ctx, ref)
}

// SchemeOf returns the lower-case scheme of ref, or "" for a bare path
func SchemeOf(ref string) string {
	i := strings.Index(ref, "://")
	if i < 0 {
		return ""
	}
	return strings.ToLower(ref[:i])
}
