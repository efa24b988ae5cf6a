package storage

import (
	"context"
	"fmt"
	"image"
	"net/url"
	"os"
	"strings"
)

// FileScheme marks local photographs; bare paths are accepted as well
const FileScheme = "file"

// FileImageFetcher reads photographs from the local filesystem. It is used by the
// CLI and, when enabled, by the service.
type FileImageFetcher struct {
	maxBytes int64
}

// NewFileImageFetcher creates a local file image source
func NewFileImageFetcher(maxBytes int64) *FileImageFetcher {
	return &FileImageFetcher{maxBytes: maxBytes}
}

func (f *FileImageFetcher) FetchImage(ctx context.Context, ref string) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := ref
	if strings.HasPrefix(ref, FileScheme+"://") {
		u, err := url.Parse(ref)
		if err != nil {
			return nil, fmt.Errorf("invalid file URL: %w", err)
		}
		path = u.Path
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	img, _, err := DecodeImage(file, f.maxBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return img, nil
}
