package storage

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// DefaultMaxImageBytes bounds how much of a source is read before decoding
const DefaultMaxImageBytes = 20 * 1024 * 1024

var (
	// ErrImageTooLarge indicates the encoded image exceeds the configured size limit
	ErrImageTooLarge = errors.New("image exceeds size limit")

	// ErrUnsupportedFormat indicates no registered decoder accepted the data
	ErrUnsupportedFormat = errors.New("unsupported image format")
)

// DecodeImage reads at most maxBytes from r and decodes the result. EXIF orientation
// of JPEG photographs is applied so the silhouette is upright.
func DecodeImage(r io.Reader, maxBytes int64) (image.Image, string, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxImageBytes
	}
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image data: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, "", fmt.Errorf("%w (%d bytes)", ErrImageTooLarge, maxBytes)
	}
	return DecodeBytes(data)
}

// DecodeBytes decodes an in-memory image and reports its format name
func DecodeBytes(data []byte) (image.Image, string, error) {
	_, format, cfgErr := image.DecodeConfig(bytes.NewReader(data))
	if cfgErr == nil {
		if img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true)); err == nil {
			return img, format, nil
		}
	}

	// Fallback: explicit WebP decode for encodings the pure Go decoder rejects
	if isWebP(data) {
		if img, err := webp.Decode(bytes.NewReader(data)); err == nil {
			return img, "webp", nil
		}
	}

	if cfgErr != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUnsupportedFormat, cfgErr)
	}
	return nil, "", fmt.Errorf("%w: %s data could not be decoded", ErrUnsupportedFormat, format)
}

func isWebP(data []byte) bool {
	return len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP"
}
