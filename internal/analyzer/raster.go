package analyzer

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// ChannelOrder describes how colour samples are laid out in a raw Raster.
type ChannelOrder int

const (
	// OrderRGB is the layout produced by Go's image decoders.
	OrderRGB ChannelOrder = iota
	// OrderBGR is the layout produced by most camera and OpenCV-style buffers.
	OrderBGR
)

// Raster is an already-decoded pixel buffer handed over without an image.Image wrapper.
// Channels is 1 (gray), 3 (colour) or 4 (colour + alpha, alpha ignored).
type Raster struct {
	Width    int
	Height   int
	Channels int
	Order    ChannelOrder
	Pix      []byte
}

// Image converts the raw buffer into an image.Image. It is the only place where raw
// buffers enter the pipeline.
func (r Raster) Image() (image.Image, error) {
	if r.Width <= 0 || r.Height <= 0 {
		return nil, fmt.Errorf("%w: raster is %dx%d", ErrInvalidImageFormat, r.Width, r.Height)
	}
	if r.Channels != 1 && r.Channels != 3 && r.Channels != 4 {
		return nil, fmt.Errorf("%w: unsupported channel count %d", ErrInvalidImageFormat, r.Channels)
	}
	if r.Order != OrderRGB && r.Order != OrderBGR {
		return nil, fmt.Errorf("%w: unknown channel order %d", ErrInvalidImageFormat, r.Order)
	}
	if r.Width > math.MaxInt/r.Height/r.Channels {
		return nil, fmt.Errorf("%w: raster %dx%dx%d is too large", ErrInvalidImageFormat, r.Width, r.Height, r.Channels)
	}
	if len(r.Pix) < r.Width*r.Height*r.Channels {
		return nil, fmt.Errorf("%w: pixel buffer holds %d bytes, need %d",
			ErrInvalidImageFormat, len(r.Pix), r.Width*r.Height*r.Channels)
	}

	rect := image.Rect(0, 0, r.Width, r.Height)
	if r.Channels == 1 {
		gray := image.NewGray(rect)
		copy(gray.Pix, r.Pix[:r.Width*r.Height])
		return gray, nil
	}

	rgba := image.NewNRGBA(rect)
	for i, j := 0, 0; i < r.Width*r.Height; i, j = i+1, j+r.Channels {
		red, green, blue := r.Pix[j], r.Pix[j+1], r.Pix[j+2]
		if r.Order == OrderBGR {
			red, blue = blue, red
		}
		o := i * 4
		rgba.Pix[o+0] = red
		rgba.Pix[o+1] = green
		rgba.Pix[o+2] = blue
		rgba.Pix[o+3] = 0xff
	}
	return rgba, nil
}

// Normalize turns any supported input into the canonical single-channel raster used by
// every later stage. The returned image always starts at (0, 0).
func Normalize(img image.Image) (*image.Gray, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: nil image", ErrInvalidImageFormat)
	}
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: image is %dx%d", ErrInvalidImageFormat, width, height)
	}

	gray := image.NewGray(image.Rect(0, 0, width, height))

	if src, ok := img.(*image.Gray); ok {
		for y := 0; y < height; y++ {
			srcOff := src.PixOffset(bounds.Min.X, bounds.Min.Y+y)
			copy(gray.Pix[y*gray.Stride:y*gray.Stride+width], src.Pix[srcOff:srcOff+width])
		}
		return gray, nil
	}

	// imaging applies the 0.299/0.587/0.114 luma weights and rebases the bounds to (0, 0).
	lum := imaging.Grayscale(img)
	for y := 0; y < height; y++ {
		row := lum.Pix[y*lum.Stride : y*lum.Stride+width*4]
		dst := gray.Pix[y*gray.Stride : y*gray.Stride+width]
		for x := range dst {
			dst[x] = row[x*4]
		}
	}
	return gray, nil
}
