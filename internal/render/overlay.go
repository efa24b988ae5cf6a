// Package render draws analysis results on top of the screened photograph.
package render

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
)

// Overlay is the geometry drawn by Draw. Coordinates are relative to the image origin.
type Overlay struct {
	Bounds  image.Rectangle
	Polygon []image.Point
	Regions []image.Rectangle
}

var (
	boundsColor  = color.NRGBA{0, 255, 0, 255}
	polygonColor = color.NRGBA{255, 0, 0, 255}
	regionColor  = color.NRGBA{0, 170, 255, 255}
	vertexColor  = color.NRGBA{255, 204, 0, 255}
)

// Draw returns a copy of img with the silhouette box, the simplified polygon and
// any sampling regions drawn on it.
func Draw(img image.Image, o Overlay) *image.NRGBA {
	nrgba := imaging.Clone(img)
	w := nrgba.Bounds().Dx()
	h := nrgba.Bounds().Dy()
	stroke := int(math.Max(2, 0.004*float64(min(w, h))))

	for _, r := range o.Regions {
		drawBox(nrgba, r, regionColor, 1)
	}
	if !o.Bounds.Empty() {
		drawBox(nrgba, o.Bounds, boundsColor, stroke)
	}

	n := len(o.Polygon)
	for i := 0; i < n && n > 1; i++ {
		drawLine(nrgba, o.Polygon[i], o.Polygon[(i+1)%n], polygonColor)
	}
	for _, p := range o.Polygon {
		drawHLine(nrgba, p.Y, p.X-stroke, p.X+stroke+1, vertexColor)
		drawVLine(nrgba, p.X, p.Y-stroke, p.Y+stroke+1, vertexColor)
	}
	return nrgba
}

// Save writes img to path in the format named by its extension. quality applies
// to jpeg and lossy webp; quality >= 100 makes webp lossless.
func Save(img image.Image, path string, quality int) error {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	switch ext {
	case "webp":
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		opts := &webp.Options{Lossless: quality >= 100, Quality: float32(quality)}
		if err := webp.Encode(f, img, opts); err != nil {
			f.Close()
			return fmt.Errorf("failed to encode webp: %w", err)
		}
		return f.Close()
	case "png", "gif", "bmp", "tif", "tiff":
		return imaging.Save(img, path)
	case "jpg", "jpeg":
		return imaging.Save(img, path, imaging.JPEGQuality(quality))
	default:
		return fmt.Errorf("unsupported output format %q", ext)
	}
}

func drawBox(img *image.NRGBA, r image.Rectangle, c color.NRGBA, stroke int) {
	for s := 0; s < stroke; s++ {
		drawHLine(img, r.Min.Y+s, r.Min.X, r.Max.X, c)
		drawHLine(img, r.Max.Y-1-s, r.Min.X, r.Max.X, c)
		drawVLine(img, r.Min.X+s, r.Min.Y, r.Max.Y, c)
		drawVLine(img, r.Max.X-1-s, r.Min.Y, r.Max.Y, c)
	}
}

// drawLine rasterises the segment a-b with Bresenham's algorithm
func drawLine(img *image.NRGBA, a, b image.Point, c color.NRGBA) {
	dx := abs(b.X - a.X)
	dy := -abs(b.Y - a.Y)
	sx, sy := 1, 1
	if a.X > b.X {
		sx = -1
	}
	if a.Y > b.Y {
		sy = -1
	}

	x, y := a.X, a.Y
	e := dx + dy
	for {
		setPixel(img, x, y, c)
		if x == b.X && y == b.Y {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x += sx
		}
		if e2 <= dx {
			e += dx
			y += sy
		}
	}
}

func setPixel(img *image.NRGBA, x, y int, c color.NRGBA) {
	if x < 0 || y < 0 || x >= img.Bounds().Dx() || y >= img.Bounds().Dy() {
		return
	}
	i := y*img.Stride + x*4
	img.Pix[i+0] = c.R
	img.Pix[i+1] = c.G
	img.Pix[i+2] = c.B
	img.Pix[i+3] = c.A
}

func drawHLine(img *image.NRGBA, y, x0, x1 int, c color.NRGBA) {
	if y < 0 || y >= img.Bounds().Dy() {
		return
	}
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	x0 = max(x0, 0)
	x1 = min(x1, img.Bounds().Dx())
	for x := x0; x < x1; x++ {
		setPixel(img, x, y, c)
	}
}

func drawVLine(img *image.NRGBA, x, y0, y1 int, c color.NRGBA) {
	if x < 0 || x >= img.Bounds().Dx() {
		return
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	y0 = max(y0, 0)
	y1 = min(y1, img.Bounds().Dy())
	for y := y0; y < y1; y++ {
		setPixel(img, x, y, c)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
