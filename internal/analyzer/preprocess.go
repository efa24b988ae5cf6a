package analyzer

import (
	"image"

	"github.com/disintegration/imaging"
)

const (
	maskForeground uint8 = 255
	maskBackground uint8 = 0
)

// gaussian5x5 is the binomial approximation of a sigma ~1.1 Gaussian
var gaussian5x5 = [25]float64{
	1, 4, 6, 4, 1,
	4, 16, 24, 16, 4,
	6, 24, 36, 24, 6,
	4, 16, 24, 16, 4,
	1, 4, 6, 4, 1,
}

// preprocessor turns a grayscale raster into a binary silhouette mask
type preprocessor struct {
	blockSize  int
	bias       float64
	openKernel int
}

func newPreprocessor(opts AnalysisOptions) *preprocessor {
	return &preprocessor{
		blockSize:  opts.ThresholdBlockSize,
		bias:       opts.ThresholdBias,
		openKernel: opts.OpeningKernelSize,
	}
}

// Preprocess blurs, binarizes and opens gray. The result is a new mask with values 0 or 255.
func (p *preprocessor) Preprocess(gray *image.Gray) *image.Gray {
	blurred := p.blur(gray)
	binary := p.adaptiveThreshold(blurred)
	return p.open(binary)
}

func (p *preprocessor) blur(gray *image.Gray) *image.Gray {
	conv := imaging.Convolve5x5(gray, gaussian5x5, &imaging.ConvolveOptions{Normalize: true})

	bounds := gray.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	out := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		row := conv.Pix[y*conv.Stride : y*conv.Stride+width*4]
		dst := out.Pix[y*out.Stride : y*out.Stride+width]
		for x := range dst {
			dst[x] = row[x*4]
		}
	}
	return out
}

// adaptiveThreshold marks a pixel as foreground when it exceeds the mean of its
// blockSize x blockSize neighbourhood minus bias. Windows are clipped at the border.
func (p *preprocessor) adaptiveThreshold(gray *image.Gray) *image.Gray {
	width, height := gray.Rect.Dx(), gray.Rect.Dy()
	integral := integralImage(gray)
	stride := width + 1
	radius := p.blockSize / 2

	out := image.NewGray(gray.Rect)
	for y := 0; y < height; y++ {
		y0, y1 := max(y-radius, 0), min(y+radius+1, height)
		for x := 0; x < width; x++ {
			x0, x1 := max(x-radius, 0), min(x+radius+1, width)

			sum := integral[y1*stride+x1] - integral[y0*stride+x1] -
				integral[y1*stride+x0] + integral[y0*stride+x0]
			count := (x1 - x0) * (y1 - y0)
			mean := float64(sum) / float64(count)

			if float64(gray.Pix[y*gray.Stride+x]) > mean-p.bias {
				out.Pix[y*out.Stride+x] = maskForeground
			} else {
				out.Pix[y*out.Stride+x] = maskBackground
			}
		}
	}
	return out
}

// integralImage returns a (width+1) x (height+1) summed-area table
func integralImage(gray *image.Gray) []uint64 {
	width, height := gray.Rect.Dx(), gray.Rect.Dy()
	stride := width + 1
	table := make([]uint64, stride*(height+1))
	for y := 0; y < height; y++ {
		var rowSum uint64
		for x := 0; x < width; x++ {
			rowSum += uint64(gray.Pix[y*gray.Stride+x])
			table[(y+1)*stride+x+1] = table[y*stride+x+1] + rowSum
		}
	}
	return table
}

// open performs erosion followed by dilation with a square structuring element
func (p *preprocessor) open(mask *image.Gray) *image.Gray {
	return morph(morph(mask, p.openKernel, true), p.openKernel, false)
}

// morph applies a k x k min (erode) or max (dilate) filter. Pixels outside the
// image do not take part in the window.
func morph(mask *image.Gray, k int, erode bool) *image.Gray {
	width, height := mask.Rect.Dx(), mask.Rect.Dy()
	radius := k / 2
	out := image.NewGray(mask.Rect)

	for y := 0; y < height; y++ {
		y0, y1 := max(y-radius, 0), min(y+radius+1, height)
		for x := 0; x < width; x++ {
			x0, x1 := max(x-radius, 0), min(x+radius+1, width)

			value := mask.Pix[y*mask.Stride+x]
			for wy := y0; wy < y1; wy++ {
				row := mask.Pix[wy*mask.Stride : wy*mask.Stride+width]
				for wx := x0; wx < x1; wx++ {
					if erode && row[wx] < value {
						value = row[wx]
					} else if !erode && row[wx] > value {
						value = row[wx]
					}
				}
			}
			out.Pix[y*out.Stride+x] = value
		}
	}
	return out
}
