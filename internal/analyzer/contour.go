package analyzer

import (
	"image"
	"math"
)

// Contour is a closed, ordered boundary curve. The last point connects back to the first.
type Contour []image.Point

// Area returns the enclosed area using the shoelace formula
func (c Contour) Area() float64 {
	if len(c) < 3 {
		return 0
	}
	var sum int
	for i := range c {
		j := (i + 1) % len(c)
		sum += c[i].X*c[j].Y - c[j].X*c[i].Y
	}
	return math.Abs(float64(sum)) / 2
}

// Perimeter returns the closed arc length
func (c Contour) Perimeter() float64 {
	if len(c) < 2 {
		return 0
	}
	var length float64
	for i := range c {
		j := (i + 1) % len(c)
		length += math.Hypot(float64(c[j].X-c[i].X), float64(c[j].Y-c[i].Y))
	}
	return length
}

// Bounds returns the smallest upright rectangle holding every point. Max is exclusive,
// so Dx() and Dy() are the pixel width and height.
func (c Contour) Bounds() image.Rectangle {
	if len(c) == 0 {
		return image.Rectangle{}
	}
	r := image.Rectangle{Min: c[0], Max: c[0]}
	for _, p := range c[1:] {
		r.Min.X = min(r.Min.X, p.X)
		r.Min.Y = min(r.Min.Y, p.Y)
		r.Max.X = max(r.Max.X, p.X)
		r.Max.Y = max(r.Max.Y, p.Y)
	}
	r.Max = r.Max.Add(image.Pt(1, 1))
	return r
}

// neighbours in clockwise screen order starting east
var neighbours = [8]image.Point{
	{1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}, {0, -1}, {1, -1},
}

const west = 4

func neighbourIndex(d image.Point) int {
	for i, n := range neighbours {
		if n == d {
			return i
		}
	}
	return -1
}

// contourExtractor finds the outer boundaries of foreground regions in a mask
type contourExtractor struct{}

func newContourExtractor() *contourExtractor {
	return &contourExtractor{}
}

// FindExternal returns one contour per foreground region that is not enclosed by
// another region, in raster-scan order of each region's top-left pixel.
// Foreground is 8-connected and background 4-connected.
func (ce *contourExtractor) FindExternal(mask *image.Gray) []Contour {
	width, height := mask.Rect.Dx(), mask.Rect.Dy()
	if width == 0 || height == 0 {
		return nil
	}
	fg := func(x, y int) bool {
		return x >= 0 && y >= 0 && x < width && y < height && mask.Pix[y*mask.Stride+x] != maskBackground
	}

	outer := ce.outerBackground(width, height, fg)
	labels := make([]bool, width*height)
	var contours []Contour
	var queue []image.Point

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if !fg(x, y) || labels[y*width+x] {
				continue
			}

			external := false
			labels[y*width+x] = true
			queue = append(queue[:0], image.Pt(x, y))
			for len(queue) > 0 {
				p := queue[len(queue)-1]
				queue = queue[:len(queue)-1]

				if p.X == 0 || p.Y == 0 || p.X == width-1 || p.Y == height-1 {
					external = true
				}
				for i, n := range neighbours {
					q := p.Add(n)
					if i%2 == 0 && !fg(q.X, q.Y) && q.In(mask.Rect) && outer[q.Y*width+q.X] {
						external = true
					}
					if fg(q.X, q.Y) && !labels[q.Y*width+q.X] {
						labels[q.Y*width+q.X] = true
						queue = append(queue, q)
					}
				}
			}

			if external {
				contours = append(contours, compressRuns(ce.trace(image.Pt(x, y), fg)))
			}
		}
	}
	return contours
}

// outerBackground marks the background pixels 4-connected to the image border
func (ce *contourExtractor) outerBackground(width, height int, fg func(x, y int) bool) []bool {
	outer := make([]bool, width*height)
	var queue []image.Point
	seed := func(x, y int) {
		if !fg(x, y) && !outer[y*width+x] {
			outer[y*width+x] = true
			queue = append(queue, image.Pt(x, y))
		}
	}
	for x := 0; x < width; x++ {
		seed(x, 0)
		seed(x, height-1)
	}
	for y := 0; y < height; y++ {
		seed(0, y)
		seed(width-1, y)
	}

	for len(queue) > 0 {
		p := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		for i := 0; i < len(neighbours); i += 2 {
			q := p.Add(neighbours[i])
			if q.X >= 0 && q.Y >= 0 && q.X < width && q.Y < height {
				seed(q.X, q.Y)
			}
		}
	}
	return outer
}

// trace follows the boundary clockwise from start, which must be the first foreground
// pixel of its region in raster order, using Moore-neighbour tracing with Jacob's
// stopping criterion.
func (ce *contourExtractor) trace(start image.Point, fg func(x, y int) bool) Contour {
	points := Contour{start}
	p, back := start, west
	var first image.Point
	moved := false

	for {
		next, nextBack, ok := image.Point{}, 0, false
		for i := 1; i <= len(neighbours); i++ {
			d := (back + i) % len(neighbours)
			q := p.Add(neighbours[d])
			if fg(q.X, q.Y) {
				prev := p.Add(neighbours[(back+i-1)%len(neighbours)])
				next, nextBack, ok = q, neighbourIndex(prev.Sub(q)), true
				break
			}
		}
		if !ok {
			return points
		}
		if p == start && moved && next == first {
			break
		}
		if !moved {
			first, moved = next, true
		}
		p, back = next, nextBack
		points = append(points, p)
	}

	if len(points) > 1 && points[len(points)-1] == start {
		points = points[:len(points)-1]
	}
	return points
}

// compressRuns keeps only the end points of straight horizontal, vertical and
// diagonal runs
func compressRuns(c Contour) Contour {
	if len(c) < 3 {
		return c
	}
	out := make(Contour, 0, len(c))
	for i := range c {
		prev := c[(i-1+len(c))%len(c)]
		next := c[(i+1)%len(c)]
		if c[i].Sub(prev) != next.Sub(c[i]) {
			out = append(out, c[i])
		}
	}
	if len(out) == 0 {
		return c[:1]
	}
	return out
}

// largest returns the contour with the greatest area; the first one wins ties
func largest(contours []Contour) (Contour, bool) {
	if len(contours) == 0 {
		return nil, false
	}
	best, bestArea := contours[0], contours[0].Area()
	for _, c := range contours[1:] {
		if area := c.Area(); area > bestArea {
			best, bestArea = c, area
		}
	}
	return best, true
}
