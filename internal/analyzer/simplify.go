package analyzer

import (
	"image"
	"math"
)

// shapeSimplifier reduces a closed contour to a small polygon
type shapeSimplifier struct {
	epsilonRatio float64
}

func newShapeSimplifier(opts AnalysisOptions) *shapeSimplifier {
	return &shapeSimplifier{epsilonRatio: opts.EpsilonRatio}
}

// Simplify runs Douglas-Peucker on the closed contour with a tolerance of
// epsilonRatio times its perimeter. Vertices keep their contour order.
func (s *shapeSimplifier) Simplify(c Contour) []image.Point {
	if len(c) < 3 {
		return append([]image.Point(nil), c...)
	}
	epsilon := s.epsilonRatio * c.Perimeter()

	// Split the closed curve into two open chains at point 0 and the point farthest from it.
	split, farthest := 0, -1.0
	for i, p := range c {
		if d := pointDistance(c[0], p); d > farthest {
			split, farthest = i, d
		}
	}

	n := len(c)
	at := func(i int) image.Point { return c[i%n] }
	keep := make([]bool, n)
	keep[0] = true
	keep[split%n] = true

	type span struct{ first, last int }
	stack := []span{{0, split}, {split, n}}
	for len(stack) > 0 {
		sp := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if sp.last-sp.first < 2 {
			continue
		}

		index, dmax := -1, epsilon
		for i := sp.first + 1; i < sp.last; i++ {
			if d := segmentDistance(at(i), at(sp.first), at(sp.last)); d > dmax {
				index, dmax = i, d
			}
		}
		if index < 0 {
			continue
		}
		keep[index%n] = true
		stack = append(stack, span{sp.first, index}, span{index, sp.last})
	}

	polygon := make([]image.Point, 0, 8)
	for i, k := range keep {
		if k {
			polygon = append(polygon, c[i])
		}
	}
	return polygon
}

func pointDistance(a, b image.Point) float64 {
	return math.Hypot(float64(b.X-a.X), float64(b.Y-a.Y))
}

// segmentDistance is the distance from p to the line through a and b, or to a
// when both ends coincide
func segmentDistance(p, a, b image.Point) float64 {
	dx, dy := float64(b.X-a.X), float64(b.Y-a.Y)
	length := math.Hypot(dx, dy)
	if length == 0 {
		return pointDistance(p, a)
	}
	return math.Abs(dy*float64(p.X-a.X)-dx*float64(p.Y-a.Y)) / length
}
