package geometry

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidPointCount is returned when an operation that needs a
	// quadrilateral receives anything other than four points.
	ErrInvalidPointCount = errors.New("exactly 4 points are required")

	// ErrDegenerateGeometry is returned when the corners collapse (duplicate,
	// collinear or non-finite points) so no output canvas or transform exists.
	ErrDegenerateGeometry = errors.New("degenerate quadrilateral")
)

// Corner indexes into a Quad.
const (
	TopLeft = iota
	TopRight
	BottomRight
	BottomLeft
)

// Quad holds four corners in the fixed order top-left, top-right,
// bottom-right, bottom-left.
type Quad [4]Point

// TL returns the top-left corner.
func (q Quad) TL() Point { return q[TopLeft] }

// TR returns the top-right corner.
func (q Quad) TR() Point { return q[TopRight] }

// BR returns the bottom-right corner.
func (q Quad) BR() Point { return q[BottomRight] }

// BL returns the bottom-left corner.
func (q Quad) BL() Point { return q[BottomLeft] }

// Points returns the corners as a slice in TL, TR, BR, BL order.
func (q Quad) Points() []Point {
	return []Point{q[0], q[1], q[2], q[3]}
}

// RectQuad returns the corners of the axis-aligned rectangle spanning
// (0,0) to (w,h).
func RectQuad(w, h float64) Quad {
	return Quad{{0, 0}, {w, 0}, {w, h}, {0, h}}
}

// OrderPoints labels four unordered points as top-left, top-right,
// bottom-right and bottom-left.
//
// The point with the smallest x+y is top-left and the largest is
// bottom-right. The point with the smallest y-x is top-right and the largest
// is bottom-left. Every returned corner is one of the input points; no
// coordinates are synthesized.
//
// When several points share an extremum the first one in input order wins.
// That keeps the result deterministic but is not geometrically meaningful:
// for pathological input (non-convex shapes, squares rotated by 45 degrees)
// the same input point may receive two labels.
//
// Returns ErrInvalidPointCount (wrapped) unless len(pts) == 4.
func OrderPoints(pts []Point) (Quad, error) {
	if len(pts) != 4 {
		return Quad{}, fmt.Errorf("%w: got %d", ErrInvalidPointCount, len(pts))
	}

	minSum, maxSum := 0, 0
	minDiff, maxDiff := 0, 0
	for i := 1; i < len(pts); i++ {
		sum := pts[i].X + pts[i].Y
		diff := pts[i].Y - pts[i].X

		if sum < pts[minSum].X+pts[minSum].Y {
			minSum = i
		}
		if sum > pts[maxSum].X+pts[maxSum].Y {
			maxSum = i
		}
		if diff < pts[minDiff].Y-pts[minDiff].X {
			minDiff = i
		}
		if diff > pts[maxDiff].Y-pts[maxDiff].X {
			maxDiff = i
		}
	}

	return Quad{
		TopLeft:     pts[minSum],
		TopRight:    pts[minDiff],
		BottomRight: pts[maxSum],
		BottomLeft:  pts[maxDiff],
	}, nil
}
