package geometry

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
)

// Point is a 2D coordinate in image space.
type Point struct {
	X float64 `json:"x"` // Horizontal position (0 = leftmost)
	Y float64 `json:"y"` // Vertical position (0 = topmost)
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

// Distance returns the Euclidean distance between p and q.
func Distance(p, q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Scale multiplies both coordinates by f.
func (p Point) Scale(f float64) Point {
	return Point{X: p.X * f, Y: p.Y * f}
}

// IsFinite reports whether neither coordinate is NaN or infinite.
func (p Point) IsFinite() bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}

func (p Point) String() string {
	return fmt.Sprintf("(%g, %g)", p.X, p.Y)
}

// ScalePoints returns a new slice with every point multiplied by f.
//
// This is how corners found on a downscaled detection copy are mapped back
// to the original image resolution.
func ScalePoints(pts []Point, f float64) []Point {
	out := make([]Point, len(pts))
	for i, p := range pts {
		out[i] = p.Scale(f)
	}
	return out
}

var numberPattern = regexp.MustCompile(`[-+]?(?:\d+\.?\d*|\.\d+)(?:[eE][-+]?\d+)?`)

// ParsePoints reads a list of x,y pairs from free-form text.
//
// Any punctuation between the numbers is ignored, so all of these parse to
// the same two points:
//
//	"[(73, 239), (356, 117)]"
//	"73,239,356,117"
//	"73 239; 356 117"
//
// An odd number of values or an input with no numbers is an error.
func ParsePoints(s string) ([]Point, error) {
	fields := numberPattern.FindAllString(s, -1)
	if len(fields) == 0 {
		return nil, fmt.Errorf("failed to parse points %q: no coordinates found", s)
	}
	if len(fields)%2 != 0 {
		return nil, fmt.Errorf("failed to parse points %q: odd number of coordinates (%d)", s, len(fields))
	}

	pts := make([]Point, 0, len(fields)/2)
	for i := 0; i < len(fields); i += 2 {
		x, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse x coordinate %q: %w", fields[i], err)
		}
		y, err := strconv.ParseFloat(fields[i+1], 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse y coordinate %q: %w", fields[i+1], err)
		}
		pts = append(pts, Point{X: x, Y: y})
	}
	return pts, nil
}
