package detection

import (
	"errors"
	"image"
	"image/color"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/effect"

	"github.com/ironsheep/docscan-mcp/internal/geometry"
	"github.com/ironsheep/docscan-mcp/internal/imaging"
)

// ErrDocumentNotFound is returned when none of the examined outlines
// simplifies to a four-sided polygon.
var ErrDocumentNotFound = errors.New("no four-sided document outline found")

// Options controls document outline detection.
type Options struct {
	// CannyLow and CannyHigh are the hysteresis thresholds (0-255).
	CannyLow  int
	CannyHigh int

	// BlurRadius is the Gaussian blur radius applied before edge detection.
	// A radius of 2 gives a 5x5 kernel.
	BlurRadius float64

	// DilateRadius closes small gaps in the edge map. Zero disables it.
	DilateRadius float64

	// Candidates is how many of the largest outlines are examined.
	Candidates int

	// Epsilon is the polygon approximation tolerance as a fraction of the
	// outline's perimeter.
	Epsilon float64

	// MinAreaFraction rejects outlines enclosing less than this fraction of
	// the image area. Zero accepts any size.
	MinAreaFraction float64

	// MinPixels discards edge fragments with fewer pixels.
	MinPixels int
}

// DefaultOptions returns the parameters used for photographs resized to a
// height of 500 pixels.
func DefaultOptions() Options {
	return Options{
		CannyLow:     75,
		CannyHigh:    200,
		BlurRadius:   2,
		DilateRadius: 1,
		Candidates:   5,
		Epsilon:      0.02,
		MinPixels:    10,
	}
}

// Document is a detected page outline.
type Document struct {
	// Corners are the four outline vertices in the order the approximation
	// produced them. Use geometry.OrderPoints to label them.
	Corners []geometry.Point `json:"corners"`

	// Area is the area enclosed by the outline in square pixels.
	Area float64 `json:"area"`

	// Perimeter is the length of the outline's convex hull.
	Perimeter float64 `json:"perimeter"`

	// Candidates is the number of outlines examined before this one was
	// accepted, including it.
	Candidates int `json:"candidates"`

	// Edges is the edge map detection worked from.
	Edges *image.Gray `json:"-"`
}

// FindDocument looks for the outline of a sheet of paper in img.
//
// The image is converted to grayscale, blurred and run through Canny edge
// detection. Connected edge groups are reduced to their convex hulls and
// ranked by enclosed area. The largest Candidates hulls are simplified with
// Douglas-Peucker at Epsilon times their perimeter; the first one that comes
// out with exactly four vertices is the document.
//
// Corners are reported in img's coordinate space. If no candidate has four
// vertices, ErrDocumentNotFound is returned together with a Document that
// carries the edge map and the number of candidates examined.
func FindDocument(img image.Image, opts Options) (*Document, error) {
	if opts.Candidates <= 0 {
		opts.Candidates = DefaultOptions().Candidates
	}
	if opts.Epsilon <= 0 {
		opts.Epsilon = DefaultOptions().Epsilon
	}

	edges := EdgeMap(img, opts)
	contours := findContours(edges, opts.MinPixels)

	bounds := img.Bounds()
	minArea := opts.MinAreaFraction * float64(bounds.Dx()*bounds.Dy())
	origin := geometry.Pt(float64(bounds.Min.X), float64(bounds.Min.Y))

	doc := &Document{Edges: edges}
	for i, c := range contours {
		if i >= opts.Candidates {
			break
		}
		doc.Candidates = i + 1

		if c.Area < minArea {
			break
		}

		perimeter := Perimeter(c.Hull)
		approx := ApproxPolygon(c.Hull, opts.Epsilon*perimeter)
		if len(approx) != 4 {
			continue
		}

		corners := make([]geometry.Point, 4)
		for j, p := range approx {
			corners[j] = geometry.Pt(p.X+origin.X, p.Y+origin.Y)
		}
		doc.Corners = corners
		doc.Area = PolygonArea(approx)
		doc.Perimeter = perimeter
		return doc, nil
	}

	return doc, ErrDocumentNotFound
}

// EdgeMap returns the binary edge map FindDocument works from: grayscale,
// Gaussian blur, Canny and optional dilation. The result has origin (0,0).
func EdgeMap(img image.Image, opts Options) *image.Gray {
	var smoothed image.Image = effect.Grayscale(img)
	if opts.BlurRadius > 0 {
		smoothed = blur.Gaussian(smoothed, opts.BlurRadius)
	}

	edges := imaging.Canny(smoothed, opts.CannyLow, opts.CannyHigh)
	if opts.DilateRadius <= 0 {
		return edges
	}

	dilated := effect.Dilate(edges, opts.DilateRadius)
	out := image.NewGray(edges.Bounds())
	db := dilated.Bounds()
	for y := 0; y < out.Bounds().Dy(); y++ {
		for x := 0; x < out.Bounds().Dx(); x++ {
			c := dilated.RGBAAt(db.Min.X+x, db.Min.Y+y)
			if c.R >= 128 {
				out.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return out
}
