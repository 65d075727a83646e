// Package transform rectifies a photographed document into a flat,
// top-down view using a four point perspective transform.
package transform

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/docscan-mcp/internal/geometry"
)

// MaxCanvasPixels bounds the output canvas so that wildly out-of-range
// corners cannot trigger a multi-gigabyte allocation.
const MaxCanvasPixels = 1 << 28

// ErrCanvasTooLarge is returned when the computed canvas exceeds MaxCanvasPixels.
var ErrCanvasTooLarge = errors.New("output canvas too large")

type options struct {
	fill color.Color
}

// Option configures FourPointTransform.
type Option func(*options)

// WithFill sets the colour used for output pixels whose source sample falls
// outside the input image. The default is opaque black.
func WithFill(c color.Color) Option {
	return func(o *options) {
		if c != nil {
			o.fill = c
		}
	}
}

// OutputSize returns the canvas dimensions for an ordered quadrilateral.
//
// The width is the longer of the top and bottom edges and the height is the
// longer of the left and right edges, each rounded to the nearest pixel.
// Using the longer edge keeps a document photographed at an angle from being
// cropped.
func OutputSize(q geometry.Quad) (width, height int) {
	widthA := geometry.Distance(q.BR(), q.BL())
	widthB := geometry.Distance(q.TR(), q.TL())
	heightA := geometry.Distance(q.TR(), q.BR())
	heightB := geometry.Distance(q.TL(), q.BL())

	return int(math.Round(math.Max(widthA, widthB))), int(math.Round(math.Max(heightA, heightB)))
}

// FourPointTransform returns the top-down view of the quadrilateral outlined
// by pts.
//
// Parameters:
//   - img: Source image. It is never modified.
//   - pts: Exactly four corners in img's coordinate space, in any order.
//   - opts: Optional settings such as WithFill.
//
// Returns:
//   - *image.NRGBA: A new image of exactly OutputSize(OrderPoints(pts))
//     pixels with its origin at (0,0).
//   - error: Non-nil when the input cannot be warped.
//
// # Algorithm
//
//  1. Order the corners as top-left, top-right, bottom-right, bottom-left.
//  2. Size the canvas from the longer opposing edges (see OutputSize).
//  3. Map the corners onto (0,0), (w-1,0), (w-1,h-1), (0,h-1).
//  4. Resample the source through the inverse homography with bilinear
//     interpolation (see Warp).
//
// A canvas dimension of one pixel is solved against a unit destination
// extent, otherwise two destination corners coincide and the system has no
// solution.
//
// # Errors
//
//   - geometry.ErrInvalidPointCount if len(pts) != 4
//   - geometry.ErrDegenerateGeometry if the canvas width or height is <= 0,
//     a corner is not finite, or the corners are collinear
//   - ErrCanvasTooLarge if the canvas exceeds MaxCanvasPixels
func FourPointTransform(img image.Image, pts []geometry.Point, opts ...Option) (*image.NRGBA, error) {
	o := options{fill: color.Black}
	for _, opt := range opts {
		opt(&o)
	}

	q, err := geometry.OrderPoints(pts)
	if err != nil {
		return nil, err
	}
	for _, p := range q {
		if !p.IsFinite() {
			return nil, fmt.Errorf("%w: corner %v is not finite", geometry.ErrDegenerateGeometry, p)
		}
	}

	width, height := OutputSize(q)
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: output size %dx%d", geometry.ErrDegenerateGeometry, width, height)
	}
	if float64(width)*float64(height) > MaxCanvasPixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrCanvasTooLarge, width, height)
	}

	dst := geometry.RectQuad(extent(width), extent(height))
	m, err := geometry.PerspectiveTransform(q, dst)
	if err != nil {
		return nil, err
	}

	return Warp(img, m, width, height, o.fill)
}

// extent is the coordinate of the last pixel along an axis of n pixels.
func extent(n int) float64 {
	if n <= 1 {
		return 1
	}
	return float64(n - 1)
}

// Warp resamples img through the transform m into a new width x height canvas.
//
// m maps source coordinates to canvas coordinates; every canvas pixel (x, y)
// is filled from the source at m⁻¹(x, y) using bilinear interpolation.
// Neighbours outside the source contribute the fill colour, so pixels that
// map entirely outside the image take the fill colour and pixels straddling
// the border blend into it. Colour is interpolated premultiplied by alpha.
//
// Returns geometry.ErrDegenerateGeometry (wrapped) if m is not invertible.
func Warp(img image.Image, m geometry.Matrix, width, height int, fill color.Color) (*image.NRGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: output size %dx%d", geometry.ErrDegenerateGeometry, width, height)
	}
	inv, err := m.Inverse()
	if err != nil {
		return nil, err
	}
	if fill == nil {
		fill = color.Black
	}

	origin := img.Bounds().Min
	src := imaging.Clone(img)
	s := sampler{
		src:  src,
		w:    src.Bounds().Dx(),
		h:    src.Bounds().Dy(),
		fill: color.NRGBAModel.Convert(fill).(color.NRGBA),
	}

	out := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		fy := float64(y)
		row := out.Pix[y*out.Stride:]
		for x := 0; x < width; x++ {
			fx := float64(x)
			w := inv[2][0]*fx + inv[2][1]*fy + inv[2][2]
			sx := (inv[0][0]*fx+inv[0][1]*fy+inv[0][2])/w - float64(origin.X)
			sy := (inv[1][0]*fx+inv[1][1]*fy+inv[1][2])/w - float64(origin.Y)

			c := s.bilinear(sx, sy)
			i := x * 4
			row[i+0] = c.R
			row[i+1] = c.G
			row[i+2] = c.B
			row[i+3] = c.A
		}
	}
	return out, nil
}

type sampler struct {
	src  *image.NRGBA
	w, h int
	fill color.NRGBA
}

func (s *sampler) at(x, y int) color.NRGBA {
	if x < 0 || y < 0 || x >= s.w || y >= s.h {
		return s.fill
	}
	i := y*s.src.Stride + x*4
	p := s.src.Pix[i : i+4 : i+4]
	return color.NRGBA{R: p[0], G: p[1], B: p[2], A: p[3]}
}

func (s *sampler) bilinear(x, y float64) color.NRGBA {
	if math.IsNaN(x) || math.IsNaN(y) || x <= -1 || y <= -1 || x >= float64(s.w) || y >= float64(s.h) {
		return s.fill
	}

	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))
	dx := x - float64(x0)
	dy := y - float64(y0)

	neighbours := [4]color.NRGBA{s.at(x0, y0), s.at(x0+1, y0), s.at(x0, y0+1), s.at(x0+1, y0+1)}
	weights := [4]float64{(1 - dx) * (1 - dy), dx * (1 - dy), (1 - dx) * dy, dx * dy}

	// Colour is mixed premultiplied so transparent neighbours do not bleed
	// into opaque ones.
	var r, g, b, a float64
	for i, c := range neighbours {
		wa := weights[i] * float64(c.A)
		r += float64(c.R) * wa
		g += float64(c.G) * wa
		b += float64(c.B) * wa
		a += wa
	}
	if a == 0 {
		for i, c := range neighbours {
			r += float64(c.R) * weights[i]
			g += float64(c.G) * weights[i]
			b += float64(c.B) * weights[i]
		}
		return color.NRGBA{R: clampByte(r), G: clampByte(g), B: clampByte(b)}
	}
	return color.NRGBA{R: clampByte(r / a), G: clampByte(g / a), B: clampByte(b / a), A: clampByte(a)}
}

func clampByte(v float64) uint8 {
	return uint8(math.Min(255, math.Max(0, math.Round(v))))
}
