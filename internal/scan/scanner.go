package scan

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"time"

	"github.com/rs/zerolog"

	"github.com/ironsheep/docscan-mcp/internal/detection"
	"github.com/ironsheep/docscan-mcp/internal/geometry"
	"github.com/ironsheep/docscan-mcp/internal/imaging"
	"github.com/ironsheep/docscan-mcp/internal/transform"
)

// outlineColor is the colour of the detected outline on preview images.
var outlineColor = color.NRGBA{R: 0, G: 255, B: 0, A: 255}

// Options controls the scan pipeline.
type Options struct {
	// DetectHeight is the height the photograph is resized to before outline
	// detection. Zero or negative detects at full resolution.
	DetectHeight int

	// CannyLow and CannyHigh are the edge detection hysteresis thresholds.
	CannyLow  int
	CannyHigh int

	// Candidates is how many of the largest outlines are examined.
	Candidates int

	// BlockSize is the odd neighbourhood size for local thresholding.
	BlockSize int

	// Offset is subtracted from the local mean when thresholding.
	Offset float64

	// Fill colours warped pixels that fall outside the photograph.
	Fill color.Color

	// FallbackFullImage uses the whole photograph as the page when no
	// outline is found, instead of failing.
	FallbackFullImage bool
}

// DefaultOptions returns the standard scanner settings.
func DefaultOptions() Options {
	return Options{
		DetectHeight: 500,
		CannyLow:     75,
		CannyHigh:    200,
		Candidates:   5,
		BlockSize:    11,
		Offset:       10,
		Fill:         color.Black,
	}
}

// Detection is the outcome of locating a page in a photograph.
type Detection struct {
	// Corners are the page corners in the photograph's coordinate space,
	// ordered top-left, top-right, bottom-right, bottom-left.
	Corners geometry.Quad `json:"corners"`

	// Ratio is the photograph height divided by the detection height.
	Ratio float64 `json:"ratio"`

	// Detected is false when the corners came from the full-image fallback.
	Detected bool `json:"detected"`

	// Outline is the detection-scale photograph with the corners drawn on it.
	Outline *image.NRGBA `json:"-"`

	// Edges is the edge map detection worked from.
	Edges *image.Gray `json:"-"`
}

// Result is a scanned page.
type Result struct {
	Detection

	// Warped is the top-down colour view of the page.
	Warped *image.NRGBA `json:"-"`

	// Scanned is Warped converted to grayscale and binarized.
	Scanned *image.Gray `json:"-"`
}

// Scanner turns photographs of paper documents into flat, binarized scans.
//
// A Scanner holds no mutable state and is safe for concurrent use.
type Scanner struct {
	opts Options
	log  zerolog.Logger
}

// New creates a Scanner. Zero-valued options fall back to DefaultOptions.
func New(opts Options, logger zerolog.Logger) *Scanner {
	def := DefaultOptions()
	if opts.CannyLow <= 0 {
		opts.CannyLow = def.CannyLow
	}
	if opts.CannyHigh <= 0 {
		opts.CannyHigh = def.CannyHigh
	}
	if opts.Candidates <= 0 {
		opts.Candidates = def.Candidates
	}
	if opts.BlockSize == 0 {
		opts.BlockSize = def.BlockSize
	}
	if opts.Fill == nil {
		opts.Fill = def.Fill
	}
	return &Scanner{opts: opts, log: logger}
}

// Options returns the options the scanner runs with.
func (s *Scanner) Options() Options {
	return s.opts
}

// Detect finds the page outline in img.
//
// The outline is searched for on a copy resized to DetectHeight, and the
// corners are scaled back by the resize ratio. When no outline is found,
// Detect returns an error wrapping detection.ErrDocumentNotFound, unless
// FallbackFullImage is set, in which case the image's own corners are used.
func (s *Scanner) Detect(img image.Image) (*Detection, error) {
	start := time.Now()
	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return nil, fmt.Errorf("%w: empty image", geometry.ErrDegenerateGeometry)
	}

	small, ratio := imaging.ResizeToHeight(img, s.opts.DetectHeight)

	doc, err := detection.FindDocument(small, s.detectionOptions())
	det := &Detection{Ratio: ratio, Detected: err == nil}
	if doc != nil {
		det.Edges = doc.Edges
	}

	var smallQuad geometry.Quad
	switch {
	case err == nil:
		smallQuad, err = geometry.OrderPoints(doc.Corners)
		if err != nil {
			return nil, err
		}
		det.Corners = toSource(smallQuad, small.Bounds().Min, bounds.Min, ratio)
	case errors.Is(err, detection.ErrDocumentNotFound) && s.opts.FallbackFullImage:
		s.log.Warn().Int("candidates", doc.Candidates).Msg("no document outline found, using full image")
		det.Corners = imageCorners(bounds)
		smallQuad = imageCorners(small.Bounds())
	default:
		return nil, fmt.Errorf("failed to detect document: %w", err)
	}

	det.Outline = imaging.DrawQuad(small, smallQuad, outlineColor, 2)

	s.log.Debug().
		Int("width", bounds.Dx()).
		Int("height", bounds.Dy()).
		Float64("ratio", ratio).
		Bool("detected", det.Detected).
		Str("corners", fmt.Sprint(det.Corners)).
		Dur("elapsed", time.Since(start)).
		Msg("document detected")

	return det, nil
}

// EdgeMap returns the edge map Detect searches for the page outline: img
// resized to DetectHeight, blurred, run through Canny and dilated. The
// ratio maps edge map coordinates back onto img.
func (s *Scanner) EdgeMap(img image.Image) (*image.Gray, float64) {
	small, ratio := imaging.ResizeToHeight(img, s.opts.DetectHeight)
	return detection.EdgeMap(small, s.detectionOptions()), ratio
}

func (s *Scanner) detectionOptions() detection.Options {
	opts := detection.DefaultOptions()
	opts.CannyLow = s.opts.CannyLow
	opts.CannyHigh = s.opts.CannyHigh
	opts.Candidates = s.opts.Candidates
	return opts
}

// Scan detects the page in img, warps it to a top-down view and binarizes it.
func (s *Scanner) Scan(img image.Image) (*Result, error) {
	det, err := s.Detect(img)
	if err != nil {
		return nil, err
	}

	result, err := s.rectify(img, det.Corners.Points())
	if err != nil {
		return nil, err
	}
	result.Detection = *det
	return result, nil
}

// ScanWithCorners warps and binarizes the page outlined by pts, skipping
// detection. pts are in img's coordinate space, in any order.
func (s *Scanner) ScanWithCorners(img image.Image, pts []geometry.Point) (*Result, error) {
	q, err := geometry.OrderPoints(pts)
	if err != nil {
		return nil, err
	}

	result, err := s.rectify(img, pts)
	if err != nil {
		return nil, err
	}
	result.Corners = q
	result.Ratio = 1
	result.Detected = false
	return result, nil
}

func (s *Scanner) rectify(img image.Image, pts []geometry.Point) (*Result, error) {
	start := time.Now()

	warped, err := transform.FourPointTransform(img, pts, transform.WithFill(s.opts.Fill))
	if err != nil {
		return nil, fmt.Errorf("failed to warp document: %w", err)
	}

	scanned, err := imaging.ThresholdLocal(imaging.ToGray(warped), s.opts.BlockSize, s.opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to threshold document: %w", err)
	}

	s.log.Debug().
		Int("width", warped.Bounds().Dx()).
		Int("height", warped.Bounds().Dy()).
		Dur("elapsed", time.Since(start)).
		Msg("document rectified")

	return &Result{Warped: warped, Scanned: scanned}, nil
}

// toSource maps a detection-scale quad back onto the source image.
func toSource(q geometry.Quad, smallOrigin, srcOrigin image.Point, ratio float64) geometry.Quad {
	var out geometry.Quad
	for i, p := range q {
		out[i] = geometry.Pt(
			(p.X-float64(smallOrigin.X))*ratio+float64(srcOrigin.X),
			(p.Y-float64(smallOrigin.Y))*ratio+float64(srcOrigin.Y),
		)
	}
	return out
}

// imageCorners returns the centres of the four corner pixels of r.
func imageCorners(r image.Rectangle) geometry.Quad {
	minX, minY := float64(r.Min.X), float64(r.Min.Y)
	maxX, maxY := float64(r.Max.X-1), float64(r.Max.Y-1)
	return geometry.Quad{
		geometry.Pt(minX, minY),
		geometry.Pt(maxX, minY),
		geometry.Pt(maxX, maxY),
		geometry.Pt(minX, maxY),
	}
}
