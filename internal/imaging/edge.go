package imaging

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// EdgeDetectResult contains an edge-detected image encoded as base64 PNG.
//
// The result is a grayscale image where white pixels (255) represent detected
// edges and black pixels (0) represent non-edges.
type EdgeDetectResult struct {
	// Width of the output image in pixels (same as input).
	Width int `json:"width"`

	// Height of the output image in pixels (same as input).
	Height int `json:"height"`

	// EdgePixels is the number of pixels marked as edges.
	EdgePixels int `json:"edge_pixels"`

	// ImageBase64 is the edge image encoded as base64 PNG.
	ImageBase64 string `json:"image_base64"`

	// MimeType is always "image/png" for edge detection results.
	MimeType string `json:"mime_type"`
}

// NewEdgeResult packages a binary edge map as a base64 PNG together with the
// number of edge pixels it contains.
//
// Parameters:
//   - edges: Edge map with edges at 255 and everything else 0, such as the
//     one the document detector produces.
//
// Returns:
//   - *EdgeDetectResult: Grayscale edge image as base64 PNG.
//   - error: Non-nil if PNG encoding fails.
func NewEdgeResult(edges *image.Gray) (*EdgeDetectResult, error) {
	bounds := edges.Bounds()

	count := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		row := edges.Pix[edges.PixOffset(bounds.Min.X, y):edges.PixOffset(bounds.Max.X, y)]
		for _, v := range row {
			if v == 255 {
				count++
			}
		}
	}

	encoded, err := EncodePNGBase64(edges)
	if err != nil {
		return nil, fmt.Errorf("failed to encode edge image: %w", err)
	}

	return &EdgeDetectResult{
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
		EdgePixels:  count,
		ImageBase64: encoded,
		MimeType:    "image/png",
	}, nil
}

// Canny performs Canny edge detection on an image that has already been
// smoothed, typically with a Gaussian blur.
//
// Parameters:
//   - img: Pre-blurred source image. Color input is reduced to luminance.
//   - thresholdLow: Low threshold (0-255). Weak edges below it are discarded.
//   - thresholdHigh: High threshold (0-255). Edges above it are always kept.
//
// Returns a *image.Gray with origin (0,0) where edges are 255 and everything
// else 0.
//
// # Algorithm
//
//  1. Luminance: ITU-R BT.601 weights (0.299*R + 0.587*G + 0.114*B)
//  2. Gradients: 3x3 Sobel operators, magnitude = sqrt(Gx² + Gy²)
//  3. Non-maximum suppression: keep only local maxima along the gradient
//     direction, thinning edges to one pixel
//  4. Hysteresis: pixels above thresholdHigh seed edges; pixels above
//     thresholdLow are kept when 8-connected to a seed through other
//     such pixels
//
// Thresholds are expressed on the 0-255 intensity scale. A hard step from
// black to white produces a gradient magnitude of 4*255.
func Canny(img image.Image, thresholdLow, thresholdHigh int) *image.Gray {
	bounds := img.Bounds()
	return canny(luminance(img), bounds.Dx(), bounds.Dy(), thresholdLow, thresholdHigh)
}

// luminance converts an image to a row-major grid of 0-1 luminance values.
func luminance(img image.Image) [][]float64 {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	gray := make([][]float64, height)
	for y := 0; y < height; y++ {
		gray[y] = make([]float64, width)
		for x := 0; x < width; x++ {
			r, g, b, _ := img.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()
			rf := float64(r>>8) / 255.0
			gf := float64(g>>8) / 255.0
			bf := float64(b>>8) / 255.0
			gray[y][x] = 0.299*rf + 0.587*gf + 0.114*bf
		}
	}
	return gray
}

func canny(gray [][]float64, width, height, thresholdLow, thresholdHigh int) *image.Gray {
	result := image.NewGray(image.Rect(0, 0, width, height))
	if width < 3 || height < 3 {
		return result
	}

	sobelX := [3][3]float64{
		{-1, 0, 1},
		{-2, 0, 2},
		{-1, 0, 1},
	}
	sobelY := [3][3]float64{
		{-1, -2, -1},
		{0, 0, 0},
		{1, 2, 1},
	}

	magnitude := make([][]float64, height)
	direction := make([][]float64, height)
	for y := 0; y < height; y++ {
		magnitude[y] = make([]float64, width)
		direction[y] = make([]float64, width)

		for x := 0; x < width; x++ {
			var gx, gy float64
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					py := clamp(y+ky, 0, height-1)
					px := clamp(x+kx, 0, width-1)
					gx += gray[py][px] * sobelX[ky+1][kx+1]
					gy += gray[py][px] * sobelY[ky+1][kx+1]
				}
			}
			magnitude[y][x] = math.Sqrt(gx*gx + gy*gy)
			direction[y][x] = math.Atan2(gy, gx)
		}
	}

	// Non-maximum suppression
	suppressed := make([][]float64, height)
	for y := 0; y < height; y++ {
		suppressed[y] = make([]float64, width)
		for x := 0; x < width; x++ {
			if y == 0 || y == height-1 || x == 0 || x == width-1 {
				continue
			}

			angle := direction[y][x]
			mag := magnitude[y][x]

			var n1, n2 float64
			if (angle >= -math.Pi/8 && angle < math.Pi/8) || (angle >= 7*math.Pi/8 || angle < -7*math.Pi/8) {
				n1 = magnitude[y][x-1]
				n2 = magnitude[y][x+1]
			} else if (angle >= math.Pi/8 && angle < 3*math.Pi/8) || (angle >= -7*math.Pi/8 && angle < -5*math.Pi/8) {
				n1 = magnitude[y-1][x-1]
				n2 = magnitude[y+1][x+1]
			} else if (angle >= 3*math.Pi/8 && angle < 5*math.Pi/8) || (angle >= -5*math.Pi/8 && angle < -3*math.Pi/8) {
				n1 = magnitude[y-1][x]
				n2 = magnitude[y+1][x]
			} else {
				n1 = magnitude[y-1][x+1]
				n2 = magnitude[y+1][x-1]
			}

			if mag >= n1 && mag > n2 {
				suppressed[y][x] = mag
			}
		}
	}

	// Hysteresis: grow from strong pixels through weak ones.
	lowThresh := float64(thresholdLow) / 255.0
	highThresh := float64(thresholdHigh) / 255.0

	stack := make([]image.Point, 0, 256)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if suppressed[y][x] >= highThresh && suppressed[y][x] > 0 {
				result.Pix[y*result.Stride+x] = 255
				stack = append(stack, image.Point{X: x, Y: y})
			}
		}
	}

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				nx, ny := p.X+dx, p.Y+dy
				if nx < 0 || ny < 0 || nx >= width || ny >= height {
					continue
				}
				i := ny*result.Stride + nx
				if result.Pix[i] == 0 && suppressed[ny][nx] >= lowThresh && suppressed[ny][nx] > 0 {
					result.Pix[i] = 255
					stack = append(stack, image.Point{X: nx, Y: ny})
				}
			}
		}
	}

	return result
}

// clamp constrains an integer value to the range [lo, hi].
func clamp(val, lo, hi int) int {
	if val < lo {
		return lo
	}
	if val > hi {
		return hi
	}
	return val
}

// ToGray converts an image to 8-bit grayscale with origin (0,0) using
// BT.601 luminance weights.
func ToGray(img image.Image) *image.Gray {
	src := imaging.Grayscale(img)
	gray := image.NewGray(src.Bounds())
	for i := range gray.Pix {
		gray.Pix[i] = src.Pix[i*4]
	}
	return gray
}
