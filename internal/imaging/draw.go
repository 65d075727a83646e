package imaging

import (
	"fmt"
	"image"
	"image/color"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/docscan-mcp/internal/geometry"
)

// ParseColor parses "#RGB", "#RRGGBB" or "#RRGGBBAA" (the leading '#' is
// optional) into an NRGBA colour.
func ParseColor(s string) (color.NRGBA, error) {
	hex := strings.TrimSpace(s)
	if !strings.HasPrefix(hex, "#") {
		hex = "#" + hex
	}

	alpha := uint8(255)
	if len(hex) == 9 {
		a, err := strconv.ParseUint(hex[7:9], 16, 8)
		if err != nil {
			return color.NRGBA{}, fmt.Errorf("invalid alpha in color %q: %w", s, err)
		}
		alpha = uint8(a)
		hex = hex[:7]
	}

	c, err := colorful.Hex(hex)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: alpha}, nil
}

// DrawQuad returns a copy of img with the closed outline q drawn on it.
//
// Corners are in img's coordinate space; the returned image has origin
// (0,0). Thickness below 1 is treated as 1.
func DrawQuad(img image.Image, q geometry.Quad, c color.Color, thickness int) *image.NRGBA {
	out := imaging.Clone(img)
	origin := img.Bounds().Min
	if thickness < 1 {
		thickness = 1
	}

	for _, p := range q {
		if !p.IsFinite() {
			return out
		}
	}

	for i := 0; i < 4; i++ {
		a := q[i]
		b := q[(i+1)%4]
		drawLine(out,
			int(a.X+0.5)-origin.X, int(a.Y+0.5)-origin.Y,
			int(b.X+0.5)-origin.X, int(b.Y+0.5)-origin.Y,
			c, thickness)
	}
	return out
}

// drawLine draws a Bresenham line with a square brush.
func drawLine(img *image.NRGBA, x0, y0, x1, y1 int, c color.Color, thickness int) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	half := thickness / 2

	for {
		for by := -half; by < thickness-half; by++ {
			for bx := -half; bx < thickness-half; bx++ {
				img.Set(x0+bx, y0+by, c)
			}
		}
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
