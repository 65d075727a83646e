package imaging

import (
	"image"

	"github.com/disintegration/imaging"
)

// ResizeToHeight returns a copy of img scaled to the given height with the
// aspect ratio preserved, together with ratio = originalHeight / height.
//
// Detection runs on the smaller copy; multiplying the corners it finds by
// ratio maps them back onto the original photograph.
//
// A non-positive height, or one at least as large as the image, returns img
// itself with a ratio of 1.
func ResizeToHeight(img image.Image, height int) (image.Image, float64) {
	h := img.Bounds().Dy()
	if height <= 0 || height >= h {
		return img, 1.0
	}
	resized := imaging.Resize(img, 0, height, imaging.Lanczos)
	return resized, float64(h) / float64(height)
}

// FitHeight scales img to the given height for previews.
func FitHeight(img image.Image, height int) *image.NRGBA {
	if height <= 0 {
		return imaging.Clone(img)
	}
	return imaging.Resize(img, 0, height, imaging.Lanczos)
}
