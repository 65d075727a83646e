package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

// ImageResult is the wire form of a produced image: its size and a base64
// PNG payload, plus the file it was written to when one was requested.
type ImageResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64,omitempty"`
	MimeType    string `json:"mime_type,omitempty"`
	SavedPath   string `json:"saved_path,omitempty"`
}

// EncodePNGBase64 encodes img as PNG and returns it base64 encoded.
func EncodePNGBase64(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// NewImageResult builds an ImageResult with the image inlined as base64 PNG.
func NewImageResult(img image.Image) (*ImageResult, error) {
	encoded, err := EncodePNGBase64(img)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return &ImageResult{
		Width:       img.Bounds().Dx(),
		Height:      img.Bounds().Dy(),
		ImageBase64: encoded,
		MimeType:    "image/png",
	}, nil
}

// Save writes img to path, creating parent directories as needed. The
// output format follows the file extension (png, jpg, gif, tif, bmp).
func Save(img image.Image, path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("failed to save image: %w", err)
	}
	return nil
}
