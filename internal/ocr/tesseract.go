package ocr

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/ironsheep/docscan-mcp/internal/imaging"
)

// DefaultLanguage is used when no language is given.
const DefaultLanguage = "eng"

// Bounds represents a rectangular bounding box in pixel coordinates.
type Bounds struct {
	X1 int `json:"x1"` // Left edge
	Y1 int `json:"y1"` // Top edge
	X2 int `json:"x2"` // Right edge
	Y2 int `json:"y2"` // Bottom edge
}

// TextRegion represents a word with its location and OCR confidence.
type TextRegion struct {
	// Text is the recognized word.
	Text string `json:"text"`

	// Confidence is the OCR confidence score (0.0 to 1.0).
	Confidence float64 `json:"confidence"`

	// Bounds is the bounding box around the word in the page image.
	Bounds Bounds `json:"bounds"`
}

// OCRResult contains the text recognized on a page.
type OCRResult struct {
	// FullText is all recognized text with line breaks preserved.
	FullText string `json:"full_text"`

	// Language is the Tesseract language the page was read with.
	Language string `json:"language"`

	// Regions contains individual words with their bounding boxes.
	// May be empty if bounding box extraction fails (text will still be in FullText).
	Regions []TextRegion `json:"regions"`
}

// Recognize reads the text on a page image with Tesseract.
//
// The image is handed to Tesseract as an in-memory PNG, so a scanned page
// can be read straight from the pipeline without touching the disk. Binarized
// output from the scanner gives the best results.
//
// Parameters:
//   - img: Page image. Bounds in the result are relative to its top-left
//     corner.
//   - language: Tesseract language code such as "eng" or "deu". Empty means
//     DefaultLanguage. The language data must be installed.
//
// If word-level bounding boxes cannot be extracted, the full text is still
// returned with an empty Regions slice.
func Recognize(img image.Image, language string) (*OCRResult, error) {
	if language == "" {
		language = DefaultLanguage
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode page: %w", err)
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(strings.Split(language, "+")...); err != nil {
		return nil, fmt.Errorf("failed to set language: %w", err)
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return nil, fmt.Errorf("tesseract OCR failed: %w", err)
	}

	result := &OCRResult{
		FullText: text,
		Language: language,
		Regions:  []TextRegion{},
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return result, nil
	}

	for _, box := range boxes {
		if strings.TrimSpace(box.Word) == "" {
			continue
		}
		result.Regions = append(result.Regions, TextRegion{
			Text:       box.Word,
			Confidence: float64(box.Confidence) / 100.0,
			Bounds: Bounds{
				X1: box.Box.Min.X,
				Y1: box.Box.Min.Y,
				X2: box.Box.Max.X,
				Y2: box.Box.Max.Y,
			},
		})
	}

	return result, nil
}

// ExtractText loads an image file and reads the text on it.
//
// JPEG photographs are rotated according to their EXIF orientation first.
// See Recognize for the language parameter.
func ExtractText(imagePath string, language string) (*OCRResult, error) {
	img, err := imaging.Open(imagePath)
	if err != nil {
		return nil, err
	}
	return Recognize(img, language)
}

// FilterConfidence returns the words of r whose confidence is at least min.
func (r *OCRResult) FilterConfidence(min float64) []TextRegion {
	out := make([]TextRegion, 0, len(r.Regions))
	for _, region := range r.Regions {
		if region.Confidence >= min {
			out = append(out, region)
		}
	}
	return out
}
