// Package ocr reads the text on scanned pages using Tesseract.
//
// This package wraps the Tesseract OCR engine (via gosseract/v2). It is the
// last, optional step of the scanner: the binarized page produced by package
// scan is passed to Recognize and comes back as plain text plus word boxes.
//
// # Prerequisites
//
// Tesseract must be installed on the system:
//   - Ubuntu/Debian: apt-get install tesseract-ocr libtesseract-dev
//   - macOS: brew install tesseract
//
// Language data files are required for each language:
//   - Ubuntu/Debian: apt-get install tesseract-ocr-eng (for English)
//   - Other languages: tesseract-ocr-<lang> packages
//
// Several languages can be combined with "+", for example "eng+deu".
//
// # Error Handling
//
// Functions return errors for:
//   - Missing or invalid image files
//   - Unsupported language codes
//   - Tesseract initialization failures
//
// If bounding box extraction fails (e.g., Tesseract version mismatch),
// Recognize still returns the extracted text with an empty Regions slice.
package ocr
