// Command docscan turns a photograph of a document into a flat,
// black-and-white scan from the command line.
package main

import (
	"flag"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ironsheep/docscan-mcp/internal/config"
	"github.com/ironsheep/docscan-mcp/internal/geometry"
	"github.com/ironsheep/docscan-mcp/internal/imaging"
	"github.com/ironsheep/docscan-mcp/internal/logging"
	"github.com/ironsheep/docscan-mcp/internal/ocr"
	"github.com/ironsheep/docscan-mcp/internal/scan"
)

// job is one command-line scan.
type job struct {
	imagePath string
	coords    string
	outDir    string
	ocr       bool
	language  string
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "docscan: %v\n", err)
		os.Exit(2)
	}

	var j job
	flag.StringVar(&j.imagePath, "image", "", "Path to the photograph to scan.")
	flag.StringVar(&j.coords, "coords", "", "Page corners, e.g. \"[(73, 239), (356, 117), (475, 265), (187, 443)]\". Skips detection.")
	flag.StringVar(&j.outDir, "out", ".", "Directory for the outline, warped and scan images.")
	flag.BoolVar(&j.ocr, "ocr", false, "Read the text on the scanned page.")
	flag.StringVar(&j.language, "lang", cfg.Scan.Language, "Tesseract language, e.g. eng, deu or eng+fra.")
	fallback := flag.Bool("fallback", cfg.Scan.Fallback, "Use the whole photo when no page outline is found.")
	detectHeight := flag.Int("detect-height", cfg.Scan.DetectHeight, "Height to detect the outline at; 0 for full resolution.")
	flag.Parse()

	if j.imagePath == "" {
		fmt.Fprintln(os.Stderr, "docscan: -image is required")
		flag.Usage()
		os.Exit(2)
	}

	logger, closer, err := logging.Setup(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "docscan: %v\n", err)
		os.Exit(2)
	}
	defer closer.Close()

	opts := cfg.ScanOptions()
	opts.FallbackFullImage = *fallback
	opts.DetectHeight = *detectHeight

	if err := run(logger, scan.New(opts, logger), j); err != nil {
		logger.Error().Err(err).Str("image", j.imagePath).Msg("scan failed")
		closer.Close()
		os.Exit(1)
	}
}

func run(logger zerolog.Logger, scanner *scan.Scanner, j job) error {
	start := time.Now()

	img, err := imaging.Open(j.imagePath)
	if err != nil {
		return err
	}

	var result *scan.Result
	if j.coords != "" {
		pts, err := geometry.ParsePoints(j.coords)
		if err != nil {
			return err
		}
		if result, err = scanner.ScanWithCorners(img, pts); err != nil {
			return err
		}
	} else {
		if result, err = scanner.Scan(img); err != nil {
			return err
		}
	}

	logger.Info().
		Str("corners", fmt.Sprint(result.Corners)).
		Bool("detected", result.Detected).
		Float64("ratio", result.Ratio).
		Msg("page located")

	name := strings.TrimSuffix(filepath.Base(j.imagePath), filepath.Ext(j.imagePath))
	outputs := []struct {
		suffix string
		img    image.Image
	}{
		{"outline", result.Outline},
		{"warped", result.Warped},
		{"scan", result.Scanned},
	}
	for _, out := range outputs {
		// No outline is drawn when the corners were given.
		if out.suffix == "outline" && result.Outline == nil {
			continue
		}
		path := filepath.Join(j.outDir, fmt.Sprintf("%s-%s.png", name, out.suffix))
		if err := imaging.Save(out.img, path); err != nil {
			return err
		}
		logger.Info().Str("path", path).Str("kind", out.suffix).Msg("image written")
	}

	if j.ocr {
		text, err := ocr.Recognize(result.Scanned, j.language)
		if err != nil {
			return err
		}
		path := filepath.Join(j.outDir, name+"-scan.txt")
		if err := os.WriteFile(path, []byte(text.FullText), 0o644); err != nil {
			return fmt.Errorf("failed to write text: %w", err)
		}
		logger.Info().Str("path", path).Int("words", len(text.Regions)).Msg("text recognized")
	}

	logger.Info().Dur("elapsed", logging.Since(start)).Msg("scan complete")
	return nil
}
