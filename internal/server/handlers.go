package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/ironsheep/docscan-mcp/internal/geometry"
	"github.com/ironsheep/docscan-mcp/internal/imaging"
	"github.com/ironsheep/docscan-mcp/internal/logging"
	"github.com/ironsheep/docscan-mcp/internal/ocr"
	"github.com/ironsheep/docscan-mcp/internal/scan"
	"github.com/ironsheep/docscan-mcp/internal/transform"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_load", "document_scan").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	start := time.Now()
	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		s.log.Warn().Str("tool", params.Name).Err(err).Dur("elapsed", logging.Since(start)).Msg("tool failed")
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}
	s.log.Info().Str("tool", params.Name).Dur("elapsed", logging.Since(start)).Msg("tool completed")

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler:
//  1. Unmarshals arguments from JSON
//  2. Applies configured defaults for optional parameters
//  3. Loads images from cache as needed
//  4. Runs the geometry, transform, scan or ocr operation
//  5. Returns the result or error
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Basic Image Information
	case "image_load":
		return s.handleImageLoad(args)
	case "image_dimensions":
		return s.handleImageDimensions(args)
	case "image_edge_detect":
		return s.handleImageEdgeDetect(args)

	// Page Geometry
	case "document_order_points":
		return s.handleOrderPoints(args)
	case "document_four_point_transform":
		return s.handleFourPointTransform(args)

	// Scanning
	case "document_detect":
		return s.handleDetect(args)
	case "document_scan":
		return s.handleScan(args)
	case "document_threshold":
		return s.handleThreshold(args)

	// OCR
	case "document_ocr":
		return s.handleOCR(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// unmarshalArgs decodes tool arguments. Missing arguments decode as an
// empty object so handlers can report the missing field themselves.
func unmarshalArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

// parsePointsArg accepts corner points as a string ("[(x, y), ...]"), as
// an array of [x, y] pairs or as an array of {"x": .., "y": ..} objects.
func parsePointsArg(raw json.RawMessage) ([]geometry.Point, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, errors.New("points is required")
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return geometry.ParsePoints(text)
	}

	var pairs [][]float64
	if err := json.Unmarshal(raw, &pairs); err == nil {
		pts := make([]geometry.Point, len(pairs))
		for i, pair := range pairs {
			if len(pair) != 2 {
				return nil, fmt.Errorf("point %d: expected [x, y], got %d values", i, len(pair))
			}
			pts[i] = geometry.Pt(pair[0], pair[1])
		}
		return pts, nil
	}

	var objs []geometry.Point
	if err := json.Unmarshal(raw, &objs); err != nil {
		return nil, fmt.Errorf("points: expected a string, [[x, y], ...] or [{\"x\": .., \"y\": ..}, ...]")
	}
	return objs, nil
}

// loadImage returns the cached image at path.
func (s *Server) loadImage(path string) (image.Image, error) {
	if path == "" {
		return nil, errors.New("path is required")
	}
	return s.cache.Load(path)
}

// outputPath returns requested, or a fresh file name under the configured
// output directory.
func (s *Server) outputPath(tool, requested string) string {
	if requested != "" {
		return requested
	}
	return filepath.Join(s.cfg.OutputDir, fmt.Sprintf("%s-%s.png", tool, uuid.NewString()))
}

// saveResult writes img and returns it as an ImageResult carrying the saved
// path. The base64 payload is omitted unless inline is set.
func (s *Server) saveResult(img image.Image, tool, requested string, inline bool) (*imaging.ImageResult, error) {
	path := s.outputPath(tool, requested)
	if err := imaging.Save(img, path); err != nil {
		return nil, err
	}

	result := &imaging.ImageResult{
		Width:     img.Bounds().Dx(),
		Height:    img.Bounds().Dy(),
		SavedPath: path,
	}
	if inline {
		encoded, err := imaging.EncodePNGBase64(img)
		if err != nil {
			return nil, fmt.Errorf("failed to encode image: %w", err)
		}
		result.ImageBase64 = encoded
		result.MimeType = "image/png"
	}
	return result, nil
}

// scanOverrides holds the per-call pipeline settings. Unset fields keep the
// configured values.
type scanOverrides struct {
	DetectHeight *int     `json:"detect_height"`
	CannyLow     int      `json:"canny_low"`
	CannyHigh    int      `json:"canny_high"`
	Candidates   int      `json:"candidates"`
	BlockSize    int      `json:"block_size"`
	Offset       *float64 `json:"offset"`
	FillColor    string   `json:"fill_color"`
	Fallback     *bool    `json:"fallback"`
}

// scanner builds a Scanner from the configuration with o applied.
func (s *Server) scanner(o scanOverrides) (*scan.Scanner, error) {
	opts := s.cfg.ScanOptions()
	if o.DetectHeight != nil {
		if *o.DetectHeight < 0 {
			return nil, fmt.Errorf("detect_height must not be negative, got %d", *o.DetectHeight)
		}
		opts.DetectHeight = *o.DetectHeight
	}
	if o.CannyLow > 0 {
		opts.CannyLow = o.CannyLow
	}
	if o.CannyHigh > 0 {
		opts.CannyHigh = o.CannyHigh
	}
	if opts.CannyHigh < opts.CannyLow {
		return nil, fmt.Errorf("canny_high (%d) must not be below canny_low (%d)", opts.CannyHigh, opts.CannyLow)
	}
	if o.Candidates > 0 {
		opts.Candidates = o.Candidates
	}
	if o.BlockSize != 0 {
		opts.BlockSize = o.BlockSize
	}
	if o.Offset != nil {
		opts.Offset = *o.Offset
	}
	if o.FillColor != "" {
		fill, err := imaging.ParseColor(o.FillColor)
		if err != nil {
			return nil, err
		}
		opts.Fill = fill
	}
	if o.Fallback != nil {
		opts.FallbackFullImage = *o.Fallback
	}
	return scan.New(opts, s.log), nil
}

// === Basic Image Information Handlers ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

func (s *Server) handleImageDimensions(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	return imaging.GetDimensions(s.cache, a.Path)
}

type imageEdgeDetectArgs struct {
	Path          string `json:"path"`
	ThresholdLow  int    `json:"threshold_low"`
	ThresholdHigh int    `json:"threshold_high"`
	DetectHeight  *int   `json:"detect_height"`
}

// EdgeMapResult is the edge map document detection searches, with the ratio
// that maps its coordinates back onto the photograph.
type EdgeMapResult struct {
	imaging.EdgeDetectResult
	Ratio float64 `json:"ratio"`
}

func (s *Server) handleImageEdgeDetect(args json.RawMessage) (interface{}, error) {
	var a imageEdgeDetectArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	scanner, err := s.scanner(scanOverrides{
		DetectHeight: a.DetectHeight,
		CannyLow:     a.ThresholdLow,
		CannyHigh:    a.ThresholdHigh,
	})
	if err != nil {
		return nil, err
	}
	img, err := s.loadImage(a.Path)
	if err != nil {
		return nil, err
	}

	edges, ratio := scanner.EdgeMap(img)
	result, err := imaging.NewEdgeResult(edges)
	if err != nil {
		return nil, err
	}
	return &EdgeMapResult{EdgeDetectResult: *result, Ratio: ratio}, nil
}

// === Page Geometry Handlers ===

type orderPointsArgs struct {
	Points json.RawMessage `json:"points"`
}

// OrderPointsResult is the labelled form of four corner points.
type OrderPointsResult struct {
	TopLeft     geometry.Point `json:"top_left"`
	TopRight    geometry.Point `json:"top_right"`
	BottomRight geometry.Point `json:"bottom_right"`
	BottomLeft  geometry.Point `json:"bottom_left"`

	// Width and Height are the size a four point transform would produce.
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (s *Server) handleOrderPoints(args json.RawMessage) (interface{}, error) {
	var a orderPointsArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	pts, err := parsePointsArg(a.Points)
	if err != nil {
		return nil, err
	}
	q, err := geometry.OrderPoints(pts)
	if err != nil {
		return nil, err
	}
	w, h := transform.OutputSize(q)
	return &OrderPointsResult{
		TopLeft:     q.TL(),
		TopRight:    q.TR(),
		BottomRight: q.BR(),
		BottomLeft:  q.BL(),
		Width:       w,
		Height:      h,
	}, nil
}

type fourPointTransformArgs struct {
	Path       string          `json:"path"`
	Points     json.RawMessage `json:"points"`
	FillColor  string          `json:"fill_color"`
	OutputPath string          `json:"output_path"`
	Inline     bool            `json:"inline"`
}

func (s *Server) handleFourPointTransform(args json.RawMessage) (interface{}, error) {
	var a fourPointTransformArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	pts, err := parsePointsArg(a.Points)
	if err != nil {
		return nil, err
	}

	fill := s.cfg.Scan.Fill()
	if a.FillColor != "" {
		if fill, err = imaging.ParseColor(a.FillColor); err != nil {
			return nil, err
		}
	}

	img, err := s.loadImage(a.Path)
	if err != nil {
		return nil, err
	}
	warped, err := transform.FourPointTransform(img, pts, transform.WithFill(fill))
	if err != nil {
		return nil, err
	}
	return s.saveResult(warped, "warped", a.OutputPath, a.Inline)
}

// === Scanning Handlers ===

type detectArgs struct {
	Path string `json:"path"`
	scanOverrides
}

// DetectResult reports where the page is in the photograph.
type DetectResult struct {
	scan.Detection

	// Outline is the detection-scale preview with the corners drawn on it.
	Outline *imaging.ImageResult `json:"outline"`
}

func (s *Server) handleDetect(args json.RawMessage) (interface{}, error) {
	var a detectArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	sc, err := s.scanner(a.scanOverrides)
	if err != nil {
		return nil, err
	}
	img, err := s.loadImage(a.Path)
	if err != nil {
		return nil, err
	}

	det, err := sc.Detect(img)
	if err != nil {
		return nil, err
	}
	outline, err := imaging.NewImageResult(det.Outline)
	if err != nil {
		return nil, err
	}
	return &DetectResult{Detection: *det, Outline: outline}, nil
}

type scanArgs struct {
	Path       string          `json:"path"`
	Points     json.RawMessage `json:"points"`
	OutputPath string          `json:"output_path"`
	WarpedPath string          `json:"warped_path"`
	Inline     bool            `json:"inline"`
	scanOverrides
}

// ScanResult reports a scanned page and where it was written.
type ScanResult struct {
	scan.Detection

	// Scanned is the binarized page.
	Scanned *imaging.ImageResult `json:"scanned"`

	// Warped is the colour page, present when a warped_path was given.
	Warped *imaging.ImageResult `json:"warped,omitempty"`
}

func (s *Server) handleScan(args json.RawMessage) (interface{}, error) {
	var a scanArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	sc, err := s.scanner(a.scanOverrides)
	if err != nil {
		return nil, err
	}
	img, err := s.loadImage(a.Path)
	if err != nil {
		return nil, err
	}

	res, err := s.runScan(sc, img, a.Points)
	if err != nil {
		return nil, err
	}

	out := &ScanResult{Detection: res.Detection}
	if out.Scanned, err = s.saveResult(res.Scanned, "scan", a.OutputPath, a.Inline); err != nil {
		return nil, err
	}
	if a.WarpedPath != "" {
		if out.Warped, err = s.saveResult(res.Warped, "warped", a.WarpedPath, false); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// runScan scans img with the given corners, or detects them when raw is
// empty.
func (s *Server) runScan(sc *scan.Scanner, img image.Image, raw json.RawMessage) (*scan.Result, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return sc.Scan(img)
	}
	pts, err := parsePointsArg(raw)
	if err != nil {
		return nil, err
	}
	return sc.ScanWithCorners(img, pts)
}

type thresholdArgs struct {
	Path       string   `json:"path"`
	BlockSize  int      `json:"block_size"`
	Offset     *float64 `json:"offset"`
	OutputPath string   `json:"output_path"`
	Inline     bool     `json:"inline"`
}

func (s *Server) handleThreshold(args json.RawMessage) (interface{}, error) {
	var a thresholdArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if a.BlockSize == 0 {
		a.BlockSize = s.cfg.Scan.BlockSize
	}
	offset := s.cfg.Scan.Offset
	if a.Offset != nil {
		offset = *a.Offset
	}

	img, err := s.loadImage(a.Path)
	if err != nil {
		return nil, err
	}
	binary, err := imaging.ThresholdLocal(imaging.ToGray(img), a.BlockSize, offset)
	if err != nil {
		return nil, err
	}
	return s.saveResult(binary, "threshold", a.OutputPath, a.Inline)
}

// === OCR Handlers ===

type ocrArgs struct {
	Path          string          `json:"path"`
	Language      string          `json:"language"`
	Scan          bool            `json:"scan"`
	Points        json.RawMessage `json:"points"`
	MinConfidence float64         `json:"min_confidence"`
	scanOverrides
}

func (s *Server) handleOCR(args json.RawMessage) (interface{}, error) {
	var a ocrArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Language == "" {
		a.Language = s.cfg.Scan.Language
	}

	img, err := s.loadImage(a.Path)
	if err != nil {
		return nil, err
	}

	page := img
	if a.Scan || len(a.Points) > 0 {
		sc, err := s.scanner(a.scanOverrides)
		if err != nil {
			return nil, err
		}
		res, err := s.runScan(sc, img, a.Points)
		if err != nil {
			return nil, err
		}
		page = res.Scanned
	}

	result, err := ocr.Recognize(page, a.Language)
	if err != nil {
		return nil, err
	}
	if a.MinConfidence > 0 {
		result.Regions = result.FilterConfidence(a.MinConfidence)
	}
	return result, nil
}
