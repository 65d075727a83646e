package server

import (
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ironsheep/docscan-mcp/internal/detection"
	"github.com/ironsheep/docscan-mcp/internal/geometry"
	"github.com/ironsheep/docscan-mcp/internal/imaging"
)

// createTestImageFile creates a test image file and returns its path
func createTestImageFile(t *testing.T, width, height int, c color.Color) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return writeTestImage(t, img)
}

// createPhotoFile writes a dark 400x300 desk with a light page covering
// (60,40)-(339,259) and returns its path.
func createPhotoFile(t *testing.T) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 400, 300))
	page := image.Rect(60, 40, 340, 260)
	for y := 0; y < 300; y++ {
		for x := 0; x < 400; x++ {
			if image.Pt(x, y).In(page) {
				img.Set(x, y, color.RGBA{235, 230, 225, 255})
			} else {
				img.Set(x, y, color.RGBA{30, 35, 40, 255})
			}
		}
	}
	return writeTestImage(t, img)
}

func writeTestImage(t *testing.T, img image.Image) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "handler-test.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

// callTool runs a tools/call request and returns the response.
func callTool(t *testing.T, s *Server, name string, args map[string]interface{}) *MCPResponse {
	t.Helper()

	params := map[string]interface{}{
		"name":      name,
		"arguments": args,
	}
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		t.Fatalf("failed to marshal params: %v", err)
	}

	resp := s.handleToolsCall(&MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  paramsJSON,
	})
	if resp == nil {
		t.Fatal("handleToolsCall returned nil")
	}
	return resp
}

// decodeResult unpacks the JSON text content of a successful response.
func decodeResult(t *testing.T, resp *MCPResponse, v interface{}) {
	t.Helper()

	if resp.Error != nil {
		t.Fatalf("Unexpected error: %v (%v)", resp.Error.Message, resp.Error.Data)
	}
	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatal("Result should be a map")
	}
	content, ok := result["content"].([]map[string]interface{})
	if !ok || len(content) != 1 {
		t.Fatalf("expected one content item, got %v", result["content"])
	}
	text, ok := content[0]["text"].(string)
	if !ok {
		t.Fatal("content text should be a string")
	}
	if err := json.Unmarshal([]byte(text), v); err != nil {
		t.Fatalf("failed to decode result %q: %v", text, err)
	}
}

func expectToolError(t *testing.T, resp *MCPResponse, contains string) {
	t.Helper()

	if resp.Error == nil {
		t.Fatal("Expected error")
	}
	if resp.Error.Code != -32000 {
		t.Errorf("Error code: got %d, want -32000", resp.Error.Code)
	}
	data, _ := resp.Error.Data.(string)
	if contains != "" && !strings.Contains(data, contains) {
		t.Errorf("error data %q should contain %q", data, contains)
	}
}

func nearPoint(p geometry.Point, x, y, tolerance float64) bool {
	return math.Abs(p.X-x) <= tolerance && math.Abs(p.Y-y) <= tolerance
}

func TestHandleToolsCall_ImageLoad(t *testing.T) {
	s := newTestServer(t)
	imgPath := createTestImageFile(t, 100, 80, color.RGBA{255, 0, 0, 255})

	var info imaging.ImageInfo
	decodeResult(t, callTool(t, s, "image_load", map[string]interface{}{"path": imgPath}), &info)

	if info.Width != 100 || info.Height != 80 {
		t.Errorf("size: got %dx%d, want 100x80", info.Width, info.Height)
	}
	if info.Format != "png" {
		t.Errorf("format: got %s, want png", info.Format)
	}
}

func TestHandleToolsCall_ImageDimensions(t *testing.T) {
	s := newTestServer(t)
	imgPath := createTestImageFile(t, 200, 150, color.RGBA{0, 255, 0, 255})

	var dims imaging.DimensionsResult
	decodeResult(t, callTool(t, s, "image_dimensions", map[string]interface{}{"path": imgPath}), &dims)

	if dims.Width != 200 || dims.Height != 150 {
		t.Errorf("size: got %dx%d, want 200x150", dims.Width, dims.Height)
	}
}

func TestHandleToolsCall_NonExistentFile(t *testing.T) {
	s := newTestServer(t)

	resp := callTool(t, s, "image_load", map[string]interface{}{"path": "/nonexistent/image.png"})

	expectToolError(t, resp, "")
}

func TestHandleToolsCall_MissingPath(t *testing.T) {
	s := newTestServer(t)

	resp := callTool(t, s, "document_scan", map[string]interface{}{})

	expectToolError(t, resp, "path is required")
}

func TestHandleToolsCall_UnknownTool(t *testing.T) {
	s := newTestServer(t)

	resp := callTool(t, s, "image_crop", map[string]interface{}{"path": "/tmp/x.png"})

	expectToolError(t, resp, "unknown tool: image_crop")
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	s := newTestServer(t)

	resp := s.handleToolsCall(&MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Params:  json.RawMessage(`"not an object"`),
	})

	if resp.Error == nil {
		t.Fatal("Expected error for invalid params")
	}
	if resp.Error.Code != -32602 {
		t.Errorf("Error code: got %d, want -32602", resp.Error.Code)
	}
}

func TestHandleToolsCall_InvalidArguments(t *testing.T) {
	s := newTestServer(t)

	resp := s.handleToolsCall(&MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Params:  json.RawMessage(`{"name":"image_load","arguments":{"path":42}}`),
	})

	expectToolError(t, resp, "invalid arguments")
}

func TestHandleToolsCall_ImageEdgeDetect(t *testing.T) {
	s := newTestServer(t)
	imgPath := createPhotoFile(t)

	var result EdgeMapResult
	decodeResult(t, callTool(t, s, "image_edge_detect", map[string]interface{}{"path": imgPath}), &result)

	if result.Width != 400 || result.Height != 300 || result.Ratio != 1 {
		t.Errorf("size: got %dx%d ratio %v, want 400x300 ratio 1", result.Width, result.Height, result.Ratio)
	}
	if result.ImageBase64 == "" {
		t.Error("expected an encoded edge map")
	}

	img, err := imaging.Open(imgPath)
	if err != nil {
		t.Fatalf("failed to open photo: %v", err)
	}
	want := 0
	for _, v := range detection.EdgeMap(img, detection.DefaultOptions()).Pix {
		if v == 255 {
			want++
		}
	}
	if want == 0 {
		t.Fatal("expected edges around the page")
	}
	if result.EdgePixels != want {
		t.Errorf("EdgePixels: got %d, want %d from the detection edge map", result.EdgePixels, want)
	}
}

func TestHandleToolsCall_ImageEdgeDetect_DetectHeight(t *testing.T) {
	s := newTestServer(t)
	imgPath := createPhotoFile(t)

	var result EdgeMapResult
	decodeResult(t, callTool(t, s, "image_edge_detect", map[string]interface{}{
		"path":          imgPath,
		"detect_height": 150,
	}), &result)

	if result.Width != 200 || result.Height != 150 {
		t.Errorf("size: got %dx%d, want 200x150", result.Width, result.Height)
	}
	if math.Abs(result.Ratio-2) > 1e-9 {
		t.Errorf("ratio: got %v, want 2", result.Ratio)
	}

	expectToolError(t, callTool(t, s, "image_edge_detect", map[string]interface{}{
		"path":           imgPath,
		"threshold_low":  150,
		"threshold_high": 100,
	}), "canny_high")
}

func TestHandleToolsCall_OrderPoints(t *testing.T) {
	want := OrderPointsResult{
		TopLeft:     geometry.Pt(73, 239),
		TopRight:    geometry.Pt(356, 117),
		BottomRight: geometry.Pt(475, 265),
		BottomLeft:  geometry.Pt(187, 443),
		Width:       339,
		Height:      234,
	}

	tests := []struct {
		name   string
		points interface{}
	}{
		{"string", "[(73, 239), (356, 117), (475, 265), (187, 443)]"},
		{"pairs", [][]float64{{187, 443}, {475, 265}, {73, 239}, {356, 117}}},
		{"objects", []map[string]float64{
			{"x": 356, "y": 117}, {"x": 187, "y": 443}, {"x": 475, "y": 265}, {"x": 73, "y": 239},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)

			var got OrderPointsResult
			decodeResult(t, callTool(t, s, "document_order_points", map[string]interface{}{"points": tt.points}), &got)

			if got != want {
				t.Errorf("got %+v, want %+v", got, want)
			}
		})
	}
}

func TestHandleToolsCall_OrderPointsErrors(t *testing.T) {
	tests := []struct {
		name     string
		points   interface{}
		contains string
	}{
		{"missing", nil, "points is required"},
		{"three points", "0,0 10,0 10,10", "exactly 4 points"},
		{"short pair", [][]float64{{1, 2}, {3}}, "expected [x, y]"},
		{"wrong type", 42, "points: expected"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			args := map[string]interface{}{}
			if tt.points != nil {
				args["points"] = tt.points
			}

			resp := callTool(t, s, "document_order_points", args)

			expectToolError(t, resp, tt.contains)
		})
	}
}

func TestHandleToolsCall_OrderPointsCoincident(t *testing.T) {
	s := newTestServer(t)

	var got OrderPointsResult
	decodeResult(t, callTool(t, s, "document_order_points", map[string]interface{}{"points": "5,5 5,5 5,5 5,5"}), &got)

	if got.TopLeft != geometry.Pt(5, 5) || got.BottomRight != geometry.Pt(5, 5) {
		t.Errorf("unexpected corners %+v", got)
	}
	if got.Width != 0 || got.Height != 0 {
		t.Errorf("size: got %dx%d, want 0x0", got.Width, got.Height)
	}
}

func TestHandleToolsCall_FourPointTransform(t *testing.T) {
	s := newTestServer(t)
	imgPath := createPhotoFile(t)
	outPath := filepath.Join(t.TempDir(), "out", "page.png")

	var result imaging.ImageResult
	decodeResult(t, callTool(t, s, "document_four_point_transform", map[string]interface{}{
		"path":        imgPath,
		"points":      [][]float64{{339, 259}, {60, 40}, {339, 40}, {60, 259}},
		"output_path": outPath,
		"inline":      true,
	}), &result)

	if result.Width != 279 || result.Height != 219 {
		t.Errorf("size: got %dx%d, want 279x219", result.Width, result.Height)
	}
	if result.SavedPath != outPath {
		t.Errorf("saved path: got %s, want %s", result.SavedPath, outPath)
	}
	if result.ImageBase64 == "" || result.MimeType != "image/png" {
		t.Error("inline result should carry a PNG payload")
	}

	saved, err := imaging.Open(outPath)
	if err != nil {
		t.Fatalf("failed to open saved page: %v", err)
	}
	if saved.Bounds().Dx() != 279 || saved.Bounds().Dy() != 219 {
		t.Errorf("saved size: got %v", saved.Bounds())
	}
	r, g, b, _ := saved.At(140, 110).RGBA()
	if r>>8 < 200 || g>>8 < 200 || b>>8 < 200 {
		t.Errorf("page centre should be paper coloured, got %d,%d,%d", r>>8, g>>8, b>>8)
	}
}

func TestHandleToolsCall_FourPointTransformDefaultOutput(t *testing.T) {
	s := newTestServer(t)
	imgPath := createPhotoFile(t)

	var result imaging.ImageResult
	decodeResult(t, callTool(t, s, "document_four_point_transform", map[string]interface{}{
		"path":   imgPath,
		"points": "(60,40) (339,40) (339,259) (60,259)",
	}), &result)

	if filepath.Dir(result.SavedPath) != s.cfg.OutputDir {
		t.Errorf("saved path %s should be in %s", result.SavedPath, s.cfg.OutputDir)
	}
	if !strings.HasPrefix(filepath.Base(result.SavedPath), "warped-") {
		t.Errorf("unexpected file name %s", filepath.Base(result.SavedPath))
	}
	if result.ImageBase64 != "" {
		t.Error("base64 payload should be omitted unless inline is set")
	}
	if _, err := os.Stat(result.SavedPath); err != nil {
		t.Errorf("saved file missing: %v", err)
	}
}

func TestHandleToolsCall_FourPointTransformErrors(t *testing.T) {
	s := newTestServer(t)
	imgPath := createPhotoFile(t)

	resp := callTool(t, s, "document_four_point_transform", map[string]interface{}{
		"path":   imgPath,
		"points": "0,0 10,10 20,20 30,30",
	})
	expectToolError(t, resp, "degenerate")

	resp = callTool(t, s, "document_four_point_transform", map[string]interface{}{
		"path":       imgPath,
		"points":     "60,40 339,40 339,259 60,259",
		"fill_color": "not-a-colour",
	})
	expectToolError(t, resp, "")
}

func TestHandleToolsCall_Detect(t *testing.T) {
	s := newTestServer(t)
	imgPath := createPhotoFile(t)

	var result DetectResult
	decodeResult(t, callTool(t, s, "document_detect", map[string]interface{}{"path": imgPath}), &result)

	if !result.Detected {
		t.Fatal("expected the page to be detected")
	}
	if result.Ratio != 1 {
		t.Errorf("ratio: got %v, want 1", result.Ratio)
	}
	want := [][2]float64{{60, 40}, {339, 40}, {339, 259}, {60, 259}}
	for i, w := range want {
		if !nearPoint(result.Corners[i], w[0], w[1], 6) {
			t.Errorf("corner %d: got %v, want near %v", i, result.Corners[i], w)
		}
	}
	if result.Outline == nil || result.Outline.ImageBase64 == "" {
		t.Fatal("expected an outline preview")
	}
	if result.Outline.Width != 400 || result.Outline.Height != 300 {
		t.Errorf("outline size: got %dx%d", result.Outline.Width, result.Outline.Height)
	}
}

func TestHandleToolsCall_DetectDownscaled(t *testing.T) {
	s := newTestServer(t)
	imgPath := createPhotoFile(t)

	var result DetectResult
	decodeResult(t, callTool(t, s, "document_detect", map[string]interface{}{
		"path":          imgPath,
		"detect_height": 150,
	}), &result)

	if result.Ratio != 2 {
		t.Errorf("ratio: got %v, want 2", result.Ratio)
	}
	if result.Outline.Height != 150 {
		t.Errorf("outline height: got %d, want 150", result.Outline.Height)
	}
	if !nearPoint(result.Corners[0], 60, 40, 12) {
		t.Errorf("top-left: got %v, want near (60, 40)", result.Corners[0])
	}
}

func TestHandleToolsCall_DetectNotFound(t *testing.T) {
	s := newTestServer(t)
	imgPath := createTestImageFile(t, 120, 90, color.RGBA{128, 128, 128, 255})

	resp := callTool(t, s, "document_detect", map[string]interface{}{"path": imgPath})
	expectToolError(t, resp, "no four-sided document outline")

	var result DetectResult
	decodeResult(t, callTool(t, s, "document_detect", map[string]interface{}{
		"path":     imgPath,
		"fallback": true,
	}), &result)

	if result.Detected {
		t.Error("fallback corners should not be reported as detected")
	}
	if result.Corners[2] != geometry.Pt(119, 89) {
		t.Errorf("bottom-right: got %v, want (119, 89)", result.Corners[2])
	}
}

func TestHandleToolsCall_DetectInvalidOverrides(t *testing.T) {
	s := newTestServer(t)
	imgPath := createPhotoFile(t)

	resp := callTool(t, s, "document_detect", map[string]interface{}{
		"path":       imgPath,
		"canny_low":  150,
		"canny_high": 100,
	})
	expectToolError(t, resp, "canny_high")

	resp = callTool(t, s, "document_detect", map[string]interface{}{
		"path":          imgPath,
		"detect_height": -1,
	})
	expectToolError(t, resp, "detect_height")
}

func TestHandleToolsCall_Scan(t *testing.T) {
	s := newTestServer(t)
	imgPath := createPhotoFile(t)
	warpedPath := filepath.Join(t.TempDir(), "warped.jpg")

	var result ScanResult
	decodeResult(t, callTool(t, s, "document_scan", map[string]interface{}{
		"path":        imgPath,
		"warped_path": warpedPath,
	}), &result)

	if !result.Detected {
		t.Error("expected the page to be detected")
	}
	if result.Scanned == nil {
		t.Fatal("expected a scanned page")
	}
	if math.Abs(float64(result.Scanned.Width-279)) > 12 || math.Abs(float64(result.Scanned.Height-219)) > 12 {
		t.Errorf("scan size: got %dx%d, want about 279x219", result.Scanned.Width, result.Scanned.Height)
	}

	scanned, err := imaging.Open(result.Scanned.SavedPath)
	if err != nil {
		t.Fatalf("failed to open scan: %v", err)
	}
	for y := scanned.Bounds().Min.Y; y < scanned.Bounds().Max.Y; y++ {
		for x := scanned.Bounds().Min.X; x < scanned.Bounds().Max.X; x++ {
			r, _, _, _ := scanned.At(x, y).RGBA()
			if v := r >> 8; v != 0 && v != 255 {
				t.Fatalf("pixel (%d,%d) = %d, scan should be binary", x, y, v)
			}
		}
	}

	if result.Warped == nil || result.Warped.SavedPath != warpedPath {
		t.Fatalf("expected the warped page at %s, got %+v", warpedPath, result.Warped)
	}
	if _, err := os.Stat(warpedPath); err != nil {
		t.Errorf("warped file missing: %v", err)
	}
}

func TestHandleToolsCall_ScanWithPoints(t *testing.T) {
	s := newTestServer(t)
	imgPath := createTestImageFile(t, 120, 90, color.RGBA{128, 128, 128, 255})
	outPath := filepath.Join(t.TempDir(), "scan.png")

	var result ScanResult
	decodeResult(t, callTool(t, s, "document_scan", map[string]interface{}{
		"path":        imgPath,
		"points":      "[(10, 10), (109, 10), (109, 79), (10, 79)]",
		"output_path": outPath,
		"inline":      true,
	}), &result)

	if result.Detected {
		t.Error("given corners should not be reported as detected")
	}
	if result.Ratio != 1 {
		t.Errorf("ratio: got %v, want 1", result.Ratio)
	}
	if result.Scanned.Width != 99 || result.Scanned.Height != 69 {
		t.Errorf("scan size: got %dx%d, want 99x69", result.Scanned.Width, result.Scanned.Height)
	}
	if result.Scanned.SavedPath != outPath || result.Scanned.ImageBase64 == "" {
		t.Errorf("unexpected scan output %+v", result.Scanned)
	}
	if result.Warped != nil {
		t.Error("warped output should be absent without warped_path")
	}
}

func TestHandleToolsCall_ScanInvalidBlockSize(t *testing.T) {
	s := newTestServer(t)
	imgPath := createPhotoFile(t)

	resp := callTool(t, s, "document_scan", map[string]interface{}{
		"path":       imgPath,
		"points":     "60,40 339,40 339,259 60,259",
		"block_size": 4,
	})

	expectToolError(t, resp, "block")
}

func TestHandleToolsCall_Threshold(t *testing.T) {
	s := newTestServer(t)
	imgPath := createTestImageFile(t, 100, 80, color.RGBA{200, 200, 200, 255})

	var result imaging.ImageResult
	decodeResult(t, callTool(t, s, "document_threshold", map[string]interface{}{
		"path":       imgPath,
		"block_size": 15,
	}), &result)

	if result.Width != 100 || result.Height != 80 {
		t.Errorf("size: got %dx%d, want 100x80", result.Width, result.Height)
	}
	if !strings.HasPrefix(filepath.Base(result.SavedPath), "threshold-") {
		t.Errorf("unexpected file name %s", result.SavedPath)
	}

	out, err := imaging.Open(result.SavedPath)
	if err != nil {
		t.Fatalf("failed to open result: %v", err)
	}
	r, _, _, _ := out.At(50, 40).RGBA()
	if r>>8 != 255 {
		t.Errorf("uniform page should threshold to white, got %d", r>>8)
	}
}

func TestHandleToolsCall_ThresholdNegativeOffset(t *testing.T) {
	s := newTestServer(t)
	imgPath := createTestImageFile(t, 40, 40, color.RGBA{200, 200, 200, 255})

	var result imaging.ImageResult
	decodeResult(t, callTool(t, s, "document_threshold", map[string]interface{}{
		"path":   imgPath,
		"offset": -5,
	}), &result)

	out, err := imaging.Open(result.SavedPath)
	if err != nil {
		t.Fatalf("failed to open result: %v", err)
	}
	r, _, _, _ := out.At(20, 20).RGBA()
	if r>>8 != 0 {
		t.Errorf("a pixel equal to mean+5 threshold should be black, got %d", r>>8)
	}
}

func TestHandleToolsCall_OCRErrors(t *testing.T) {
	s := newTestServer(t)

	resp := callTool(t, s, "document_ocr", map[string]interface{}{"path": "/nonexistent/page.png"})
	expectToolError(t, resp, "")

	imgPath := createTestImageFile(t, 50, 50, color.White)
	resp = callTool(t, s, "document_ocr", map[string]interface{}{
		"path":   imgPath,
		"points": "1,2,3",
	})
	expectToolError(t, resp, "odd number")
}

func TestParsePointsArg(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    int
		wantErr bool
	}{
		{"string", `"1,2 3,4 5,6 7,8"`, 4, false},
		{"pairs", `[[1,2],[3,4]]`, 2, false},
		{"objects", `[{"x":1,"y":2}]`, 1, false},
		{"empty array", `[]`, 0, false},
		{"null", `null`, 0, true},
		{"number", `12`, 0, true},
		{"bad pair", `[[1,2,3]]`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pts, err := parsePointsArg(json.RawMessage(tt.raw))
			if (err != nil) != tt.wantErr {
				t.Fatalf("error: got %v, wantErr %v", err, tt.wantErr)
			}
			if len(pts) != tt.want {
				t.Errorf("got %d points, want %d", len(pts), tt.want)
			}
		})
	}
}

func TestMustMarshalJSON(t *testing.T) {
	got := mustMarshalJSON(map[string]int{"width": 3})
	if !strings.Contains(got, `"width": 3`) {
		t.Errorf("unexpected JSON %s", got)
	}
}
