package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func pathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the image file",
	}
}

func pointsProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"description": description + ` Accepts a string such as "[(73, 239), (356, 117), (475, 265), (187, 443)]", an array of [x, y] pairs or an array of {"x", "y"} objects.`,
		"oneOf": []map[string]interface{}{
			{"type": "string"},
			{
				"type":  "array",
				"items": map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "number"}},
			},
			{
				"type": "array",
				"items": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"x": map[string]interface{}{"type": "number"},
						"y": map[string]interface{}{"type": "number"},
					},
					"required": []string{"x", "y"},
				},
			},
		},
	}
}

func outputPathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Where to write the result. The format follows the extension (png, jpg, gif, tif, bmp). Default: a new PNG in the server's output directory",
	}
}

func inlineProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "boolean",
		"description": "Also return the result as base64-encoded PNG (default: false)",
	}
}

// scanProperties are the pipeline overrides shared by the scanning tools.
func scanProperties() map[string]interface{} {
	return map[string]interface{}{
		"detect_height": map[string]interface{}{
			"type":        "integer",
			"description": "Height the photo is resized to for outline detection; 0 detects at full resolution (default: 500)",
		},
		"canny_low": map[string]interface{}{
			"type":        "integer",
			"description": "Canny low threshold, 0-255 (default: 75)",
		},
		"canny_high": map[string]interface{}{
			"type":        "integer",
			"description": "Canny high threshold, 0-255 (default: 200)",
		},
		"candidates": map[string]interface{}{
			"type":        "integer",
			"description": "How many of the largest outlines to try (default: 5)",
		},
		"block_size": map[string]interface{}{
			"type":        "integer",
			"description": "Odd neighbourhood size for local thresholding (default: 11)",
		},
		"offset": map[string]interface{}{
			"type":        "number",
			"description": "Value subtracted from the local mean when thresholding (default: 10)",
		},
		"fill_color": map[string]interface{}{
			"type":        "string",
			"description": "Colour for output pixels outside the photo, as hex (default: #000000)",
		},
		"fallback": map[string]interface{}{
			"type":        "boolean",
			"description": "Use the whole photo when no page outline is found instead of failing",
		},
	}
}

func withProperties(base map[string]interface{}, extra map[string]interface{}) map[string]interface{} {
	for k, v := range extra {
		base[k] = v
	}
	return base
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Basic Image Information
		{
			Name:        "image_load",
			Description: "Load an image file and return its dimensions and format. The image is cached for subsequent operations.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_dimensions",
			Description: "Get the width and height of an image file.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_edge_detect",
			Description: "Return the edge map document detection searches for the page outline (resized, blurred, Canny, dilated) as base64-encoded PNG. Useful for checking why a page outline was or was not found.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"threshold_low": map[string]interface{}{
						"type":        "integer",
						"description": "Low threshold for hysteresis (default: 75)",
					},
					"threshold_high": map[string]interface{}{
						"type":        "integer",
						"description": "High threshold for hysteresis (default: 200)",
					},
					"detect_height": scanProperties()["detect_height"],
				},
				"required": []string{"path"},
			},
		},

		// Page Geometry
		{
			Name:        "document_order_points",
			Description: "Label four corner points as top-left, top-right, bottom-right and bottom-left, and report the size of the page a four point transform would produce.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"points": pointsProperty("Exactly four corner points in any order."),
				},
				"required": []string{"points"},
			},
		},
		{
			Name:        "document_four_point_transform",
			Description: "Warp the quadrilateral outlined by four points to a flat, top-down rectangle and save it.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":        pathProperty(),
					"points":      pointsProperty("The four page corners in image coordinates, in any order."),
					"fill_color":  scanProperties()["fill_color"],
					"output_path": outputPathProperty(),
					"inline":      inlineProperty(),
				},
				"required": []string{"path", "points"},
			},
		},

		// Scanning
		{
			Name:        "document_detect",
			Description: "Find the outline of a sheet of paper in a photo. Returns the ordered corners in photo coordinates and a preview with the outline drawn on it.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProperties(scanProperties(), map[string]interface{}{
					"path": pathProperty(),
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "document_scan",
			Description: "Turn a photo of a document into a flat black-and-white scan: detect the page (or use the given corners), warp it top-down and apply local thresholding. The scan is saved to disk.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProperties(scanProperties(), map[string]interface{}{
					"path":        pathProperty(),
					"points":      pointsProperty("Optional page corners. Skips detection when given."),
					"output_path": outputPathProperty(),
					"warped_path": map[string]interface{}{
						"type":        "string",
						"description": "Also save the colour top-down page here",
					},
					"inline": inlineProperty(),
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "document_threshold",
			Description: "Binarize an image with a Gaussian-weighted local threshold. Pixels brighter than their neighbourhood mean minus the offset become white.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":        pathProperty(),
					"block_size":  scanProperties()["block_size"],
					"offset":      scanProperties()["offset"],
					"output_path": outputPathProperty(),
					"inline":      inlineProperty(),
				},
				"required": []string{"path"},
			},
		},

		// OCR
		{
			Name:        "document_ocr",
			Description: "Read the text on a page with Tesseract. Set scan (or give points) to flatten and binarize the page first.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProperties(scanProperties(), map[string]interface{}{
					"path": pathProperty(),
					"language": map[string]interface{}{
						"type":        "string",
						"description": "Tesseract language code, e.g. eng, deu or eng+fra (default: eng)",
					},
					"scan": map[string]interface{}{
						"type":        "boolean",
						"description": "Scan the page before reading it (default: false)",
					},
					"points": pointsProperty("Optional page corners. Implies scan."),
					"min_confidence": map[string]interface{}{
						"type":        "number",
						"description": "Drop words below this confidence, 0.0-1.0 (default: 0)",
					},
				}),
				"required": []string{"path"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
