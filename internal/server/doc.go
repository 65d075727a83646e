// Package server implements the MCP (Model Context Protocol) server for the
// document scanner.
//
// This package provides a JSON-RPC 2.0 server that exposes the scan pipeline
// through the MCP protocol, so an MCP client can flatten, binarize and read
// photographed documents.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//   - Logs: stderr, and optionally a rotated log file
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Basic Image Information:
//   - image_load: Load image and get metadata
//   - image_dimensions: Get width and height
//   - image_edge_detect: Canny edge map
//
// Page Geometry:
//   - document_order_points: Label four corners and size the output page
//   - document_four_point_transform: Warp a quadrilateral to a rectangle
//
// Scanning:
//   - document_detect: Find the page outline
//   - document_scan: Detect, warp and binarize
//   - document_threshold: Local threshold only
//
// OCR:
//   - document_ocr: Read text, optionally after scanning
//
// Corner points may be passed as a string, as [x, y] pairs or as {"x", "y"}
// objects. Pipeline defaults come from the configuration and can be
// overridden per call.
//
// # Output Files
//
// Tools that produce images write them to output_path, or to a uniquely
// named PNG in the configured output directory, and report the path. Set
// inline to also receive the image as base64.
//
// # Image Caching
//
// The server maintains an in-memory cache of loaded images. Images are cached
// by path and reused across multiple tool calls, avoiding redundant disk I/O.
// The cache persists for the lifetime of the server process.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// # Usage
//
//	cfg, err := config.Load()
//	...
//	logger, closer, err := logging.Setup(cfg.Log)
//	...
//	srv := server.New(cfg, logger, version)
//	if err := srv.Run(); err != nil {
//	    logger.Fatal().Err(err).Msg("server failed")
//	}
package server
