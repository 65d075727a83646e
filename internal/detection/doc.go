// Package detection finds the outline of a sheet of paper in a photograph.
//
// # Algorithm Overview
//
//  1. Edge detection: grayscale, Gaussian blur, Canny, optional dilation
//  2. Grouping: 8-connected edge pixels are flood-filled into groups
//  3. Hulls: each group is reduced to its convex hull and ranked by area
//  4. Approximation: the largest hulls are simplified with Douglas-Peucker;
//     the first that has exactly four vertices is the document
//
// # Coordinate System
//
// All coordinates use the standard image convention:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
//
// Corners are returned unordered. geometry.OrderPoints labels them.
//
// # Limitations
//
// Detection works best when the page contrasts with the surface it lies on
// and all four edges are visible. Pages that run off the frame, or that sit
// on a background of similar brightness, are reported as ErrDocumentNotFound;
// the caller can then supply corners by hand.
//
// Photographs should be resized first (the defaults assume a height of about
// 500 pixels); detection cost grows with the pixel count.
package detection
