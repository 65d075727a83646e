// Package scan chains outline detection, perspective correction and local
// thresholding into a single photograph-to-scan pipeline.
//
// # Pipeline
//
//  1. Resize a copy of the photograph to Options.DetectHeight
//  2. Find the page outline on the copy (package detection)
//  3. Scale the corners back by the resize ratio and order them
//  4. Warp the full-resolution photograph to a top-down view (package transform)
//  5. Convert to grayscale and binarize with imaging.ThresholdLocal
//
// When the corners are already known, Scanner.ScanWithCorners skips the
// first three steps.
package scan
