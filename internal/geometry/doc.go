// Package geometry provides the planar math behind document rectification.
//
// It labels the four corners of a detected document outline and solves the
// projective transform (homography) that maps that outline onto an
// axis-aligned rectangle. Everything here is a pure function of its
// arguments and safe for concurrent use.
//
// # Coordinate System
//
// Points use image coordinates: (0,0) is the top-left corner, X increases
// rightward and Y increases downward. Coordinates are float64 so that
// corners scaled back from a resized detection copy keep sub-pixel
// precision.
//
// # Corner Ordering
//
// OrderPoints labels four unordered points as top-left, top-right,
// bottom-right and bottom-left using two arithmetic heuristics:
//
//   - x+y is smallest at the top-left corner and largest at the bottom-right
//   - y-x is smallest at the top-right corner and largest at the bottom-left
//
// Ties resolve to the first extremum found in input order. The heuristic is
// reliable for near-rectangular document photographs; it makes no promise
// for non-convex or heavily rotated quadrilaterals (a square rotated by 45
// degrees can label one input point twice).
//
// # Error Handling
//
// Two sentinel errors classify failures and are always wrapped with context,
// so callers should test with errors.Is:
//   - ErrInvalidPointCount: the input does not hold exactly four points
//   - ErrDegenerateGeometry: the corners cannot define a usable transform
package geometry
