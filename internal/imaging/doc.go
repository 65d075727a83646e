// Package imaging provides the pixel-level building blocks of the document
// scanner: decoding and caching photographs, resizing for detection, Canny
// edge detection, adaptive (local) thresholding, outline drawing and PNG
// encoding.
//
// All operations work with standard Go image.Image types and use a
// coordinate system where (0,0) is at the top-left corner, X increases
// rightward, and Y increases downward. Functions that produce a new image
// return it with origin (0,0) regardless of the input's bounds.
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. Every other function is
// stateless and never mutates its input, so it can be called concurrently.
//
// # Error Handling
//
// Functions return errors for:
//   - File I/O errors and undecodable files during loading
//   - Invalid parameters such as an even threshold block size
//   - Encoding errors during image output
//
// # Performance Considerations
//
// Phone photographs are large. Detection should run on a copy produced by
// ResizeToHeight, and long-running processes should Evict() cached images
// once they are done with them.
package imaging
