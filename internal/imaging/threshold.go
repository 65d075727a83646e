package imaging

import (
	"fmt"
	"image"
	"math"
)

// ThresholdLocal binarizes a grayscale page with a per-pixel threshold taken
// from a Gaussian-weighted neighbourhood, giving the black-on-white look of a
// flatbed scan even under uneven lighting.
//
// Parameters:
//   - gray: Source page. It is not modified.
//   - blockSize: Odd neighbourhood size in pixels, at least 3. Typical: 11.
//   - offset: Constant subtracted from the local mean. Larger values push
//     more pixels to white. Typical: 10.
//
// Returns a new *image.Gray with origin (0,0) holding only 0 and 255.
//
// # Algorithm
//
// For every pixel the threshold is T = G(x,y) - offset, where G is the image
// convolved with a Gaussian of sigma = (blockSize-1)/6. The kernel is
// truncated at four sigma and borders are mirrored (the edge pixel is
// repeated: d c b a | a b c d | d c b a). A pixel becomes white (255) when
// its value is strictly greater than T and black (0) otherwise.
//
// # Errors
//
// Returns an error if blockSize is even or smaller than 3.
func ThresholdLocal(gray *image.Gray, blockSize int, offset float64) (*image.Gray, error) {
	if blockSize < 3 || blockSize%2 == 0 {
		return nil, fmt.Errorf("invalid block size %d: must be odd and >= 3", blockSize)
	}

	bounds := gray.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	out := image.NewGray(image.Rect(0, 0, width, height))
	if width == 0 || height == 0 {
		return out, nil
	}

	src := make([]float64, width*height)
	for y := 0; y < height; y++ {
		row := gray.Pix[gray.PixOffset(bounds.Min.X, bounds.Min.Y+y):]
		for x := 0; x < width; x++ {
			src[y*width+x] = float64(row[x])
		}
	}

	kernel := gaussianKernel(float64(blockSize-1) / 6.0)
	radius := len(kernel) / 2

	// Separable convolution: rows then columns.
	tmp := make([]float64, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var sum float64
			for k := -radius; k <= radius; k++ {
				sum += src[y*width+reflect(x+k, width)] * kernel[k+radius]
			}
			tmp[y*width+x] = sum
		}
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var mean float64
			for k := -radius; k <= radius; k++ {
				mean += tmp[reflect(y+k, height)*width+x] * kernel[k+radius]
			}
			if src[y*width+x] > mean-offset {
				out.Pix[y*out.Stride+x] = 255
			}
		}
	}

	return out, nil
}

// gaussianKernel returns a normalized 1D Gaussian truncated at 4 sigma.
func gaussianKernel(sigma float64) []float64 {
	radius := int(4*sigma + 0.5)
	kernel := make([]float64, 2*radius+1)

	var sum float64
	for i := -radius; i <= radius; i++ {
		v := math.Exp(-0.5 * float64(i*i) / (sigma * sigma))
		kernel[i+radius] = v
		sum += v
	}
	for i := range kernel {
		kernel[i] /= sum
	}
	return kernel
}

// reflect maps an out-of-range index back into [0, n) by mirroring about
// the edges, repeating the edge sample.
func reflect(i, n int) int {
	if n == 1 {
		return 0
	}
	period := 2 * n
	i %= period
	if i < 0 {
		i += period
	}
	if i >= n {
		i = period - 1 - i
	}
	return i
}
