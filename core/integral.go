package violajones

import (
	"errors"
	"math"
)

// Sobel convolution kernels used to obtain the edge magnitude table.
// See https://en.wikipedia.org/wiki/Sobel_operator
var (
	sobelKernelX = [3][3]float64{
		{-1, 0, 1},
		{-2, 0, 2},
		{-1, 0, 1},
	}
	sobelKernelY = [3][3]float64{
		{-1, -2, -1},
		{0, 0, 0},
		{1, 2, 1},
	}
)

// ComputeIntegralImage fills the supplied summed-area tables from an RGBA
// pixel buffer. The buffer is converted to grayscale on the fly using the
// standard luminance weights. Each non-nil output table must be allocated by
// the caller at length width*height; at least one output is required.
//
// sat receives plain cumulative sums, sqsat squared sums, tilted 45 degree
// rotated sums and edges cumulative Sobel edge magnitudes.
func ComputeIntegralImage(pixels []uint8, width, height int, sat, sqsat, tilted, edges []float64) error {
	if width <= 0 || height <= 0 {
		return errors.New("integral image dimensions must be positive")
	}
	if len(pixels) < width*height*4 {
		return errors.New("pixel buffer is shorter than width*height RGBA samples")
	}
	if sat == nil && sqsat == nil && tilted == nil && edges == nil {
		return errors.New("at least one output table must be supplied")
	}
	for _, out := range [][]float64{sat, sqsat, tilted, edges} {
		if out != nil && len(out) != width*height {
			return errors.New("output tables must be allocated at length width*height")
		}
	}

	var magnitudes []float64
	if edges != nil {
		magnitudes = sobelMagnitudes(pixels, width, height)
	}

	for i := 0; i < height; i++ {
		for j := 0; j < width; j++ {
			w := (i*width + j) * 4
			pixel := grayscaleValue(pixels[w], pixels[w+1], pixels[w+2])

			if sat != nil {
				setSATValue(sat, width, i, j, pixel)
			}
			if sqsat != nil {
				setSATValue(sqsat, width, i, j, pixel*pixel)
			}
			if tilted != nil {
				var pixelAbove float64
				if i > 0 {
					wa := w - width*4
					pixelAbove = grayscaleValue(pixels[wa], pixels[wa+1], pixels[wa+2])
				}
				setRSATValue(tilted, width, i, j, pixel, pixelAbove)
			}
			if edges != nil {
				setSATValue(edges, width, i, j, magnitudes[i*width+j])
			}
		}
	}
	return nil
}

func grayscaleValue(r, g, b uint8) float64 {
	return float64(int(0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)))
}

// setSATValue accumulates one cell of an upright summed-area table.
// Out-of-table neighbors contribute zero.
func setSATValue(sat []float64, width, i, j int, value float64) {
	pos := i*width + j
	var above, left, aboveLeft float64
	if i > 0 {
		above = sat[pos-width]
	}
	if j > 0 {
		left = sat[pos-1]
	}
	if i > 0 && j > 0 {
		aboveLeft = sat[pos-width-1]
	}
	sat[pos] = above + left + value - aboveLeft
}

// setRSATValue accumulates one cell of a 45 degree rotated summed-area table:
//
//	RSAT(i,j) = RSAT(i-1,j-1) + RSAT(i-1,j+1) - RSAT(i-2,j) + p(i,j) + p(i-1,j)
//
// Neighbors outside the table contribute zero.
func setRSATValue(rsat []float64, width, i, j int, pixel, pixelAbove float64) {
	pos := i*width + j
	var northWest, northEast, north float64
	if i > 0 && j > 0 {
		northWest = rsat[pos-width-1]
	}
	if i > 0 && j < width-1 {
		northEast = rsat[pos-width+1]
	}
	if i > 1 {
		north = rsat[pos-2*width]
	}
	rsat[pos] = northWest + northEast - north + pixel + pixelAbove
}

// sobelMagnitudes computes the gradient magnitude of every pixel, clamped to
// the 0-255 range. Border pixels keep a zero magnitude.
func sobelMagnitudes(pixels []uint8, width, height int) []float64 {
	gray := make([]float64, width*height)
	for i := 0; i < height; i++ {
		for j := 0; j < width; j++ {
			w := (i*width + j) * 4
			gray[i*width+j] = grayscaleValue(pixels[w], pixels[w+1], pixels[w+2])
		}
	}

	magnitudes := make([]float64, width*height)
	for i := 1; i < height-1; i++ {
		for j := 1; j < width-1; j++ {
			var sumX, sumY float64
			for ky := 0; ky < 3; ky++ {
				for kx := 0; kx < 3; kx++ {
					px := gray[(i+ky-1)*width+(j+kx-1)]
					sumX += px * sobelKernelX[ky][kx]
					sumY += px * sobelKernelY[ky][kx]
				}
			}
			magnitude := math.Sqrt(sumX*sumX + sumY*sumY)
			if magnitude > 255 {
				magnitude = 255
			}
			magnitudes[i*width+j] = magnitude
		}
	}
	return magnitudes
}
