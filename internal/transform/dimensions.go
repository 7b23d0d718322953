package transform

import (
	"image"
	"io"
	"math"

	// decoders used by DecodeConfig in addition to those imaging registers
	_ "golang.org/x/image/webp"
)

// TargetSize scales width x height so the longer side equals sideMax,
// preserving aspect ratio. With shrinkOnly, images already within the bound
// keep their size. The shorter side is rounded and never reaches zero.
func TargetSize(width, height, sideMax int, shrinkOnly bool) (int, int) {
	if width <= 0 || height <= 0 || sideMax <= 0 {
		return width, height
	}
	if shrinkOnly && width <= sideMax && height <= sideMax {
		return width, height
	}

	if width >= height {
		return sideMax, scaleSide(height, sideMax, width)
	}
	return scaleSide(width, sideMax, height), sideMax
}

func scaleSide(side, sideMax, longest int) int {
	v := int(math.Round(float64(side) * float64(sideMax) / float64(longest)))
	if v < 1 {
		return 1
	}
	return v
}

// Dimensions reads the pixel size from an image header without decoding
// the pixel data.
func Dimensions(r io.Reader) (int, int, error) {
	cfg, _, err := image.DecodeConfig(r)
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}

// sharpenSigma picks an unsharp radius from the scale factor: stronger for
// heavier downscales, mild otherwise.
func sharpenSigma(srcLong, dstLong int) float64 {
	if srcLong <= 0 || dstLong <= 0 || srcLong <= dstLong {
		return 0.5
	}
	sigma := 0.5 + 0.25*math.Log2(float64(srcLong)/float64(dstLong))
	return math.Min(sigma, 1.5)
}
