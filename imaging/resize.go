package imaging

import (
	"image"
	"math"

	"golang.org/x/image/draw"
)

// FitDimensions returns the size of a w×h image scaled so its longer side equals
// maxSide, rounding the shorter side. Images already within the cap are unchanged.
// This is a pure function with no side effects.
//
// Example:
//
//	FitDimensions(3000, 1000, 1536) // 1536, 512
func FitDimensions(w, h, maxSide int) (int, int) {
	if maxSide <= 0 || (w <= maxSide && h <= maxSide) {
		return w, h
	}
	if w > h {
		nh := int(math.Round(float64(h) * float64(maxSide) / float64(w)))
		return maxSide, max(1, nh)
	}
	nw := int(math.Round(float64(w) * float64(maxSide) / float64(h)))
	return max(1, nw), maxSide
}

// FitWithin downscales img so neither side exceeds maxSide.
// The input is returned as-is when it already fits.
func FitWithin(img *image.NRGBA, maxSide int) *image.NRGBA {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	nw, nh := FitDimensions(w, h, maxSide)
	if nw == w && nh == h {
		return img
	}
	return ResizeExact(img, nw, nh)
}

// ResizeExact resamples img to exactly w×h using Catmull-Rom interpolation.
func ResizeExact(img image.Image, w, h int) *image.NRGBA {
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	b := img.Bounds()
	if b.Dx() == w && b.Dy() == h {
		return ToNRGBA(img)
	}
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
