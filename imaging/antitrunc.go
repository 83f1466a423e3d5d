package imaging

import (
	"image"

	"genfill/core"
)

// HueRotate180 replaces every pixel by its complementary color with the same
// lightness and saturation: each channel c becomes max+min-c.
// The mapping is exact in integer arithmetic and its own inverse.
// Alpha is untouched. Returns a new image.
func HueRotate180(img *image.NRGBA) *image.NRGBA {
	dst := Clone(img)
	p := dst.Pix
	for i := 0; i+3 < len(p); i += 4 {
		r, g, b := p[i], p[i+1], p[i+2]
		hi, lo := r, r
		if g > hi {
			hi = g
		}
		if b > hi {
			hi = b
		}
		if g < lo {
			lo = g
		}
		if b < lo {
			lo = b
		}
		sum := uint16(hi) + uint16(lo)
		p[i] = uint8(sum - uint16(r))
		p[i+1] = uint8(sum - uint16(g))
		p[i+2] = uint8(sum - uint16(b))
	}
	return dst
}

// FlipVertical mirrors rows top to bottom. Returns a new image.
func FlipVertical(img *image.NRGBA) *image.NRGBA {
	dst := image.NewNRGBA(img.Rect)
	h := img.Rect.Dy()
	rowLen := img.Rect.Dx() * 4
	for y := 0; y < h; y++ {
		src := img.Pix[y*img.Stride : y*img.Stride+rowLen]
		dy := h - 1 - y
		copy(dst.Pix[dy*dst.Stride:dy*dst.Stride+rowLen], src)
	}
	return dst
}

// ApplyForInput transforms pixels before they are sent for generation.
// Mode 2 rotates hue first, then flips.
func ApplyForInput(img *image.NRGBA, mode core.AntiMode) *image.NRGBA {
	switch mode {
	case core.AntiModeHue:
		return HueRotate180(img)
	case core.AntiModeHueFlip:
		return FlipVertical(HueRotate180(img))
	default:
		return img
	}
}

// ApplyForOutput undoes ApplyForInput on a generated result.
// Mode 2 flips first, then rotates hue: the exact reverse of the send order.
func ApplyForOutput(img *image.NRGBA, mode core.AntiMode) *image.NRGBA {
	switch mode {
	case core.AntiModeHue:
		return HueRotate180(img)
	case core.AntiModeHueFlip:
		return HueRotate180(FlipVertical(img))
	default:
		return img
	}
}
