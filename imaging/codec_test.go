package imaging

import (
	"errors"
	"image"
	"image/color"
	"testing"
)

func TestEncodeDecodePNG(t *testing.T) {
	img := randomImage(8, 6, 7)

	data, err := EncodePNG(img)
	if err != nil {
		t.Fatalf("EncodePNG() error = %v", err)
	}
	decoded, err := DecodeImage(data)
	if err != nil {
		t.Fatalf("DecodeImage() error = %v", err)
	}
	if !samePixels(img, ToNRGBA(decoded)) {
		t.Error("PNG round trip is not lossless")
	}
}

func TestDecodeImage_Errors(t *testing.T) {
	if _, err := DecodeImage(nil); !errors.Is(err, ErrEmptyImage) {
		t.Errorf("DecodeImage(nil) error = %v", err)
	}
	if _, err := DecodeImage([]byte("not an image")); !errors.Is(err, ErrInvalidImage) {
		t.Errorf("DecodeImage(garbage) error = %v", err)
	}
}

func TestDecodeBase64(t *testing.T) {
	payload := []byte{0x89, 'P', 'N', 'G', 0xff, 0xfe}
	std := EncodeBase64(payload)

	tests := []struct {
		name  string
		input string
	}{
		{"standard", std},
		{"data url", "data:image/png;base64," + std},
		{"raw url-safe", "iVBOR_-_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeBase64(tt.input); err != nil {
				t.Errorf("DecodeBase64(%q) error = %v", tt.input, err)
			}
		})
	}

	got, _ := DecodeBase64(std)
	if string(got) != string(payload) {
		t.Errorf("DecodeBase64() = %v, want %v", got, payload)
	}
	if _, err := DecodeBase64("   "); !errors.Is(err, ErrEmptyImage) {
		t.Errorf("DecodeBase64(blank) error = %v", err)
	}
	if _, err := DecodeBase64("***"); !errors.Is(err, ErrInvalidImage) {
		t.Errorf("DecodeBase64(garbage) error = %v", err)
	}
}

func TestToNRGBA_ShiftsOrigin(t *testing.T) {
	src := image.NewRGBA(image.Rect(10, 10, 14, 12))
	src.Set(10, 10, color.RGBA{1, 2, 3, 255})

	got := ToNRGBA(src)
	if got.Rect != image.Rect(0, 0, 4, 2) {
		t.Errorf("bounds = %v", got.Rect)
	}
	if got.NRGBAAt(0, 0) != (color.NRGBA{1, 2, 3, 255}) {
		t.Errorf("pixel = %v", got.NRGBAAt(0, 0))
	}
}
