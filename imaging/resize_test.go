package imaging

import (
	"image"
	"testing"
)

func TestFitDimensions(t *testing.T) {
	tests := []struct {
		name         string
		w, h, max    int
		wantW, wantH int
	}{
		{"within cap", 800, 600, 1536, 800, 600},
		{"exactly at cap", 1536, 1000, 1536, 1536, 1000},
		{"landscape", 3000, 1000, 1536, 1536, 512},
		{"portrait", 1000, 3000, 1536, 512, 1536},
		{"square", 4000, 4000, 512, 512, 512},
		{"rounding", 1000, 333, 512, 512, 170},
		{"thin strip keeps one pixel", 10000, 1, 512, 512, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := FitDimensions(tt.w, tt.h, tt.max)
			if w != tt.wantW || h != tt.wantH {
				t.Errorf("FitDimensions(%d, %d, %d) = %dx%d, want %dx%d", tt.w, tt.h, tt.max, w, h, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestFitWithin(t *testing.T) {
	small := randomImage(40, 20, 1)
	if FitWithin(small, 64) != small {
		t.Error("FitWithin should return the input when it already fits")
	}

	large := randomImage(200, 100, 2)
	got := FitWithin(large, 64)
	if got.Rect != image.Rect(0, 0, 64, 32) {
		t.Errorf("FitWithin() bounds = %v", got.Rect)
	}
}

func TestResizeExact(t *testing.T) {
	img := randomImage(30, 10, 3)
	got := ResizeExact(img, 90, 45)
	if got.Rect != image.Rect(0, 0, 90, 45) {
		t.Errorf("ResizeExact() bounds = %v", got.Rect)
	}
	if ResizeExact(img, 0, -5).Rect != image.Rect(0, 0, 1, 1) {
		t.Error("ResizeExact() should clamp to 1x1")
	}
}
