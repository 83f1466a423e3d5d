package core

import (
	"testing"
)

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		name     string
		bytes    int64
		expected string
	}{
		{"zero bytes", 0, "0 B"},
		{"1023 bytes", 1023, "1023 B"},
		{"exactly 1 KB", 1024, "1.00 KB"},
		{"1.5 KB", 1536, "1.50 KB"},
		{"exactly 1 MB", 1024 * 1024, "1.00 MB"},
		{"4K png", 3 * 1024 * 1024 / 2, "1.50 MB"},
		{"exactly 1 GB", 1024 * 1024 * 1024, "1.00 GB"},
		{"above GB stays in GB", 2048 * 1024 * 1024 * 1024, "2048.00 GB"},
		{"negative value", -100, "0 B"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := FormatBytes(tt.bytes); result != tt.expected {
				t.Errorf("FormatBytes(%d) = %q, want %q", tt.bytes, result, tt.expected)
			}
		})
	}
}

func TestFormatBytesCompact(t *testing.T) {
	tests := []struct {
		name     string
		bytes    int64
		expected string
	}{
		{"zero bytes", 0, "0 B"},
		{"512 bytes", 512, "512 B"},
		{"exactly 1 KB", 1024, "1 KB"},
		{"1.5 KB", 1536, "1.5 KB"},
		{"rounds up", 2047, "2 KB"},
		{"exactly 100 MB", 100 * 1024 * 1024, "100 MB"},
		{"negative value", -1, "0 B"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := FormatBytesCompact(tt.bytes); result != tt.expected {
				t.Errorf("FormatBytesCompact(%d) = %q, want %q", tt.bytes, result, tt.expected)
			}
		})
	}
}
