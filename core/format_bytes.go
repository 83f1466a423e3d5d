package core

import (
	"fmt"
	"strings"
)

// Binary byte units.
const (
	BytesPerKB int64 = 1024
	BytesPerMB int64 = 1024 * BytesPerKB
	BytesPerGB int64 = 1024 * BytesPerMB
)

var byteUnits = []struct {
	size int64
	name string
}{
	{BytesPerGB, "GB"},
	{BytesPerMB, "MB"},
	{BytesPerKB, "KB"},
}

// FormatBytes renders a byte count with two decimals, e.g. "1.50 MB".
// Negative values are treated as zero.
func FormatBytes(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}
	for _, unit := range byteUnits {
		if bytes >= unit.size {
			return fmt.Sprintf("%.2f %s", float64(bytes)/float64(unit.size), unit.name)
		}
	}
	return fmt.Sprintf("%d B", bytes)
}

// FormatBytesCompact rounds to one decimal and drops a trailing ".0":
// 1024 is "1 KB", 1536 is "1.5 KB".
func FormatBytesCompact(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}
	for _, unit := range byteUnits {
		if bytes >= unit.size {
			val := fmt.Sprintf("%.1f", float64(bytes)/float64(unit.size))
			return strings.TrimSuffix(val, ".0") + " " + unit.name
		}
	}
	return fmt.Sprintf("%d B", bytes)
}
