package genclient

import (
	"strings"

	"genfill/core"
)

// ModelName appends the size tag to base, e.g. "AJbanana3-2k".
// Auto keeps the base name; a base already carrying the tag is not suffixed twice.
// This is a pure function with no side effects.
func ModelName(base string, size core.ImageSize) string {
	if size == core.ImageSizeAuto || !size.Valid() {
		return base
	}
	suffix := "-" + strings.ToLower(string(size))
	if strings.HasSuffix(base, suffix) {
		return base
	}
	return base + suffix
}
