// Package imagegen captures document regions, sends them for generation and
// places the results back as grouped layers.
//
// atoms.go contains pure utility functions with no dependencies.
package imagegen

import (
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"
)

// GroupName returns the name of the layer group created for a unit of work.
//
// This is a pure function with no side effects.
//
// Example:
//
//	GroupName("Batch")             // "Batch Generated Group"
//	GroupName("Partition-top-left") // "Partition-top-left Generated Group"
func GroupName(prefix string) string {
	return fmt.Sprintf("%s Generated Group", prefix)
}

// DefaultDocName is used when a task carries no document name.
func DefaultDocName(docID int) string {
	return fmt.Sprintf("Doc %d", docID)
}

// clampInt bounds v to [lo, hi].
func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// truncateText shortens text to maxLen runes, adding an ellipsis when cut.
func truncateText(text string, maxLen int) string {
	if utf8.RuneCountInString(text) <= maxLen {
		return text
	}
	runes := []rune(text)
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// newRunID returns a short random id for correlating the log lines of one run.
func newRunID() string {
	return uuid.NewString()[:8]
}

// tempFileName returns a unique PNG file name with the given prefix.
func tempFileName(prefix string) string {
	return fmt.Sprintf("%s-%s.png", prefix, uuid.NewString())
}
