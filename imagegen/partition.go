package imagegen

import (
	"genfill/core"
	"genfill/host"
)

// Partition names, used for error attribution and group names.
const (
	PartitionTopLeft    = "top-left"
	PartitionTopRight   = "top-right"
	PartitionBottomLeft = "bottom-left"
	PartitionFull       = "full"
)

// PartitionSelection is one square region of a document in global-partition mode.
type PartitionSelection struct {
	Name   string               `json:"name"`
	Bounds core.SelectionBounds `json:"bounds"`
}

// GlobalPartitionDocPlan lists the regions computed for one document.
type GlobalPartitionDocPlan struct {
	DocID      int                  `json:"docId"`
	DocName    string               `json:"docName"`
	Width      int                  `json:"width"`
	Height     int                  `json:"height"`
	Selections []PartitionSelection `json:"selections"`
}

// PartitionSelections splits a document into squares of side min(width, height)
// at the two extreme corners along the longer axis. A square document yields
// one full-frame region; a degenerate one yields none.
//
// This is a pure function with no side effects.
//
// Example:
//
//	PartitionSelections(2000, 1000)
//	// top-left  {0,0 1000x1000}
//	// top-right {1000,0 1000x1000}
func PartitionSelections(width, height int) []PartitionSelection {
	if width <= 0 || height <= 0 {
		return nil
	}

	switch {
	case width > height:
		side := height
		return []PartitionSelection{
			{Name: PartitionTopLeft, Bounds: core.NewSelectionBounds(0, 0, side, side)},
			{Name: PartitionTopRight, Bounds: core.NewSelectionBounds(width-side, 0, width, side)},
		}
	case height > width:
		side := width
		return []PartitionSelection{
			{Name: PartitionTopLeft, Bounds: core.NewSelectionBounds(0, 0, side, side)},
			{Name: PartitionBottomLeft, Bounds: core.NewSelectionBounds(0, height-side, side, height)},
		}
	default:
		return []PartitionSelection{
			{Name: PartitionFull, Bounds: core.NewSelectionBounds(0, 0, width, height)},
		}
	}
}

// PlanDocument builds the partition plan of an open document.
func PlanDocument(doc host.DocumentInfo) GlobalPartitionDocPlan {
	width := max(1, doc.Width)
	height := max(1, doc.Height)
	name := doc.Name
	if name == "" {
		name = DefaultDocName(doc.ID)
	}
	return GlobalPartitionDocPlan{
		DocID:      doc.ID,
		DocName:    name,
		Width:      width,
		Height:     height,
		Selections: PartitionSelections(width, height),
	}
}
