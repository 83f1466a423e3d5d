// Package host defines the serialized command interface to the image editor.
//
// The editor accepts one command stream at a time. Every call must be made
// inside WithExclusiveAccess, using the context passed to the scope function.
// Pixel work (hue rotation, flips, resampling) is not a host concern: the core
// exports a region to PNG, transforms it in memory and imports the result back.
package host

import (
	"context"
	"errors"

	"genfill/core"
)

// Sentinel errors returned by editors.
var (
	ErrNoSelection      = errors.New("host: no active selection")
	ErrNoDocument       = errors.New("host: no document is open")
	ErrDocumentNotFound = errors.New("host: document not found")
	ErrLayerNotFound    = errors.New("host: layer not found")
	ErrNestedScope      = errors.New("host: exclusive scope is already held by this call chain")
)

// LayerColor is the label color shown next to a layer or group.
type LayerColor string

const (
	ColorNone   LayerColor = "none"
	ColorYellow LayerColor = "yellowColor"
)

// DocumentInfo describes an open document.
type DocumentInfo struct {
	ID     int
	Name   string
	Width  int
	Height int
}

// Editor is the host editing API. Implementations must tolerate being driven
// from a single goroutine at a time per scope; callers never issue commands
// outside WithExclusiveAccess.
type Editor interface {
	// WithExclusiveAccess runs fn while holding the host command stream.
	// commandName labels the scope in the host's undo history.
	WithExclusiveAccess(ctx context.Context, commandName string, fn func(ctx context.Context) error) error

	ActiveDocument(ctx context.Context) (DocumentInfo, error)
	Documents(ctx context.Context) ([]DocumentInfo, error)
	SelectDocument(ctx context.Context, docID int) error
	DuplicateDocument(ctx context.Context, docID int, name string) (int, error)
	CloseDocument(ctx context.Context, docID int) error
	OpenDocument(ctx context.Context, path string) (int, error)
	Flatten(ctx context.Context, docID int) error
	BitDepth(ctx context.Context, docID int) (int, error)
	ConvertBitDepth(ctx context.Context, docID int, depth int) error
	Crop(ctx context.Context, docID int, bounds core.SelectionBounds) error
	ExportPNG(ctx context.Context, docID int, path string) error

	// Selection returns the bounding box of the live selection or ErrNoSelection.
	Selection(ctx context.Context, docID int) (core.SelectionBounds, error)
	Deselect(ctx context.Context, docID int) error

	// DuplicateLayerTo copies the flattened content of srcDoc into dstDoc as a
	// new layer. Where the layer lands is up to the host.
	DuplicateLayerTo(ctx context.Context, srcDoc, dstDoc int) (int, error)
	LayerBounds(ctx context.Context, docID, layerID int) (core.SelectionBounds, error)
	TranslateLayer(ctx context.Context, docID, layerID, dx, dy int) error
	ConvertToSmartObject(ctx context.Context, docID, layerID int) error
	// MergeVisible stamps all visible layers into a new top layer.
	MergeVisible(ctx context.Context, docID int) (int, error)
	DeleteLayer(ctx context.Context, docID, layerID int) error

	GroupLayers(ctx context.Context, docID int, layerIDs []int, name string) (int, error)
	SetLayerColor(ctx context.Context, docID, layerID int, color LayerColor) error
	BringToFront(ctx context.Context, docID, layerID int) error
	AddRevealAllMask(ctx context.Context, docID, layerID int) error
}
