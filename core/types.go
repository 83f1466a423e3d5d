package core

import (
	"image"

	"go.uber.org/zap/zapcore"
)

// ImageSize is the requested output resolution tier of a generation request.
type ImageSize string

// Supported output sizes. Auto leaves the choice to the model.
const (
	ImageSizeAuto ImageSize = "Auto"
	ImageSize1K   ImageSize = "1K"
	ImageSize2K   ImageSize = "2K"
	ImageSize4K   ImageSize = "4K"
)

// Valid reports whether s is one of the supported sizes.
func (s ImageSize) Valid() bool {
	switch s {
	case ImageSizeAuto, ImageSize1K, ImageSize2K, ImageSize4K:
		return true
	}
	return false
}

// AntiMode selects the reversible pixel transform applied around a generation request.
type AntiMode int

const (
	// AntiModeOff sends pixels untouched.
	AntiModeOff AntiMode = 0
	// AntiModeHue rotates hue by 180 degrees before send and after receive.
	AntiModeHue AntiMode = 1
	// AntiModeHueFlip rotates hue and flips vertically. Receive order is reversed.
	AntiModeHueFlip AntiMode = 2
)

// Valid reports whether m is a known mode.
func (m AntiMode) Valid() bool {
	return m >= AntiModeOff && m <= AntiModeHueFlip
}

// LayerType controls what kind of layer a placed result becomes.
type LayerType string

const (
	LayerRasterized  LayerType = "rasterized"
	LayerSmartObject LayerType = "smartObject"
)

// SelectionBounds is a rectangle in document pixel space.
// Right = Left + Width and Bottom = Top + Height; Width and Height are at least 1.
type SelectionBounds struct {
	Left   int `json:"left" yaml:"left"`
	Top    int `json:"top" yaml:"top"`
	Right  int `json:"right" yaml:"right"`
	Bottom int `json:"bottom" yaml:"bottom"`
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// NewSelectionBounds derives width and height from edge coordinates.
// Degenerate rectangles are widened to one pixel so the invariant holds.
//
// Example:
//
//	b := NewSelectionBounds(10, 20, 110, 70) // Width 100, Height 50
func NewSelectionBounds(left, top, right, bottom int) SelectionBounds {
	width := right - left
	if width < 1 {
		width = 1
	}
	height := bottom - top
	if height < 1 {
		height = 1
	}
	return SelectionBounds{
		Left:   left,
		Top:    top,
		Right:  left + width,
		Bottom: top + height,
		Width:  width,
		Height: height,
	}
}

// BoundsFromRect converts an image.Rectangle.
func BoundsFromRect(r image.Rectangle) SelectionBounds {
	return NewSelectionBounds(r.Min.X, r.Min.Y, r.Max.X, r.Max.Y)
}

// Rect returns the bounds as an image.Rectangle.
func (b SelectionBounds) Rect() image.Rectangle {
	return image.Rect(b.Left, b.Top, b.Left+b.Width, b.Top+b.Height)
}

// MarshalLogObject implements zapcore.ObjectMarshaler for structured logging.
func (b SelectionBounds) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddInt("left", b.Left)
	enc.AddInt("top", b.Top)
	enc.AddInt("width", b.Width)
	enc.AddInt("height", b.Height)
	return nil
}

// GenerationSettings are the per-task knobs of a generation run.
// Values reaching the orchestrators have always passed the task normalizer.
type GenerationSettings struct {
	Size               ImageSize `json:"size" yaml:"size"`
	Count              int       `json:"count" yaml:"count"`
	TimeoutSeconds     int       `json:"timeoutSeconds" yaml:"timeoutSeconds"`
	AntiTruncationMode AntiMode  `json:"antiTruncationMode" yaml:"antiTruncationMode"`
	LayerType          LayerType `json:"layerType" yaml:"layerType"`
	MaxResolution      int       `json:"maxResolution" yaml:"maxResolution"`
}

// MarshalLogObject implements zapcore.ObjectMarshaler for structured logging.
func (s GenerationSettings) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("size", string(s.Size))
	enc.AddInt("count", s.Count)
	enc.AddInt("timeout_seconds", s.TimeoutSeconds)
	enc.AddInt("anti_mode", int(s.AntiTruncationMode))
	enc.AddString("layer_type", string(s.LayerType))
	enc.AddInt("max_resolution", s.MaxResolution)
	return nil
}

// CaptureResult is one captured selection ready to send.
// Selection holds the original rectangle, never the downscaled one.
type CaptureResult struct {
	EncodedImage string          `json:"encodedImage"`
	Selection    SelectionBounds `json:"selection"`
}

// BatchTaskItem is one unit of batch work bound to a document and a capture.
type BatchTaskItem struct {
	ID           int64              `json:"id" yaml:"id"`
	DocID        int                `json:"docId" yaml:"docId"`
	DocName      string             `json:"docName" yaml:"docName"`
	Prompt       string             `json:"prompt" yaml:"prompt"`
	EncodedImage string             `json:"encodedImage" yaml:"encodedImage"`
	Selection    SelectionBounds    `json:"selection" yaml:"selection"`
	Settings     GenerationSettings `json:"settings" yaml:"settings"`
}
