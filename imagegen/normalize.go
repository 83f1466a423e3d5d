package imagegen

import (
	"fmt"
	"math"
	"strings"
	"time"

	"genfill/core"
)

// Bounds applied by the task normalizer.
const (
	MinCount             = 1
	MaxCount             = 5
	MinMaxResolution     = 512
	MaxMaxResolution     = 4096
	DefaultMaxResolution = 1536
	DefaultTimeoutSingle = 60
	DefaultTimeoutBatch  = 60
	DefaultTimeoutGlobal = 120
)

// SettingsInput is the untrusted, loosely typed form of GenerationSettings as it
// arrives from task files or a UI bridge. Zero numbers mean "use the default".
type SettingsInput struct {
	Size               string  `json:"size" yaml:"size"`
	Count              float64 `json:"count" yaml:"count"`
	TimeoutSeconds     float64 `json:"timeoutSeconds" yaml:"timeoutSeconds"`
	AntiTruncationMode float64 `json:"antiTruncationMode" yaml:"antiTruncationMode"`
	LayerType          string  `json:"layerType" yaml:"layerType"`
	MaxResolution      float64 `json:"maxResolution" yaml:"maxResolution"`
}

// SelectionInput is the untrusted form of SelectionBounds.
type SelectionInput struct {
	Left   float64 `json:"left" yaml:"left"`
	Top    float64 `json:"top" yaml:"top"`
	Right  float64 `json:"right" yaml:"right"`
	Bottom float64 `json:"bottom" yaml:"bottom"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// BatchTaskInput is the untrusted form of a BatchTaskItem.
type BatchTaskInput struct {
	ID           float64        `json:"id" yaml:"id"`
	DocID        float64        `json:"docId" yaml:"docId"`
	DocName      string         `json:"docName" yaml:"docName"`
	Prompt       string         `json:"prompt" yaml:"prompt"`
	EncodedImage string         `json:"encodedImage" yaml:"encodedImage"`
	Selection    SelectionInput `json:"selection" yaml:"selection"`
	Settings     SettingsInput  `json:"settings" yaml:"settings"`
}

// orDefault returns floor(v) limited to the int32 range, or def when v is
// zero or not a number.
func orDefault(v float64, def int) int {
	if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return def
	}
	return int(math.Max(math.MinInt32, math.Min(math.MaxInt32, math.Floor(v))))
}

// NormalizeSettings clamps untrusted settings into their documented ranges:
//   - Size: Auto, 1K, 2K or 4K; anything else becomes Auto
//   - Count: [1, 5], default 1
//   - TimeoutSeconds: at least 5, default defaultTimeout
//   - AntiTruncationMode: 0, 1 or 2; anything else becomes 0
//   - LayerType: smartObject, otherwise rasterized
//   - MaxResolution: [512, 4096], default 1536
//
// This is a pure function with no side effects.
func NormalizeSettings(in SettingsInput, defaultTimeout int) core.GenerationSettings {
	size := core.ImageSize(strings.TrimSpace(in.Size))
	if !size.Valid() {
		size = core.ImageSizeAuto
	}

	anti := core.AntiModeOff
	if in.AntiTruncationMode == math.Trunc(in.AntiTruncationMode) {
		if m := core.AntiMode(in.AntiTruncationMode); m.Valid() {
			anti = m
		}
	}

	layerType := core.LayerRasterized
	if core.LayerType(in.LayerType) == core.LayerSmartObject {
		layerType = core.LayerSmartObject
	}

	timeout := orDefault(in.TimeoutSeconds, defaultTimeout)
	if timeout < core.MinTimeoutSeconds {
		timeout = core.MinTimeoutSeconds
	}

	return core.GenerationSettings{
		Size:               size,
		Count:              clampInt(orDefault(in.Count, MinCount), MinCount, MaxCount),
		TimeoutSeconds:     timeout,
		AntiTruncationMode: anti,
		LayerType:          layerType,
		MaxResolution:      clampInt(orDefault(in.MaxResolution, DefaultMaxResolution), MinMaxResolution, MaxMaxResolution),
	}
}

// NormalizeSelection rounds coordinates and derives width and height, falling
// back to right-left and bottom-top when they are missing. Both are at least 1.
func NormalizeSelection(in SelectionInput) core.SelectionBounds {
	left := int(math.Round(in.Left))
	top := int(math.Round(in.Top))

	width := int(math.Round(in.Width))
	if width == 0 {
		width = int(math.Round(in.Right - in.Left))
	}
	height := int(math.Round(in.Height))
	if height == 0 {
		height = int(math.Round(in.Bottom - in.Top))
	}

	return core.NewSelectionBounds(left, top, left+width, top+height)
}

// NormalizeBatchTask validates one untrusted task. A task without a prompt, an
// input image or a positive document id is rejected; every other field is
// clamped or defaulted. now supplies the id of tasks that carry none.
func NormalizeBatchTask(in BatchTaskInput, now time.Time) (core.BatchTaskItem, error) {
	prompt := strings.TrimSpace(in.Prompt)
	if prompt == "" {
		return core.BatchTaskItem{}, core.ErrPromptEmpty("Batch task")
	}

	encoded := strings.TrimSpace(in.EncodedImage)
	if encoded == "" {
		return core.BatchTaskItem{}, fmt.Errorf("imagegen: batch task missing input image")
	}

	docID := orDefault(in.DocID, 0)
	if docID <= 0 {
		return core.BatchTaskItem{}, fmt.Errorf("imagegen: batch task document info invalid")
	}

	id := int64(math.Floor(in.ID))
	if id == 0 {
		id = now.UnixMilli()
	}

	docName := strings.TrimSpace(in.DocName)
	if docName == "" {
		docName = DefaultDocName(docID)
	}

	return core.BatchTaskItem{
		ID:           id,
		DocID:        docID,
		DocName:      docName,
		Prompt:       prompt,
		EncodedImage: encoded,
		Selection:    NormalizeSelection(in.Selection),
		Settings:     NormalizeSettings(in.Settings, DefaultTimeoutBatch),
	}, nil
}

// TaskInputFromItem converts a normalized task back to its file form.
func TaskInputFromItem(item core.BatchTaskItem) BatchTaskInput {
	return BatchTaskInput{
		ID:           float64(item.ID),
		DocID:        float64(item.DocID),
		DocName:      item.DocName,
		Prompt:       item.Prompt,
		EncodedImage: item.EncodedImage,
		Selection: SelectionInput{
			Left:   float64(item.Selection.Left),
			Top:    float64(item.Selection.Top),
			Right:  float64(item.Selection.Right),
			Bottom: float64(item.Selection.Bottom),
			Width:  float64(item.Selection.Width),
			Height: float64(item.Selection.Height),
		},
		Settings: SettingsInput{
			Size:               string(item.Settings.Size),
			Count:              float64(item.Settings.Count),
			TimeoutSeconds:     float64(item.Settings.TimeoutSeconds),
			AntiTruncationMode: float64(item.Settings.AntiTruncationMode),
			LayerType:          string(item.Settings.LayerType),
			MaxResolution:      float64(item.Settings.MaxResolution),
		},
	}
}
