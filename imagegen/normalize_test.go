package imagegen

import (
	"testing"
	"time"

	"genfill/core"
)

func TestNormalizeSettings_Clamps(t *testing.T) {
	tests := []struct {
		name  string
		in    SettingsInput
		check func(t *testing.T, s core.GenerationSettings)
	}{
		{"count zero", SettingsInput{Count: 0}, func(t *testing.T, s core.GenerationSettings) {
			if s.Count != 1 {
				t.Errorf("Count = %d, want 1", s.Count)
			}
		}},
		{"count negative", SettingsInput{Count: -1}, func(t *testing.T, s core.GenerationSettings) {
			if s.Count != 1 {
				t.Errorf("Count = %d, want 1", s.Count)
			}
		}},
		{"count huge", SettingsInput{Count: 999}, func(t *testing.T, s core.GenerationSettings) {
			if s.Count != 5 {
				t.Errorf("Count = %d, want 5", s.Count)
			}
		}},
		{"count fractional", SettingsInput{Count: 3.7}, func(t *testing.T, s core.GenerationSettings) {
			if s.Count != 3 {
				t.Errorf("Count = %d, want 3", s.Count)
			}
		}},
		{"max resolution low", SettingsInput{MaxResolution: 100}, func(t *testing.T, s core.GenerationSettings) {
			if s.MaxResolution != 512 {
				t.Errorf("MaxResolution = %d, want 512", s.MaxResolution)
			}
		}},
		{"max resolution high", SettingsInput{MaxResolution: 10000}, func(t *testing.T, s core.GenerationSettings) {
			if s.MaxResolution != 4096 {
				t.Errorf("MaxResolution = %d, want 4096", s.MaxResolution)
			}
		}},
		{"out of int range high", SettingsInput{Count: 1e20, MaxResolution: 1e20}, func(t *testing.T, s core.GenerationSettings) {
			if s.Count != 5 || s.MaxResolution != 4096 {
				t.Errorf("Count, MaxResolution = %d, %d, want 5, 4096", s.Count, s.MaxResolution)
			}
		}},
		{"out of int range low", SettingsInput{Count: -1e20, MaxResolution: -1e20}, func(t *testing.T, s core.GenerationSettings) {
			if s.Count != 1 || s.MaxResolution != 512 {
				t.Errorf("Count, MaxResolution = %d, %d, want 1, 512", s.Count, s.MaxResolution)
			}
		}},
		{"max resolution default", SettingsInput{}, func(t *testing.T, s core.GenerationSettings) {
			if s.MaxResolution != 1536 {
				t.Errorf("MaxResolution = %d, want 1536", s.MaxResolution)
			}
		}},
		{"timeout default", SettingsInput{}, func(t *testing.T, s core.GenerationSettings) {
			if s.TimeoutSeconds != 60 {
				t.Errorf("TimeoutSeconds = %d, want 60", s.TimeoutSeconds)
			}
		}},
		{"timeout minimum", SettingsInput{TimeoutSeconds: 2}, func(t *testing.T, s core.GenerationSettings) {
			if s.TimeoutSeconds != 5 {
				t.Errorf("TimeoutSeconds = %d, want 5", s.TimeoutSeconds)
			}
		}},
		{"size unknown", SettingsInput{Size: "8K"}, func(t *testing.T, s core.GenerationSettings) {
			if s.Size != core.ImageSizeAuto {
				t.Errorf("Size = %q, want Auto", s.Size)
			}
		}},
		{"size known", SettingsInput{Size: "2K"}, func(t *testing.T, s core.GenerationSettings) {
			if s.Size != core.ImageSize2K {
				t.Errorf("Size = %q, want 2K", s.Size)
			}
		}},
		{"anti unknown", SettingsInput{AntiTruncationMode: 7}, func(t *testing.T, s core.GenerationSettings) {
			if s.AntiTruncationMode != core.AntiModeOff {
				t.Errorf("AntiTruncationMode = %d, want 0", s.AntiTruncationMode)
			}
		}},
		{"anti fractional", SettingsInput{AntiTruncationMode: 1.5}, func(t *testing.T, s core.GenerationSettings) {
			if s.AntiTruncationMode != core.AntiModeOff {
				t.Errorf("AntiTruncationMode = %d, want 0", s.AntiTruncationMode)
			}
		}},
		{"anti two", SettingsInput{AntiTruncationMode: 2}, func(t *testing.T, s core.GenerationSettings) {
			if s.AntiTruncationMode != core.AntiModeHueFlip {
				t.Errorf("AntiTruncationMode = %d, want 2", s.AntiTruncationMode)
			}
		}},
		{"layer unknown", SettingsInput{LayerType: "vector"}, func(t *testing.T, s core.GenerationSettings) {
			if s.LayerType != core.LayerRasterized {
				t.Errorf("LayerType = %q, want rasterized", s.LayerType)
			}
		}},
		{"layer smart", SettingsInput{LayerType: "smartObject"}, func(t *testing.T, s core.GenerationSettings) {
			if s.LayerType != core.LayerSmartObject {
				t.Errorf("LayerType = %q, want smartObject", s.LayerType)
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, NormalizeSettings(tt.in, DefaultTimeoutSingle))
		})
	}
}

func TestNormalizeSettings_DefaultTimeoutPerMode(t *testing.T) {
	if got := NormalizeSettings(SettingsInput{}, DefaultTimeoutGlobal).TimeoutSeconds; got != 120 {
		t.Errorf("global default timeout = %d, want 120", got)
	}
}

func TestNormalizeSelection(t *testing.T) {
	tests := []struct {
		name string
		in   SelectionInput
		want core.SelectionBounds
	}{
		{
			name: "width and height given",
			in:   SelectionInput{Left: 10, Top: 20, Width: 100, Height: 50},
			want: core.SelectionBounds{Left: 10, Top: 20, Right: 110, Bottom: 70, Width: 100, Height: 50},
		},
		{
			name: "fallback to edges",
			in:   SelectionInput{Left: 10, Top: 20, Right: 40, Bottom: 30},
			want: core.SelectionBounds{Left: 10, Top: 20, Right: 40, Bottom: 30, Width: 30, Height: 10},
		},
		{
			name: "degenerate",
			in:   SelectionInput{Left: 5, Top: 5},
			want: core.SelectionBounds{Left: 5, Top: 5, Right: 6, Bottom: 6, Width: 1, Height: 1},
		},
		{
			name: "rounding",
			in:   SelectionInput{Left: 0.6, Top: 1.4, Width: 9.5, Height: 2.2},
			want: core.SelectionBounds{Left: 1, Top: 1, Right: 11, Bottom: 3, Width: 10, Height: 2},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeSelection(tt.in); got != tt.want {
				t.Errorf("NormalizeSelection() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestNormalizeBatchTask(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	valid := BatchTaskInput{
		DocID:        3,
		Prompt:       "  add clouds  ",
		EncodedImage: "aGVsbG8=",
		Selection:    SelectionInput{Left: 1, Top: 2, Width: 3, Height: 4},
		Settings:     SettingsInput{Count: 9},
	}

	item, err := NormalizeBatchTask(valid, now)
	if err != nil {
		t.Fatalf("NormalizeBatchTask: %v", err)
	}
	if item.Prompt != "add clouds" {
		t.Errorf("Prompt = %q", item.Prompt)
	}
	if item.ID != now.UnixMilli() {
		t.Errorf("ID = %d, want %d", item.ID, now.UnixMilli())
	}
	if item.DocName != "Doc 3" {
		t.Errorf("DocName = %q, want Doc 3", item.DocName)
	}
	if item.Settings.Count != 5 {
		t.Errorf("Count = %d, want 5", item.Settings.Count)
	}

	tests := []struct {
		name   string
		mutate func(in *BatchTaskInput)
	}{
		{"empty prompt", func(in *BatchTaskInput) { in.Prompt = "   " }},
		{"missing image", func(in *BatchTaskInput) { in.EncodedImage = "" }},
		{"zero doc", func(in *BatchTaskInput) { in.DocID = 0 }},
		{"negative doc", func(in *BatchTaskInput) { in.DocID = -4 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)
			if _, err := NormalizeBatchTask(in, now); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestTaskInputFromItem_RoundTrip(t *testing.T) {
	item := core.BatchTaskItem{
		ID:           42,
		DocID:        7,
		DocName:      "poster.psd",
		Prompt:       "sunset",
		EncodedImage: "eA==",
		Selection:    core.NewSelectionBounds(5, 6, 25, 16),
		Settings: core.GenerationSettings{
			Size: core.ImageSize4K, Count: 3, TimeoutSeconds: 90,
			AntiTruncationMode: core.AntiModeHue, LayerType: core.LayerSmartObject, MaxResolution: 2048,
		},
	}
	got, err := NormalizeBatchTask(TaskInputFromItem(item), time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if got != item {
		t.Errorf("round trip = %+v, want %+v", got, item)
	}
}
