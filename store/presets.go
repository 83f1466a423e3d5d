package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
)

// Preset is a titled prompt exchanged through preset files.
type Preset struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// ExportPresets writes presets to path as an indented JSON array.
func ExportPresets(path string, presets []Preset) error {
	if presets == nil {
		presets = []Preset{}
	}
	data, err := json.MarshalIndent(presets, "", "  ")
	if err != nil {
		return fmt.Errorf("store: failed to encode presets: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("store: failed to write presets: %w", err)
	}
	return nil
}

// ImportPresets reads a preset file. The file must hold a JSON array; entries
// missing a title or content are dropped.
func ImportPresets(path string) ([]Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("store: failed to read presets: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '[' {
		return nil, fmt.Errorf("store: preset file must contain a JSON array")
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("store: invalid preset file: %w", err)
	}

	presets := make([]Preset, 0, len(raw))
	for _, entry := range raw {
		var p struct {
			Title   looseString `json:"title"`
			Content looseString `json:"content"`
		}
		if err := json.Unmarshal(entry, &p); err != nil || p.Title == "" || p.Content == "" {
			continue
		}
		presets = append(presets, Preset{Title: string(p.Title), Content: string(p.Content)})
	}
	return presets, nil
}
