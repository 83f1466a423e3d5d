package store

import (
	"errors"
	"strings"
)

// ErrThemeEmpty is returned when saving a blank theme preset.
var ErrThemeEmpty = errors.New("store: UI theme preset cannot be empty")

// Preferences are the UI settings kept next to the prompts.
type Preferences struct {
	UIThemePreset          string `json:"uiThemePreset"`
	StartupNoticeConfirmed bool   `json:"startupNoticeConfirmed"`
	CustomFeatureEnabled   bool   `json:"customFeatureEnabled"`
	SkipRemoteSync         bool   `json:"skipRemoteSync"`
}

// ParseFlag reads "1" and "true" as true and everything else as false.
//
// This is a pure function with no side effects.
func ParseFlag(raw string) bool {
	switch strings.TrimSpace(raw) {
	case "1", "true":
		return true
	}
	return false
}

// Preferences returns the stored preferences.
func (s *Store) Preferences() (Preferences, error) {
	var p Preferences
	err := s.view(func(d *fileData) {
		p = Preferences{
			UIThemePreset:          d.UIThemePreset,
			StartupNoticeConfirmed: bool(d.StartupNoticeConfirmed),
			CustomFeatureEnabled:   bool(d.CustomFeatureEnabled),
			SkipRemoteSync:         bool(d.SkipRemoteSync),
		}
	})
	return p, err
}

// SetUIThemePreset stores the theme preset name.
func (s *Store) SetUIThemePreset(value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return ErrThemeEmpty
	}
	return s.update(func(d *fileData) error {
		d.UIThemePreset = value
		return nil
	})
}

// SetStartupNoticeConfirmed stores the flag parsed from raw and returns it.
func (s *Store) SetStartupNoticeConfirmed(raw string) (bool, error) {
	v := ParseFlag(raw)
	return v, s.update(func(d *fileData) error {
		d.StartupNoticeConfirmed = Flag(v)
		return nil
	})
}

// SetCustomFeatureEnabled stores the flag parsed from raw and returns it.
func (s *Store) SetCustomFeatureEnabled(raw string) (bool, error) {
	v := ParseFlag(raw)
	return v, s.update(func(d *fileData) error {
		d.CustomFeatureEnabled = Flag(v)
		return nil
	})
}
