package store

import (
	"errors"
	"strings"
)

var (
	// ErrKeyEmpty is returned when a key value is blank.
	ErrKeyEmpty = errors.New("store: API key cannot be empty")

	// ErrKeyNameEmpty is returned when a key name is blank.
	ErrKeyNameEmpty = errors.New("store: API key name cannot be empty")

	// ErrKeyNotFound is returned when updating a key that does not exist.
	ErrKeyNotFound = errors.New("store: selected API key not found")

	errKeyName = errors.New("store: unable to generate API key name")
)

// KeyRing selects one of the two key maps of the store file.
type KeyRing int

const (
	// GenerationKeys are the keys used for image generation and quota.
	GenerationKeys KeyRing = iota
	// ChatKeys are the keys used by the AI chat panel.
	ChatKeys
)

func (r KeyRing) of(d *fileData) *keyMap {
	if r == ChatKeys {
		return &d.AIChatAPIKeys
	}
	return &d.APIKeys
}

// ListKeys returns the keys of a ring sorted by name.
func (s *Store) ListKeys(ring KeyRing) ([]KeyEntry, error) {
	var keys []KeyEntry
	err := s.view(func(d *fileData) {
		keys = ring.of(d).sorted()
	})
	return keys, err
}

// SaveKey stores a key under a generated name: its first five characters, with
// "-2", "-3", ... appended on collision. Saving a value that is already stored
// returns the existing entry with created=false.
func (s *Store) SaveKey(ring KeyRing, value string) (entry KeyEntry, created bool, err error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return KeyEntry{}, false, ErrKeyEmpty
	}

	err = s.update(func(d *fileData) error {
		keys := ring.of(d)
		if existing, ok := keys.findValue(value); ok {
			entry = existing
			return errNoChange
		}
		name := keys.uniqueName(value, "")
		if name == "" {
			return errKeyName
		}
		keys.set(name, value)
		entry, created = KeyEntry{Name: name, Value: value}, true
		return nil
	})
	if err != nil {
		return KeyEntry{}, false, err
	}
	return entry, created, nil
}

// UpdateKey replaces the key stored under name. The entry is renamed after the
// new value; when the new value is already stored under another name, that
// entry is returned and the old one is dropped.
func (s *Store) UpdateKey(ring KeyRing, name, value string) (KeyEntry, error) {
	name = strings.TrimSpace(name)
	value = strings.TrimSpace(value)
	if name == "" {
		return KeyEntry{}, ErrKeyNameEmpty
	}
	if value == "" {
		return KeyEntry{}, ErrKeyEmpty
	}

	var entry KeyEntry
	err := s.update(func(d *fileData) error {
		keys := ring.of(d)
		if !keys.remove(name) {
			return ErrKeyNotFound
		}
		if existing, ok := keys.findValue(value); ok {
			entry = existing
			return nil
		}
		resolved := keys.uniqueName(value, KeyName(value))
		if resolved == "" {
			return errKeyName
		}
		keys.set(resolved, value)
		entry = KeyEntry{Name: resolved, Value: value}
		return nil
	})
	return entry, err
}

// DeleteKey removes a key by name and reports whether it existed.
func (s *Store) DeleteKey(ring KeyRing, name string) (bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return false, ErrKeyNameEmpty
	}
	deleted := false
	err := s.update(func(d *fileData) error {
		if !ring.of(d).remove(name) {
			return errNoChange
		}
		deleted = true
		return nil
	})
	return deleted, err
}

// ClearKeys removes every key of a ring.
func (s *Store) ClearKeys(ring KeyRing) error {
	return s.update(func(d *fileData) error {
		*ring.of(d) = keyMap{}
		return nil
	})
}

// LatestKey returns the most recently saved key of a ring.
func (s *Store) LatestKey(ring KeyRing) (KeyEntry, bool, error) {
	var (
		entry KeyEntry
		ok    bool
	)
	err := s.view(func(d *fileData) {
		entry, ok = ring.of(d).latest()
	})
	return entry, ok, err
}
