package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

// KeyEntry is one named API key.
type KeyEntry struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// keyMap is a JSON object of name → key that remembers insertion order,
// so the most recently saved key can be found again after a reload.
type keyMap []KeyEntry

func (m keyMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(e.Name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(e.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON keeps object order and drops entries with an empty name or
// value. Anything that is not an object decodes to an empty map.
func (m *keyMap) UnmarshalJSON(data []byte) error {
	*m = nil
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, _ := tok.(string)
		var value looseString
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("store: key %q: %w", name, err)
		}
		name = strings.TrimSpace(name)
		if name == "" || value == "" {
			continue
		}
		m.set(name, string(value))
	}
	return nil
}

func (m keyMap) clone() keyMap {
	if m == nil {
		return nil
	}
	out := make(keyMap, len(m))
	copy(out, m)
	return out
}

func (m keyMap) index(name string) int {
	for i, e := range m {
		if e.Name == name {
			return i
		}
	}
	return -1
}

func (m keyMap) has(name string) bool {
	return m.index(name) >= 0
}

// set replaces the value of an existing name in place or appends a new entry.
func (m *keyMap) set(name, value string) {
	if i := m.index(name); i >= 0 {
		(*m)[i].Value = value
		return
	}
	*m = append(*m, KeyEntry{Name: name, Value: value})
}

func (m *keyMap) remove(name string) bool {
	i := m.index(name)
	if i < 0 {
		return false
	}
	*m = append((*m)[:i], (*m)[i+1:]...)
	return true
}

func (m keyMap) findValue(value string) (KeyEntry, bool) {
	for _, e := range m {
		if e.Value == value {
			return e, true
		}
	}
	return KeyEntry{}, false
}

// sorted returns the entries ordered by name.
func (m keyMap) sorted() []KeyEntry {
	out := make([]KeyEntry, len(m))
	copy(out, m)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (m keyMap) latest() (KeyEntry, bool) {
	if len(m) == 0 {
		return KeyEntry{}, false
	}
	return m[len(m)-1], true
}

// KeyName derives the default display name of a key: its first five characters.
//
// This is a pure function with no side effects.
func KeyName(value string) string {
	value = strings.TrimSpace(value)
	if utf8.RuneCountInString(value) <= 5 {
		return value
	}
	return string([]rune(value)[:5])
}

// uniqueName returns preferred when it is free, otherwise KeyName(value) with
// "-2", "-3", ... appended until it no longer collides.
func (m keyMap) uniqueName(value, preferred string) string {
	if preferred = strings.TrimSpace(preferred); preferred != "" && !m.has(preferred) {
		return preferred
	}
	base := KeyName(value)
	if base == "" {
		return ""
	}
	if !m.has(base) {
		return base
	}
	for i := 2; ; i++ {
		name := fmt.Sprintf("%s-%d", base, i)
		if !m.has(name) {
			return name
		}
	}
}
