package store

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// The store file is edited by hand and written by older plugin builds, so
// scalar fields are decoded leniently: a string field accepts numbers and
// booleans, a number field accepts numeric strings, and anything else decodes
// to the zero value instead of failing the whole file.

// looseString decodes any JSON scalar into its trimmed text form.
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case string:
		*s = looseString(strings.TrimSpace(t))
	case float64:
		*s = looseString(strconv.FormatFloat(t, 'f', -1, 64))
	case bool:
		*s = looseString(strconv.FormatBool(t))
	default:
		*s = ""
	}
	return nil
}

// looseNumber decodes a number, a numeric string or a boolean. Anything else is NaN.
type looseNumber float64

func (n *looseNumber) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*n = looseNumber(math.NaN())
	switch t := v.(type) {
	case float64:
		*n = looseNumber(t)
	case bool:
		if t {
			*n = 1
		} else {
			*n = 0
		}
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			*n = 0
		} else if f, err := strconv.ParseFloat(s, 64); err == nil {
			*n = looseNumber(f)
		}
	}
	return nil
}

func (n looseNumber) is(v float64) bool {
	return float64(n) == v
}

// Flag is a boolean stored as 0 or 1. Any value other than 1 reads as false.
type Flag bool

func (f Flag) MarshalJSON() ([]byte, error) {
	if f {
		return []byte("1"), nil
	}
	return []byte("0"), nil
}

func (f *Flag) UnmarshalJSON(data []byte) error {
	var n looseNumber
	if err := n.UnmarshalJSON(data); err != nil {
		return err
	}
	*f = Flag(n.is(1))
	return nil
}

// looseTags accepts either an array of scalars or one string separated by
// commas, full-width commas or newlines.
type looseTags []string

func (t *looseTags) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var items []looseString
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		raw := make([]string, len(items))
		for i, item := range items {
			raw[i] = string(item)
		}
		*t = normalizeTags(raw)
		return nil
	}
	var s looseString
	if err := s.UnmarshalJSON(data); err != nil {
		return err
	}
	*t = ParseTags(string(s))
	return nil
}

var tagSeparators = strings.NewReplacer("，", ",", "\n", ",")

// ParseTags splits a tag string on ",", "，" or newlines, trimming and
// de-duplicating the parts in order.
//
// This is a pure function with no side effects.
//
// Example:
//
//	ParseTags("sky, night，sky\nstars") // ["sky", "night", "stars"]
func ParseTags(raw string) []string {
	return normalizeTags(strings.Split(tagSeparators.Replace(raw), ","))
}

func normalizeTags(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	tags := make([]string, 0, len(raw))
	for _, tag := range raw {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	return tags
}
