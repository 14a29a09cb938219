// Package criteria holds the company and people filter inputs of a sequential search.
package criteria

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// StringList is a multi-valued filter dimension. It decodes from either a
// JSON string or an array of strings and is always stored normalized:
// values trimmed, empties dropped, duplicates removed in first-seen order.
type StringList []string

// NewStringList builds a normalized list.
func NewStringList(values ...string) StringList {
	return normalize(values)
}

// UnmarshalJSON accepts "x", ["x","y"] and null.
func (l *StringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode string value: %w", err)
		}
		*l = normalize([]string{s})
		return nil
	}

	var values []string
	if err := json.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("expected string or array of strings: %w", err)
	}
	*l = normalize(values)
	return nil
}

// Values returns the underlying values.
func (l StringList) Values() []string { return l }

// IsEmpty reports whether the list constrains nothing.
func (l StringList) IsEmpty() bool { return len(l) == 0 }

func normalize(values []string) StringList {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make(StringList, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
