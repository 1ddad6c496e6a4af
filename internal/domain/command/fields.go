package command

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Fields is a decoded JSON object with typed accessors. Handlers receive the
// normalized entity payload in this form and pick out what they map.
type Fields map[string]any

// Has reports whether the key is present, even with a null value
func (f Fields) Has(key string) bool {
	_, ok := f[key]
	return ok
}

// String returns the value as a string; numbers are formatted, everything
// else yields ""
func (f Fields) String(key string) string {
	switch v := f[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case json.Number:
		return v.String()
	}
	return ""
}

// StringOr returns the value as a string, or def when empty
func (f Fields) StringOr(key, def string) string {
	if s := f.String(key); s != "" {
		return s
	}
	return def
}

// FirstString returns the first non-empty string among the given keys
func (f Fields) FirstString(keys ...string) string {
	for _, key := range keys {
		if s := f.String(key); s != "" {
			return s
		}
	}
	return ""
}

// Bool returns the value as a bool; absent or non-bool values follow
// JSON-ish truthiness (non-zero numbers and non-empty strings are true)
func (f Fields) Bool(key string) bool {
	switch v := f[key].(type) {
	case bool:
		return v
	case float64:
		return v != 0
	case string:
		return v != "" && v != "0" && v != "false"
	}
	return false
}

// BoolOr returns the value as a bool, or def when the key is absent
func (f Fields) BoolOr(key string, def bool) bool {
	if !f.Has(key) {
		return def
	}
	return f.Bool(key)
}

// Float returns the value as a float64 with ok=false when absent or
// unparseable
func (f Fields) Float(key string) (float64, bool) {
	switch v := f[key].(type) {
	case float64:
		return v, true
	case json.Number:
		n, err := v.Float64()
		return n, err == nil
	case string:
		n, err := strconv.ParseFloat(v, 64)
		return n, err == nil
	}
	return 0, false
}

// Int returns the value as an int with ok=false when absent or unparseable
func (f Fields) Int(key string) (int, bool) {
	n, ok := f.Float(key)
	if !ok {
		return 0, false
	}
	return int(n), true
}

// Map returns a nested object, or nil
func (f Fields) Map(key string) Fields {
	if m, ok := f[key].(map[string]any); ok {
		return Fields(m)
	}
	return nil
}

// Slice returns a nested array, or nil
func (f Fields) Slice(key string) []any {
	if s, ok := f[key].([]any); ok {
		return s
	}
	return nil
}

// Maps returns a nested array of objects, skipping non-object entries
func (f Fields) Maps(key string) []Fields {
	raw := f.Slice(key)
	if raw == nil {
		return nil
	}
	out := make([]Fields, 0, len(raw))
	for _, entry := range raw {
		if m, ok := entry.(map[string]any); ok {
			out = append(out, Fields(m))
		}
	}
	return out
}

// JSON renders the value under key as a compact JSON string, or "" when the
// key is absent. Used for pass-through columns that store raw sub-documents.
func (f Fields) JSON(key string) string {
	v, ok := f[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
