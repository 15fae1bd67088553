package model

import (
	"encoding/json"
	"time"
)

// EncodeFields serializes a dynamic-field map for storage. A nil map encodes
// as the empty object so column values stay parseable.
func EncodeFields(fields map[string]any) string {
	if len(fields) == 0 {
		return "{}"
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// DecodeFields parses a stored dynamic-field payload. Malformed payloads
// decode as an empty map rather than failing the read path.
func DecodeFields(payload string) map[string]any {
	if payload == "" {
		return map[string]any{}
	}
	var fields map[string]any
	if err := json.Unmarshal([]byte(payload), &fields); err != nil {
		return map[string]any{}
	}
	return fields
}

// CloneFields returns a shallow copy so callers can normalize without
// mutating the caller's map.
func CloneFields(fields map[string]any) map[string]any {
	if fields == nil {
		return map[string]any{}
	}
	cp := make(map[string]any, len(fields))
	for k, v := range fields {
		cp[k] = v
	}
	return cp
}

// FloatFromAny coerces loosely-typed field values into a float64.
func FloatFromAny(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case float32:
		return float64(t)
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case json.Number:
		f, _ := t.Float64()
		return f
	case string:
		var f float64
		if err := json.Unmarshal([]byte(t), &f); err == nil {
			return f
		}
	}
	return 0
}

// StringFromAny renders a field value as a string, JSON-encoding compound
// values.
func StringFromAny(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// TimeFromAny parses time values stored either natively or as RFC 3339 text.
func TimeFromAny(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		if ts, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return ts
		}
		if ts, err := time.Parse(time.RFC3339, t); err == nil {
			return ts
		}
	}
	return time.Time{}
}

// StringsFromAny flattens a field value into the list of strings it holds:
// scalars become a single element, lists keep their string members.
func StringsFromAny(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		if t == "" {
			return nil
		}
		return []string{t}
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s := StringFromAny(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	if s := StringFromAny(v); s != "" {
		return []string{s}
	}
	return nil
}
