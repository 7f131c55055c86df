// Package types defines the data structures shared across the note store,
// index, search, and link-synchronizer layers.
package types

import (
	"encoding/json"
	"strings"
	"time"
)

// ValueType tags the shape of a MetadataValue so the index database can
// store the serialized form alongside an explicit type and deserialize
// exactly.
type ValueType string

const (
	ValueString ValueType = "string"
	ValueNumber ValueType = "number"
	ValueBool   ValueType = "bool"
	ValueNull   ValueType = "null"
	ValueList   ValueType = "list"
	ValueObject ValueType = "object"
	ValueLinks  ValueType = "links"
)

// MetadataValue is the tagged-union representation of a single metadata
// entry: string | number | boolean | null | ordered-list-of-scalars |
// nested-object | link-list.
type MetadataValue struct {
	Type ValueType
	Raw  any // native Go value: string, number (int, int64, float32, float64; float64 after storage), bool, nil, []any (lists and link lists), map[string]any
}

// Serialize returns the JSON-encoded canonical form used by the content
// hash.
func (v MetadataValue) Serialize() (string, error) {
	if v.Type == ValueNull {
		return "null", nil
	}
	b, err := json.Marshal(v.Raw)
	return string(b), err
}

// StorageValue returns the form stored in a note_metadata row: scalars as
// their raw text (the type tag makes deserialization exact), composite
// values JSON-encoded.
func (v MetadataValue) StorageValue() (string, error) {
	switch v.Type {
	case ValueNull:
		return "", nil
	case ValueString:
		s, _ := v.Raw.(string)
		return s, nil
	case ValueBool:
		if b, _ := v.Raw.(bool); b {
			return "true", nil
		}
		return "false", nil
	case ValueNumber:
		b, err := json.Marshal(v.Raw)
		return string(b), err
	default:
		b, err := json.Marshal(v.Raw)
		return string(b), err
	}
}

// FromStorage reconstructs a MetadataValue from a stored (value,
// value_type) pair.
func FromStorage(value string, vt ValueType) (MetadataValue, error) {
	mv := MetadataValue{Type: vt}
	switch vt {
	case ValueNull:
		mv.Raw = nil
	case ValueString:
		mv.Raw = value
	case ValueBool:
		mv.Raw = value == "true"
	case ValueNumber:
		var n float64
		if err := json.Unmarshal([]byte(value), &n); err != nil {
			return MetadataValue{}, err
		}
		mv.Raw = n
	default:
		var raw any
		if err := json.Unmarshal([]byte(value), &raw); err != nil {
			return MetadataValue{}, err
		}
		mv.Raw = raw
	}
	return mv, nil
}

// FromNative infers a ValueType from a plain Go value decoded from YAML/JSON
// (string, float64/int, bool, nil, []any, map[string]any).
func FromNative(v any) MetadataValue {
	switch val := v.(type) {
	case nil:
		return MetadataValue{Type: ValueNull, Raw: nil}
	case string:
		return MetadataValue{Type: ValueString, Raw: val}
	case bool:
		return MetadataValue{Type: ValueBool, Raw: val}
	case int, int64, float64, float32:
		return MetadataValue{Type: ValueNumber, Raw: val}
	case time.Time:
		return MetadataValue{Type: ValueString, Raw: val.UTC().Format(time.RFC3339)}
	case []any:
		if isLinkList(val) {
			return MetadataValue{Type: ValueLinks, Raw: val}
		}
		return MetadataValue{Type: ValueList, Raw: val}
	case []string:
		anySlice := make([]any, len(val))
		for i, s := range val {
			anySlice[i] = s
		}
		if isLinkList(anySlice) {
			return MetadataValue{Type: ValueLinks, Raw: anySlice}
		}
		return MetadataValue{Type: ValueList, Raw: anySlice}
	case map[string]any:
		return MetadataValue{Type: ValueObject, Raw: val}
	default:
		return MetadataValue{Type: ValueString, Raw: v}
	}
}

// isLinkList reports whether every element is a wiki-style "[[...]]"
// reference, marking the value as a link list rather than a plain list.
func isLinkList(items []any) bool {
	if len(items) == 0 {
		return false
	}
	for _, item := range items {
		s, ok := item.(string)
		if !ok || !strings.HasPrefix(s, "[[") || !strings.HasSuffix(s, "]]") {
			return false
		}
	}
	return true
}

// Metadata is a note metadata map (unordered): key -> typed value. Reserved
// keys (title, type, created, updated, filename) always reflect the
// canonical Note fields; the ProtectedUpdateKeys subset is rejected by the
// generic update path.
type Metadata map[string]MetadataValue

// ReservedKeys lists the metadata keys that always reflect the canonical
// Note fields and are never stored as generic note_metadata rows.
var ReservedKeys = map[string]bool{
	"title":    true,
	"type":     true,
	"created":  true,
	"updated":  true,
	"filename": true,
}

// ProtectedUpdateKeys is the subset of ReservedKeys that, if present in an
// update's metadata patch, fails the whole call with ProtectedField.
// Callers must use rename_note/move_note instead.
var ProtectedUpdateKeys = map[string]bool{
	"title":    true,
	"type":     true,
	"filename": true,
}
