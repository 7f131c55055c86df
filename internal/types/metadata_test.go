package types

import (
	"reflect"
	"testing"
)

func TestStorageRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		value MetadataValue
	}{
		{"string", FromNative("hello")},
		{"empty string", FromNative("")},
		{"bool true", FromNative(true)},
		{"bool false", FromNative(false)},
		{"number", FromNative(3.5)},
		{"null", FromNative(nil)},
		{"list", FromNative([]any{"a", "b", "c"})},
		{"single element list", FromNative([]any{"only"})},
		{"nested map", FromNative(map[string]any{"inner": "v", "n": 2.0})},
		{"link list", FromNative([]any{"[[general/a]]", "[[Other Note]]"})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stored, err := tt.value.StorageValue()
			if err != nil {
				t.Fatalf("StorageValue() error: %v", err)
			}
			back, err := FromStorage(stored, tt.value.Type)
			if err != nil {
				t.Fatalf("FromStorage() error: %v", err)
			}
			if back.Type != tt.value.Type {
				t.Errorf("Type = %v, want %v", back.Type, tt.value.Type)
			}
			if !reflect.DeepEqual(back.Raw, tt.value.Raw) {
				t.Errorf("Raw = %#v, want %#v", back.Raw, tt.value.Raw)
			}
		})
	}
}

func TestStorageRoundTrip_IntegerNumbers(t *testing.T) {
	value := FromNative(42)
	stored, err := value.StorageValue()
	if err != nil {
		t.Fatal(err)
	}
	back, err := FromStorage(stored, ValueNumber)
	if err != nil {
		t.Fatal(err)
	}
	// Numbers normalize to float64 on the way back, matching JSON semantics.
	if back.Raw != float64(42) {
		t.Errorf("Raw = %#v, want 42.0", back.Raw)
	}
}

func TestFromNative_TypeTags(t *testing.T) {
	tests := []struct {
		value any
		want  ValueType
	}{
		{"s", ValueString},
		{true, ValueBool},
		{1, ValueNumber},
		{2.5, ValueNumber},
		{nil, ValueNull},
		{[]any{"x"}, ValueList},
		{[]string{"x"}, ValueList},
		{[]any{"[[linked]]"}, ValueLinks},
		{[]any{"[[linked]]", "not a link"}, ValueList},
		{map[string]any{}, ValueObject},
	}
	for _, tt := range tests {
		if got := FromNative(tt.value).Type; got != tt.want {
			t.Errorf("FromNative(%#v).Type = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestSerialize_CanonicalJSON(t *testing.T) {
	s, err := FromNative("text").Serialize()
	if err != nil || s != `"text"` {
		t.Errorf("Serialize(string) = %q, %v", s, err)
	}
	n, err := FromNative(nil).Serialize()
	if err != nil || n != "null" {
		t.Errorf("Serialize(null) = %q, %v", n, err)
	}
}
