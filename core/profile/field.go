package profile

import (
	"encoding/json"

	"filament-sync/core/utils"
)

// Field is an optional scalar value. The slicer stores these wrapped in a
// one-element JSON array on disk (e.g. ["220"]); an absent key, null, or an
// empty array all mean "unset".
type Field struct {
	value string
	set   bool
}

// NewField returns a set field holding v.
func NewField(v string) Field {
	return Field{value: v, set: true}
}

// Unset returns the zero, unset field.
func Unset() Field {
	return Field{}
}

// Value returns the scalar and whether it is set.
func (f Field) Value() (string, bool) {
	return f.value, f.set
}

// IsSet reports whether the field holds a value.
func (f Field) IsSet() bool {
	return f.set
}

// MarshalJSON writes the slicer's one-element array wrapping. Unset fields
// marshal to null; the codec omits them from the document instead.
func (f Field) MarshalJSON() ([]byte, error) {
	if !f.set {
		return []byte("null"), nil
	}
	return json.Marshal([]string{f.value})
}

// UnmarshalJSON accepts null, an empty array, or a one-element array whose
// value may be a string or a bare number.
func (f *Field) UnmarshalJSON(data []byte) error {
	var raw []any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) == 0 {
		*f = Field{}
		return nil
	}
	*f = Field{value: utils.ToString(raw[0]), set: true}
	return nil
}
