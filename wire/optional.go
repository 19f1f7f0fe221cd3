// ABOUTME: Optional[T] implements 3-state JSON semantics for update payloads: absent, null, or value.
// ABOUTME: Lets partial updates tell "unchanged" (field omitted) apart from "cleared" (explicit null).
package wire

import (
	"bytes"
	"encoding/json"
)

// Optional represents a message field that can be absent, explicitly null,
// or carry a value.
//
//   - Set=false:             field absent from JSON (keep previous value)
//   - Set=true, Valid=false: field is JSON null (clear the value)
//   - Set=true, Valid=true:  field has a value (replace with Value)
type Optional[T any] struct {
	Set   bool
	Valid bool
	Value T
}

// Absent returns an Optional for a missing field.
func Absent[T any]() Optional[T] {
	return Optional[T]{}
}

// Null returns an Optional for an explicit null.
func Null[T any]() Optional[T] {
	return Optional[T]{Set: true}
}

// Present returns an Optional carrying v.
func Present[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Valid: true, Value: v}
}

// Ptr returns a pointer to the value, or nil when absent or null.
func (o Optional[T]) Ptr() *T {
	if !o.Set || !o.Valid {
		return nil
	}
	v := o.Value
	return &v
}

// MarshalJSON emits null for absent and null fields; parents omit absent
// fields themselves.
func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Set || !o.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// UnmarshalJSON is only invoked for fields present in the input, so it
// always marks the field as set.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Valid = false
		var zero T
		o.Value = zero
		return nil
	}
	o.Valid = true
	return json.Unmarshal(data, &o.Value)
}
