package models

import (
	"bytes"
	"encoding/json"
	"reflect"
)

var jsonNull = []byte("null")

// Opt is an optional value. The zero Opt is unset, which is distinct from a
// set value that happens to be empty or zero.
//
// In JSON an unset Opt is omitted (with the omitzero tag option) or null.
type Opt[T any] struct {
	value T
	set   bool
}

// Some returns an Opt holding v.
func Some[T any](v T) Opt[T] {
	return Opt[T]{value: v, set: true}
}

// None returns an unset Opt.
func None[T any]() Opt[T] {
	return Opt[T]{}
}

// Get returns the value and whether it is set.
func (o Opt[T]) Get() (T, bool) {
	return o.value, o.set
}

// IsSet reports whether a value is present.
func (o Opt[T]) IsSet() bool {
	return o.set
}

// IsZero reports whether the Opt is unset. It lets encoding/json honour omitzero.
func (o Opt[T]) IsZero() bool {
	return !o.set
}

// OrElse returns the value if set, otherwise fallback.
func (o Opt[T]) OrElse(fallback T) T {
	if o.set {
		return o.value
	}
	return fallback
}

func (o Opt[T]) MarshalJSON() ([]byte, error) {
	if !o.set {
		return jsonNull, nil
	}
	b, err := json.Marshal(o.value)
	if err != nil || !bytes.Equal(b, jsonNull) {
		return b, err
	}
	// A set nil slice must not read back as unset.
	if rv := reflect.ValueOf(o.value); rv.Kind() == reflect.Slice {
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return []byte(`""`), nil
		}
		return []byte("[]"), nil
	}
	return b, nil
}

func (o *Opt[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), jsonNull) {
		*o = Opt[T]{}
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}
