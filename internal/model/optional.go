package model

import "encoding/json"

// Optional holds a value that may be absent. The zero value is absent.
// Absent values marshal to JSON null rather than the zero value of T.
type Optional[T any] struct {
	v  T
	ok bool
}

// Some returns a present value.
func Some[T any](v T) Optional[T] {
	return Optional[T]{v: v, ok: true}
}

// None returns an absent value.
func None[T any]() Optional[T] {
	return Optional[T]{}
}

// Get returns the value and whether it is present.
func (o Optional[T]) Get() (T, bool) {
	return o.v, o.ok
}

// IsSet reports whether the value is present.
func (o Optional[T]) IsSet() bool {
	return o.ok
}

// OrElse returns the value, or d when absent.
func (o Optional[T]) OrElse(d T) T {
	if o.ok {
		return o.v
	}
	return d
}

// MarshalJSON implements json.Marshaler.
func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.ok {
		return []byte("null"), nil
	}
	return json.Marshal(o.v)
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *Optional[T]) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*o = Optional[T]{}
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}
