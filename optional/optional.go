// Package optional provides a small generic optional-value wrapper.
//
// The empty state is itself meaningful (an unknown GPS accuracy is distinct
// from a zero accuracy) and survives JSON and msgpack round-trips. Use it
// for measurements, priors and covariances whose absence carries
// information.
package optional

import (
	"encoding/json"

	"github.com/vmihailenco/msgpack/v5"
)

// Optional holds either a value of type T or nothing.
//
// The zero Optional is empty and ready to use.
type Optional[T any] struct {
	value    T
	hasValue bool
}

// Of returns an Optional holding v.
func Of[T any](v T) Optional[T] {
	return Optional[T]{value: v, hasValue: true}
}

// Empty returns an Optional holding nothing.
func Empty[T any]() Optional[T] {
	return Optional[T]{}
}

// HasValue reports whether a value is present.
func (o Optional[T]) HasValue() bool { return o.hasValue }

// Value returns the held value. If the Optional is empty, it returns the
// zero value of T; callers that care must check HasValue first.
func (o Optional[T]) Value() T { return o.value }

// Get returns the held value and whether it is present.
func (o Optional[T]) Get() (T, bool) { return o.value, o.hasValue }

// ValueOr returns the held value, or fallback when empty.
func (o Optional[T]) ValueOr(fallback T) T {
	if o.hasValue {
		return o.value
	}
	return fallback
}

// SetValue stores v.
func (o *Optional[T]) SetValue(v T) {
	o.value = v
	o.hasValue = true
}

// Reset clears the Optional back to the empty state.
func (o *Optional[T]) Reset() {
	var zero T
	o.value = zero
	o.hasValue = false
}

// envelope is the serialized form. The explicit flag keeps "no value"
// distinguishable from a present zero value.
type envelope[T any] struct {
	HasValue bool `json:"has_value" msgpack:"has_value"`
	Value    T    `json:"value,omitempty" msgpack:"value,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (o Optional[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(envelope[T]{HasValue: o.hasValue, Value: o.value})
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	var env envelope[T]
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	if !env.HasValue {
		o.Reset()
		return nil
	}
	o.SetValue(env.Value)
	return nil
}

// EncodeMsgpack implements msgpack.CustomEncoder.
func (o Optional[T]) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.Encode(envelope[T]{HasValue: o.hasValue, Value: o.value})
}

// DecodeMsgpack implements msgpack.CustomDecoder.
func (o *Optional[T]) DecodeMsgpack(dec *msgpack.Decoder) error {
	var env envelope[T]
	if err := dec.Decode(&env); err != nil {
		return err
	}
	if !env.HasValue {
		o.Reset()
		return nil
	}
	o.SetValue(env.Value)
	return nil
}
