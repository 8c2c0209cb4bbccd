package downstream

import (
	gojson "github.com/goccy/go-json"
)

// Descriptor is a precompiled JSON codec for T. It must behave exactly like
// the encoding/json path for the same type; only the speed differs.
type Descriptor[T any] struct {
	// Marshal encodes a value of T.
	Marshal func(v T) ([]byte, error)
	// Unmarshal decodes data into v.
	Unmarshal func(data []byte, v *T) error
}

// JSONDescriptor returns a Descriptor backed by go-json, which compiles and
// caches a type-specific encoder and decoder on first use.
func JSONDescriptor[T any]() *Descriptor[T] {
	return &Descriptor[T]{
		Marshal: func(v T) ([]byte, error) {
			return gojson.Marshal(v)
		},
		Unmarshal: func(data []byte, v *T) error {
			return gojson.Unmarshal(data, v)
		},
	}
}
