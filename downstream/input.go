package downstream

import (
	"encoding/json"
	"fmt"
	"io"
	"reflect"
)

// Kind tags the variant of an Input.
type Kind int

const (
	// KindEmpty is the absence of a request body.
	KindEmpty Kind = iota
	// KindPrebuilt is content the caller encoded itself.
	KindPrebuilt
	// KindText is a string payload.
	KindText
	// KindBytes is a byte slice payload.
	KindBytes
	// KindStream is a reader payload of unknown length.
	KindStream
	// KindStructured is a value encoded as JSON.
	KindStructured
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindPrebuilt:
		return "prebuilt"
	case KindText:
		return "text"
	case KindBytes:
		return "bytes"
	case KindStream:
		return "stream"
	case KindStructured:
		return "structured"
	default:
		return "unknown"
	}
}

// Input is the request payload of a call. It is a closed set of variants:
// Empty, Prebuilt, Text, Bytes, Stream and Structured[T].
type Input interface {
	// Kind returns the variant tag.
	Kind() Kind
	// Value returns the wrapped value as handed to a custom Serializer.
	Value() any

	sealed()
}

// Empty is the absence of a request body.
type Empty struct{}

// Prebuilt is content the caller encoded itself. It is sent unchanged.
type Prebuilt struct {
	Content *Content
}

// Text is a string payload sent with Options.ContentType.
type Text string

// Bytes is a binary payload.
type Bytes []byte

// Stream is a payload read from Reader.
type Stream struct {
	Reader io.Reader
}

// Structured is a value encoded as JSON, through Descriptor when it is set.
type Structured[T any] struct {
	Data       T
	Descriptor *Descriptor[T]
}

func (Empty) Kind() Kind         { return KindEmpty }
func (Prebuilt) Kind() Kind      { return KindPrebuilt }
func (Text) Kind() Kind          { return KindText }
func (Bytes) Kind() Kind         { return KindBytes }
func (Stream) Kind() Kind        { return KindStream }
func (Structured[T]) Kind() Kind { return KindStructured }

func (Empty) Value() any           { return nil }
func (p Prebuilt) Value() any      { return p.Content }
func (t Text) Value() any          { return string(t) }
func (b Bytes) Value() any         { return []byte(b) }
func (s Stream) Value() any        { return s.Reader }
func (s Structured[T]) Value() any { return s.Data }

func (Empty) sealed()         {}
func (Prebuilt) sealed()      {}
func (Text) sealed()          {}
func (Bytes) sealed()         {}
func (Stream) sealed()        {}
func (Structured[T]) sealed() {}

// encodeJSON encodes the structured value.
func (s Structured[T]) encodeJSON() ([]byte, error) {
	if s.Descriptor != nil && s.Descriptor.Marshal != nil {
		return s.Descriptor.Marshal(s.Data)
	}
	return json.Marshal(s.Data)
}

// jsonEncoder is implemented by every Structured[T].
type jsonEncoder interface {
	encodeJSON() ([]byte, error)
}

// None is the Empty input.
var None Input = Empty{}

// Object wraps v for JSON encoding.
func Object[T any](v T) Structured[T] {
	return Structured[T]{Data: v}
}

// ObjectWith wraps v for JSON encoding through d.
func ObjectWith[T any](v T, d *Descriptor[T]) Structured[T] {
	return Structured[T]{Data: v, Descriptor: d}
}

// From maps a dynamically typed value to its Input variant. It is meant for
// callers that receive payloads as any; typed callers should build the
// variant directly. nil, including a typed nil pointer, map, slice or
// reader, is Empty.
func From(v any) Input {
	if in, ok := v.(Input); ok {
		return in
	}
	if isNil(v) {
		return Empty{}
	}
	switch x := v.(type) {
	case *Content:
		return Prebuilt{Content: x}
	case string:
		return Text(x)
	case []byte:
		return Bytes(x)
	case io.Reader:
		return Stream{Reader: x}
	default:
		return Structured[any]{Data: x}
	}
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

func errUnknownInput(in Input) error {
	return fmt.Errorf("unsupported input %T of kind %s", in, in.Kind())
}
