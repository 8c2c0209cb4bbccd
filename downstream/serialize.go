package downstream

// SerializeInput turns in into request content. The first matching rule wins:
//
//   - nil, Empty or a Structured holding nil: no content
//   - Prebuilt: the caller's Content, unchanged
//   - opts.Serializer set: its result, errors included
//   - Text: text content with opts.ContentType, text/plain by default
//   - Bytes: binary content without a content type
//   - Stream: streaming content without a content type or length
//   - Structured: JSON through the descriptor when one is set
//
// Input values are never modified.
func SerializeInput(in Input, opts *Options) (*Content, error) {
	if in == nil || in.Kind() == KindEmpty {
		return nil, nil
	}
	if in.Kind() == KindStructured && isNil(in.Value()) {
		return nil, nil
	}
	if p, ok := in.(Prebuilt); ok {
		return p.Content, nil
	}
	if opts != nil && opts.Serializer != nil {
		return opts.Serializer(in.Value())
	}

	switch v := in.(type) {
	case Text:
		ct := ""
		if opts != nil {
			ct = opts.ContentType
		}
		return NewTextContent(string(v), ct), nil
	case Bytes:
		return NewBytesContent(v), nil
	case Stream:
		return NewStreamContent(v.Reader), nil
	case jsonEncoder:
		data, err := v.encodeJSON()
		if err != nil {
			return nil, NewSerializationError(err)
		}
		return NewJSONContent(data), nil
	default:
		return nil, NewSerializationError(errUnknownInput(in))
	}
}
