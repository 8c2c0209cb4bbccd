package downstream

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
)

// DeserializeOutput converts resp into a T. The first matching rule wins:
//
//   - non-2xx status: an HTTP status Error carrying status, headers and body
//   - T is *Content: the response content, empty Content when there is no body
//   - opts.Deserializer set: its result, errors included
//   - JSON or missing media type: JSON decoding, through desc when set
//
// Any other media type, text included, is an unsupported content type Error. The body is read
// at most once and, except for the *Content case, closed before returning.
func DeserializeOutput[T any](resp *http.Response, opts *Options, desc *Descriptor[T]) (T, error) {
	var out T
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body := drainBody(resp)
		return out, NewHTTPStatusError(resp.StatusCode, resp.Header.Clone(), body)
	}

	content := contentFromResponse(resp)
	if raw, ok := any(&out).(**Content); ok {
		*raw = content
		return out, nil
	}
	defer content.Close()

	if opts != nil && opts.Deserializer != nil {
		v, err := opts.Deserializer(content)
		if err != nil {
			return out, err
		}
		if v == nil {
			return out, nil
		}
		typed, ok := v.(T)
		if !ok {
			return out, NewDeserializationError(
				fmt.Errorf("deserializer returned %T, want %s", v, reflect.TypeFor[T]()))
		}
		return typed, nil
	}

	if mt := content.MediaType(); !isJSONMediaType(mt) {
		return out, NewUnsupportedContentTypeError(mt)
	}
	data, err := content.Bytes()
	if err != nil {
		return out, NewDeserializationError(err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return out, nil
	}
	if desc != nil && desc.Unmarshal != nil {
		err = desc.Unmarshal(data, &out)
	} else {
		err = json.Unmarshal(data, &out)
	}
	if err != nil {
		var zero T
		return zero, NewDeserializationError(err)
	}
	return out, nil
}

func isJSONMediaType(mt string) bool {
	return mt == "" || mt == ContentTypeJSON || strings.HasSuffix(mt, "+json")
}

// drainBody reads and closes the body of a failed response.
func drainBody(resp *http.Response) []byte {
	if resp.Body == nil || resp.Body == http.NoBody {
		return nil
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return body
}
