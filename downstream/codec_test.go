package downstream

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"
	"testing"
)

type widget struct {
	Name   string            `json:"name"`
	Count  int               `json:"count"`
	Tags   []string          `json:"tags,omitempty"`
	Labels map[string]string `json:"labels,omitempty"`
	Next   *widget           `json:"next,omitempty"`
}

var widgets = []widget{
	{},
	{Name: "a", Count: 1},
	{Name: "unicode ✓ \"quoted\"", Count: -7, Tags: []string{"x", "y"}},
	{Name: "nested", Labels: map[string]string{"b": "2", "a": "1"}, Next: &widget{Name: "child"}},
}

// codecPaths runs the same assertions over the generic encoding/json path and
// the precompiled descriptor path.
var codecPaths = []struct {
	name string
	desc *Descriptor[widget]
}{
	{"generic", nil},
	{"descriptor", JSONDescriptor[widget]()},
}

type trackingBody struct {
	io.Reader
	closed bool
}

func (b *trackingBody) Close() error {
	b.closed = true
	return nil
}

func newResponse(status int, contentType, body string) *http.Response {
	h := make(http.Header)
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	return &http.Response{
		StatusCode:    status,
		Header:        h,
		Body:          &trackingBody{Reader: strings.NewReader(body)},
		ContentLength: int64(len(body)),
	}
}

func TestSerializeInput_StructuredRoundTrip(t *testing.T) {
	for _, path := range codecPaths {
		t.Run(path.name, func(t *testing.T) {
			for _, w := range widgets {
				content, err := SerializeInput(ObjectWith(w, path.desc), &Options{})
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if ct := content.ContentType(); ct != ContentTypeJSON {
					t.Errorf("expected %s, got %s", ContentTypeJSON, ct)
				}
				data, err := content.Bytes()
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				var got widget
				if err := json.Unmarshal(data, &got); err != nil {
					t.Fatalf("expected valid JSON, got %q: %v", data, err)
				}
				if !reflect.DeepEqual(got, w) {
					t.Errorf("expected %+v, got %+v", w, got)
				}
			}
		})
	}
}

func TestDeserializeOutput_JSONRoundTrip(t *testing.T) {
	for _, path := range codecPaths {
		t.Run(path.name, func(t *testing.T) {
			for _, w := range widgets {
				body, _ := json.Marshal(w)
				got, err := DeserializeOutput(newResponse(http.StatusOK, "application/json; charset=utf-8", string(body)), &Options{}, path.desc)
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if !reflect.DeepEqual(got, w) {
					t.Errorf("expected %+v, got %+v", w, got)
				}
			}
		})
	}
}

func TestDeserializeOutput_SharedEdgeCases(t *testing.T) {
	for _, path := range codecPaths {
		t.Run(path.name, func(t *testing.T) {
			t.Run("empty body yields zero value", func(t *testing.T) {
				got, err := DeserializeOutput(newResponse(http.StatusOK, ContentTypeJSON, ""), nil, path.desc)
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if !reflect.DeepEqual(got, widget{}) {
					t.Errorf("expected zero widget, got %+v", got)
				}
			})
			t.Run("missing content type decodes JSON", func(t *testing.T) {
				got, err := DeserializeOutput(newResponse(http.StatusOK, "", `{"name":"x"}`), nil, path.desc)
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if got.Name != "x" {
					t.Errorf("expected name x, got %q", got.Name)
				}
			})
			t.Run("structured suffix decodes JSON", func(t *testing.T) {
				got, err := DeserializeOutput(newResponse(http.StatusOK, "application/problem+json", `{"count":3}`), nil, path.desc)
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if got.Count != 3 {
					t.Errorf("expected count 3, got %d", got.Count)
				}
			})
			t.Run("malformed JSON", func(t *testing.T) {
				_, err := DeserializeOutput(newResponse(http.StatusOK, ContentTypeJSON, `{"name":`), nil, path.desc)
				if !IsDeserialization(err) {
					t.Errorf("expected deserialization error, got %v", err)
				}
				if errors.Unwrap(err) == nil {
					t.Error("expected the decoder error to be wrapped")
				}
			})
			t.Run("type mismatch", func(t *testing.T) {
				_, err := DeserializeOutput(newResponse(http.StatusOK, ContentTypeJSON, `{"count":"many"}`), nil, path.desc)
				if !IsDeserialization(err) {
					t.Errorf("expected deserialization error, got %v", err)
				}
			})
			t.Run("status failure wins over valid body", func(t *testing.T) {
				_, err := DeserializeOutput(newResponse(http.StatusBadRequest, ContentTypeJSON, `{"name":"x"}`), nil, path.desc)
				if !IsHTTPStatus(err) {
					t.Fatalf("expected HTTP status error, got %v", err)
				}
				if StatusCode(err) != http.StatusBadRequest {
					t.Errorf("expected 400, got %d", StatusCode(err))
				}
			})
			t.Run("xml is unsupported", func(t *testing.T) {
				_, err := DeserializeOutput(newResponse(http.StatusOK, "application/xml", `<w/>`), nil, path.desc)
				if !IsUnsupportedContentType(err) {
					t.Errorf("expected unsupported content type, got %v", err)
				}
			})
		})
	}
}

func TestJSONDescriptor_MatchesEncodingJSON(t *testing.T) {
	d := JSONDescriptor[widget]()
	for _, w := range widgets {
		want, err := json.Marshal(w)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got, err := d.Marshal(w)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("expected %s, got %s", want, got)
		}
	}
}

func TestSerializeInput_NilAndEmpty(t *testing.T) {
	opts := &Options{
		ContentType: "text/csv",
		Serializer: func(any) (*Content, error) {
			t.Error("serializer must not run for empty input")
			return nil, nil
		},
	}
	for _, in := range []Input{nil, Empty{}, None, From(nil), From((*widget)(nil)), From([]int(nil))} {
		content, err := SerializeInput(in, opts)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if content != nil {
			t.Errorf("expected no content for %#v, got %#v", in, content)
		}
	}
}

func TestSerializeInput_PrebuiltIdentity(t *testing.T) {
	pre := NewContent(strings.NewReader("raw"), "application/octet-stream")
	opts := &Options{Serializer: func(any) (*Content, error) {
		t.Error("serializer must not run for prebuilt content")
		return nil, nil
	}}

	content, err := SerializeInput(Prebuilt{Content: pre}, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if content != pre {
		t.Error("expected the same content pointer")
	}
	if got := From(pre); got.(Prebuilt).Content != pre {
		t.Error("expected From to wrap *Content as Prebuilt")
	}
}

func TestSerializeInput_CustomSerializer(t *testing.T) {
	custom := NewTextContent("custom", "text/x-custom")
	var seen any
	opts := &Options{Serializer: func(v any) (*Content, error) {
		seen = v
		return custom, nil
	}}

	tests := []struct {
		name string
		in   Input
		want any
	}{
		{"text", Text("hello"), "hello"},
		{"bytes", Bytes{1, 2}, []byte{1, 2}},
		{"structured", Object(widget{Name: "w"}), widget{Name: "w"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content, err := SerializeInput(tt.in, opts)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if content != custom {
				t.Error("expected the serializer's content verbatim")
			}
			if !reflect.DeepEqual(seen, tt.want) {
				t.Errorf("expected serializer to receive %#v, got %#v", tt.want, seen)
			}
		})
	}
}

func TestSerializeInput_CustomSerializerError(t *testing.T) {
	boom := errors.New("boom")
	opts := &Options{Serializer: func(any) (*Content, error) { return nil, boom }}

	_, err := SerializeInput(Text("x"), opts)
	if err != boom {
		t.Errorf("expected serializer error unchanged, got %v", err)
	}
}

func TestSerializeInput_Text(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		want        string
	}{
		{"default", "", "text/plain"},
		{"explicit text/plain", "text/plain", "text/plain"},
		{"custom", "text/csv; charset=utf-8", "text/csv; charset=utf-8"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content, err := SerializeInput(Text("a,b"), &Options{ContentType: tt.contentType})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := content.ContentType(); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
			if text, _ := content.Text(); text != "a,b" {
				t.Errorf("expected body a,b, got %q", text)
			}
		})
	}

	content, err := SerializeInput(Text("nil options"), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if content.ContentType() != ContentTypeText {
		t.Errorf("expected text/plain with nil options, got %q", content.ContentType())
	}
}

func TestSerializeInput_Bytes(t *testing.T) {
	in := Bytes{1, 2, 3}
	content, err := SerializeInput(in, &Options{ContentType: "text/csv"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ := content.Bytes()
	if !bytes.Equal(got, []byte{1, 2, 3}) {
		t.Errorf("expected [1 2 3], got %v", got)
	}
	if ct := content.ContentType(); ct != "" {
		t.Errorf("expected no content type, got %q", ct)
	}
	if content.ContentLength() != 3 {
		t.Errorf("expected length 3, got %d", content.ContentLength())
	}
	if !bytes.Equal(in, []byte{1, 2, 3}) {
		t.Error("expected input to be left untouched")
	}
}

func TestSerializeInput_Stream(t *testing.T) {
	r := strings.NewReader("streamed")
	content, err := SerializeInput(Stream{Reader: r}, &Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ct := content.ContentType(); ct != "" {
		t.Errorf("expected no content type, got %q", ct)
	}
	if content.ContentLength() != -1 {
		t.Errorf("expected unknown length, got %d", content.ContentLength())
	}
	if content.Reader() != io.Reader(r) {
		t.Error("expected the caller's reader to be used as is")
	}
}

func TestSerializeInput_StructuredErrors(t *testing.T) {
	_, err := SerializeInput(Object(make(chan int)), &Options{})
	if !IsSerialization(err) {
		t.Errorf("expected serialization error, got %v", err)
	}

	boom := errors.New("descriptor failed")
	d := &Descriptor[widget]{Marshal: func(widget) ([]byte, error) { return nil, boom }}
	_, err = SerializeInput(ObjectWith(widget{}, d), &Options{})
	if !errors.Is(err, boom) {
		t.Errorf("expected descriptor error to be wrapped, got %v", err)
	}
}

func TestSerializeInput_NilStructured(t *testing.T) {
	opts := &Options{Serializer: func(any) (*Content, error) {
		t.Error("serializer must not run for a nil value")
		return nil, nil
	}}
	inputs := []Input{
		Object[*widget](nil),
		ObjectWith[map[string]int](nil, JSONDescriptor[map[string]int]()),
		Object[any](nil),
	}
	for _, in := range inputs {
		content, err := SerializeInput(in, opts)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if content != nil {
			t.Errorf("expected no content for %#v, got %#v", in, content)
		}
	}

	content, err := SerializeInput(Object(widget{}), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if content == nil || content.ContentType() != ContentTypeJSON {
		t.Errorf("expected JSON content for a zero struct, got %#v", content)
	}
}

func TestFrom(t *testing.T) {
	r := strings.NewReader("x")
	tests := []struct {
		name string
		in   any
		kind Kind
	}{
		{"nil", nil, KindEmpty},
		{"input passthrough", Text("t"), KindText},
		{"string", "s", KindText},
		{"bytes", []byte("b"), KindBytes},
		{"reader", r, KindStream},
		{"struct", widget{}, KindStructured},
		{"map", map[string]int{"a": 1}, KindStructured},
		{"nil content", (*Content)(nil), KindEmpty},
		{"nil struct pointer", (*widget)(nil), KindEmpty},
		{"nil map", map[string]int(nil), KindEmpty},
		{"nil bytes", []byte(nil), KindEmpty},
		{"nil reader", (*strings.Reader)(nil), KindEmpty},
		{"empty bytes", []byte{}, KindBytes},
		{"struct pointer", &widget{}, KindStructured},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := From(tt.in).Kind(); got != tt.kind {
				t.Errorf("expected %s, got %s", tt.kind, got)
			}
		})
	}
}

func TestDeserializeOutput_RawContent(t *testing.T) {
	resp := &http.Response{StatusCode: http.StatusNoContent, Header: http.Header{}, Body: http.NoBody}
	content, err := DeserializeOutput[*Content](resp, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if content == nil {
		t.Fatal("expected non-nil content")
	}
	if len(content.Header()) != 0 {
		t.Errorf("expected empty header set, got %v", content.Header())
	}

	resp = newResponse(http.StatusOK, "image/png", "\x89PNG")
	resp.Header.Set("X-Request-Id", "abc")
	content, err = DeserializeOutput[*Content](resp, &Options{Deserializer: func(*Content) (any, error) {
		t.Error("deserializer must not run for raw content")
		return nil, nil
	}}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if content.ContentType() != "image/png" {
		t.Errorf("expected image/png, got %q", content.ContentType())
	}
	if content.Header().Get("X-Request-Id") != "" {
		t.Error("expected only content headers to be copied")
	}
	if resp.Body.(*trackingBody).closed {
		t.Error("expected raw content body to be left open")
	}
	if data, _ := content.Bytes(); string(data) != "\x89PNG" {
		t.Errorf("expected png bytes, got %q", data)
	}
}

func TestDeserializeOutput_TextUnsupported(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		decode      func(*http.Response) error
	}{
		{"plain text into string", "text/plain; charset=utf-8", "hello", func(r *http.Response) error {
			_, err := DeserializeOutput[string](r, nil, nil)
			return err
		}},
		{"plain text into string with descriptor", "text/plain", "hello", func(r *http.Response) error {
			_, err := DeserializeOutput(r, nil, JSONDescriptor[string]())
			return err
		}},
		{"html into struct", "text/html", "<p/>", func(r *http.Response) error {
			_, err := DeserializeOutput[widget](r, nil, nil)
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.decode(newResponse(http.StatusOK, tt.contentType, tt.body))
			if !IsUnsupportedContentType(err) {
				t.Errorf("expected unsupported content type, got %v", err)
			}
		})
	}
}

func TestDeserializeOutput_TextThroughRawContent(t *testing.T) {
	got, err := DeserializeOutput[*Content](newResponse(http.StatusOK, "text/plain", "hello"), nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text, err := got.Text()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "hello" {
		t.Errorf("expected hello, got %q", text)
	}
}

func TestDeserializeOutput_CustomDeserializer(t *testing.T) {
	opts := &Options{Deserializer: func(c *Content) (any, error) {
		text, err := c.Text()
		return widget{Name: text}, err
	}}

	resp := newResponse(http.StatusOK, "application/xml", "<w/>")
	got, err := DeserializeOutput[widget](resp, opts, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "<w/>" {
		t.Errorf("expected custom result, got %+v", got)
	}
	if !resp.Body.(*trackingBody).closed {
		t.Error("expected body to be closed")
	}

	_, err = DeserializeOutput[int](newResponse(http.StatusOK, ContentTypeJSON, "1"), opts, nil)
	if !IsDeserialization(err) {
		t.Errorf("expected deserialization error for mismatched type, got %v", err)
	}

	boom := errors.New("boom")
	_, err = DeserializeOutput[widget](newResponse(http.StatusOK, ContentTypeJSON, "{}"),
		&Options{Deserializer: func(*Content) (any, error) { return nil, boom }}, nil)
	if err != boom {
		t.Errorf("expected deserializer error unchanged, got %v", err)
	}
}

func TestDeserializeOutput_StatusBeforeDeserializer(t *testing.T) {
	called := false
	opts := &Options{Deserializer: func(*Content) (any, error) {
		called = true
		return nil, nil
	}}

	resp := newResponse(http.StatusServiceUnavailable, ContentTypeJSON, `{"error":"down"}`)
	resp.Header.Set("Retry-After", "5")
	_, err := DeserializeOutput[widget](resp, opts, nil)
	if called {
		t.Error("expected deserializer not to run for a failed status")
	}

	var derr *Error
	if !errors.As(err, &derr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if derr.Code != ErrCodeHTTPStatus || derr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected HTTP 503 status error, got %v", derr)
	}
	if string(derr.Body) != `{"error":"down"}` {
		t.Errorf("expected body to be kept, got %q", derr.Body)
	}
	if derr.Header.Get("Retry-After") != "5" {
		t.Error("expected response headers to be kept")
	}
	if !derr.Retryable {
		t.Error("expected 503 to be retryable")
	}
	if !resp.Body.(*trackingBody).closed {
		t.Error("expected body to be closed")
	}
}
