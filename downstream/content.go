package downstream

import (
	"bytes"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
)

// Content types produced and recognised by the codec.
const (
	ContentTypeJSON = "application/json"
	ContentTypeText = "text/plain"
)

// Content is an HTTP payload plus its content headers. It is produced by
// SerializeInput for requests and by DeserializeOutput for raw responses.
// A Content body can be consumed once; Bytes buffers it for repeated reads.
type Content struct {
	header http.Header
	body   io.Reader
	data   []byte
	length int64
}

// NewContent wraps a caller-built body. contentType may be empty.
func NewContent(body io.Reader, contentType string) *Content {
	c := &Content{header: make(http.Header), body: body, length: -1}
	if contentType != "" {
		c.header.Set("Content-Type", contentType)
	}
	return c
}

// NewTextContent wraps text with the given content type, text/plain when empty.
func NewTextContent(text, contentType string) *Content {
	if contentType == "" {
		contentType = ContentTypeText
	}
	return newBuffered([]byte(text), contentType)
}

// NewBytesContent wraps raw bytes. No content type is set.
func NewBytesContent(b []byte) *Content {
	return newBuffered(b, "")
}

// NewStreamContent wraps a reader of unknown length. No content type is set.
func NewStreamContent(r io.Reader) *Content {
	return NewContent(r, "")
}

// NewJSONContent wraps an already encoded JSON document.
func NewJSONContent(data []byte) *Content {
	return newBuffered(data, ContentTypeJSON)
}

// EmptyContent returns content with no body and an empty header set.
func EmptyContent() *Content {
	return &Content{header: make(http.Header), length: 0}
}

func newBuffered(data []byte, contentType string) *Content {
	if data == nil {
		data = []byte{}
	}
	c := &Content{header: make(http.Header), data: data, length: int64(len(data))}
	if contentType != "" {
		c.header.Set("Content-Type", contentType)
	}
	c.header.Set("Content-Length", strconv.Itoa(len(data)))
	return c
}

// contentFromResponse captures the body and content headers of resp.
func contentFromResponse(resp *http.Response) *Content {
	if resp.Body == nil || resp.Body == http.NoBody {
		return EmptyContent()
	}
	c := &Content{header: make(http.Header), body: resp.Body, length: resp.ContentLength}
	for k, v := range resp.Header {
		if isContentHeader(k) {
			c.header[k] = append([]string(nil), v...)
		}
	}
	return c
}

func isContentHeader(key string) bool {
	key = http.CanonicalHeaderKey(key)
	return strings.HasPrefix(key, "Content-") || key == "Expires" || key == "Last-Modified" || key == "Allow"
}

// Header returns the content headers. The map is live.
func (c *Content) Header() http.Header {
	return c.header
}

// ContentType returns the Content-Type header value.
func (c *Content) ContentType() string {
	return c.header.Get("Content-Type")
}

// MediaType returns the lower-cased media type without parameters.
func (c *Content) MediaType() string {
	ct := c.ContentType()
	if ct == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(strings.SplitN(ct, ";", 2)[0]))
	}
	return mt
}

// ContentLength returns the body length, or -1 when unknown.
func (c *Content) ContentLength() int64 {
	return c.length
}

// Reader returns the body. Buffered content returns a fresh reader on each call.
func (c *Content) Reader() io.Reader {
	if c.data != nil {
		return bytes.NewReader(c.data)
	}
	if c.body == nil {
		return http.NoBody
	}
	return c.body
}

// Bytes reads the whole body. The underlying stream is read once; later
// calls return the buffered data.
func (c *Content) Bytes() ([]byte, error) {
	if c.data != nil {
		return c.data, nil
	}
	if c.body == nil {
		return []byte{}, nil
	}
	data, err := io.ReadAll(c.body)
	_ = c.Close()
	if err != nil {
		return nil, err
	}
	c.data = data
	c.body = nil
	c.length = int64(len(data))
	return data, nil
}

// Text reads the whole body as a string.
func (c *Content) Text() (string, error) {
	data, err := c.Bytes()
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Close closes the body if it is closable.
func (c *Content) Close() error {
	if rc, ok := c.body.(io.Closer); ok {
		return rc.Close()
	}
	return nil
}

// buffered reports whether the body can be replayed.
func (c *Content) buffered() bool {
	return c.data != nil
}
