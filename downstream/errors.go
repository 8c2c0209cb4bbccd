package downstream

import (
	"errors"
	"fmt"
	"net/http"

	apperrors "github.com/kbukum/apikit/errors"
)

// ErrorCode classifies downstream call failures raised by this package.
// Provider errors and custom codec errors are never wrapped into an Error.
type ErrorCode int

const (
	// ErrCodeHTTPStatus indicates a non-2xx response.
	ErrCodeHTTPStatus ErrorCode = iota
	// ErrCodeUnsupportedContentType indicates a response media type that cannot be decoded.
	ErrCodeUnsupportedContentType
	// ErrCodeSerialization indicates the built-in input encoding failed.
	ErrCodeSerialization
	// ErrCodeDeserialization indicates the built-in output decoding failed.
	ErrCodeDeserialization
)

// String returns the error code name.
func (c ErrorCode) String() string {
	switch c {
	case ErrCodeHTTPStatus:
		return "http_status"
	case ErrCodeUnsupportedContentType:
		return "unsupported_content_type"
	case ErrCodeSerialization:
		return "serialization"
	case ErrCodeDeserialization:
		return "deserialization"
	default:
		return "unknown"
	}
}

// ErrUnknownService is returned when no options are registered under a name.
var ErrUnknownService = errors.New("downstream: unknown service")

// Error is a structured downstream error.
type Error struct {
	// Code classifies the error.
	Code ErrorCode
	// Message describes the error.
	Message string
	// StatusCode is the HTTP status of the response, 0 when no response was inspected.
	StatusCode int
	// Header holds the response headers of an HTTP status failure.
	Header http.Header
	// Body is the response body of an HTTP status failure (may be nil).
	Body []byte
	// MediaType is the offending media type of an unsupported content type failure.
	MediaType string
	// Retryable is set for 408, 429 and 5xx status failures. It is a hint only.
	Retryable bool
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("downstream: %s: %s", e.Code, e.Message)
	if e.StatusCode > 0 {
		msg = fmt.Sprintf("downstream: %s (HTTP %d): %s", e.Code, e.StatusCode, e.Message)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// AppError converts e into the shared application error, for surfacing on
// inbound HTTP handlers.
func (e *Error) AppError(service string) *apperrors.AppError {
	switch e.Code {
	case ErrCodeHTTPStatus:
		return apperrors.DownstreamStatus(service, e.StatusCode).WithCause(e)
	case ErrCodeUnsupportedContentType:
		return apperrors.UnsupportedContentType(e.MediaType).WithCause(e)
	case ErrCodeSerialization:
		return apperrors.Serialization(e)
	default:
		return apperrors.Deserialization(e)
	}
}

// NewHTTPStatusError creates an HTTP status failure.
func NewHTTPStatusError(statusCode int, header http.Header, body []byte) *Error {
	return &Error{
		Code:       ErrCodeHTTPStatus,
		Message:    http.StatusText(statusCode),
		StatusCode: statusCode,
		Header:     header,
		Body:       body,
		Retryable:  retryableStatus(statusCode),
	}
}

// NewUnsupportedContentTypeError creates an unsupported content type failure.
func NewUnsupportedContentTypeError(mediaType string) *Error {
	return &Error{
		Code:      ErrCodeUnsupportedContentType,
		Message:   fmt.Sprintf("cannot decode %q", mediaType),
		MediaType: mediaType,
	}
}

// NewSerializationError wraps a failure of the built-in input encoding.
func NewSerializationError(err error) *Error {
	return &Error{Code: ErrCodeSerialization, Message: "encode request payload", Err: err}
}

// NewDeserializationError wraps a failure of the built-in output decoding.
func NewDeserializationError(err error) *Error {
	return &Error{Code: ErrCodeDeserialization, Message: "decode response payload", Err: err}
}

func retryableStatus(statusCode int) bool {
	return statusCode == http.StatusRequestTimeout ||
		statusCode == http.StatusTooManyRequests ||
		statusCode >= 500
}

// IsHTTPStatus checks if an error is an HTTP status failure.
func IsHTTPStatus(err error) bool {
	return hasCode(err, ErrCodeHTTPStatus)
}

// IsUnsupportedContentType checks if an error is an unsupported content type failure.
func IsUnsupportedContentType(err error) bool {
	return hasCode(err, ErrCodeUnsupportedContentType)
}

// IsSerialization checks if an error is a built-in serialization failure.
func IsSerialization(err error) bool {
	return hasCode(err, ErrCodeSerialization)
}

// IsDeserialization checks if an error is a built-in deserialization failure.
func IsDeserialization(err error) bool {
	return hasCode(err, ErrCodeDeserialization)
}

// IsRetryable checks if an error carries the retryable hint.
func IsRetryable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Retryable
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode
	}
	return 0
}

func hasCode(err error, code ErrorCode) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}
