// Package errors provides the structured error type shared by apikit packages.
// Errors carry a machine-readable code, an HTTP status suitable for surfacing
// to inbound callers, and a retryable hint in the spirit of RFC 7807.
package errors

import (
	"fmt"
	"net/http"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// HTTPStatus is the recommended HTTP status code for this error.
	HTTPStatus int `json:"-"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Retryable:  IsRetryableCode(code),
	}
}

// Validation creates a new AppError for validation errors.
func Validation(message string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidInput, Message: message,
		HTTPStatus: http.StatusBadRequest, Retryable: false,
	}
}

// MissingField creates a new AppError for a missing required field.
func MissingField(field string) *AppError {
	return &AppError{
		Code: ErrCodeMissingField, Message: fmt.Sprintf("Missing required field: %s", field),
		HTTPStatus: http.StatusBadRequest, Retryable: false,
		Details: map[string]any{"field": field},
	}
}

// NotFound creates an AppError for a missing resource.
func NotFound(resource string) *AppError {
	return &AppError{
		Code: ErrCodeNotFound, Message: fmt.Sprintf("%s was not found.", resource),
		HTTPStatus: http.StatusNotFound, Retryable: false,
		Details: map[string]any{"resource": resource},
	}
}

// Unauthorized creates an AppError for an inbound request without valid credentials.
func Unauthorized(message string) *AppError {
	return &AppError{Code: ErrCodeUnauthorized, Message: message, HTTPStatus: http.StatusUnauthorized}
}

// Forbidden creates an AppError for an authenticated caller lacking permission.
func Forbidden(message string) *AppError {
	return &AppError{Code: ErrCodeForbidden, Message: message, HTTPStatus: http.StatusForbidden}
}

// Internal creates a new AppError for an internal error.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "An unexpected error occurred. Please try again or contact support.",
		HTTPStatus: http.StatusInternalServerError, Retryable: false, Cause: cause,
	}
}

// --- Downstream call constructors ---

// DownstreamStatus creates an AppError describing a non-2xx answer from a
// downstream API. The downstream status is kept in Details; the recommended
// inbound status is 502 except for throttling and unavailability which are
// passed through.
func DownstreamStatus(service string, statusCode int) *AppError {
	code := ErrCodeHTTPStatus
	status := http.StatusBadGateway
	retryable := false
	switch {
	case statusCode == http.StatusTooManyRequests:
		code, status, retryable = ErrCodeRateLimited, http.StatusTooManyRequests, true
	case statusCode == http.StatusServiceUnavailable:
		code, status, retryable = ErrCodeServiceUnavailable, http.StatusServiceUnavailable, true
	case statusCode == http.StatusRequestTimeout || statusCode == http.StatusGatewayTimeout:
		code, status, retryable = ErrCodeTimeout, http.StatusGatewayTimeout, true
	case statusCode >= 500:
		retryable = true
	}
	return &AppError{
		Code: code, Message: fmt.Sprintf("The %s API answered with HTTP %d.", service, statusCode),
		HTTPStatus: status, Retryable: retryable,
		Details: map[string]any{"service": service, "status_code": statusCode},
	}
}

// UnsupportedContentType creates an AppError for a response media type that
// cannot be decoded.
func UnsupportedContentType(mediaType string) *AppError {
	return &AppError{
		Code: ErrCodeUnsupportedContentType, Message: fmt.Sprintf("Content type %q is not supported.", mediaType),
		HTTPStatus: http.StatusBadGateway, Retryable: false,
		Details: map[string]any{"media_type": mediaType},
	}
}

// Serialization creates an AppError for a request payload that could not be encoded.
func Serialization(cause error) *AppError {
	return &AppError{
		Code: ErrCodeSerialization, Message: "The request payload could not be encoded.",
		HTTPStatus: http.StatusInternalServerError, Retryable: false, Cause: cause,
	}
}

// Deserialization creates an AppError for a response payload that could not be decoded.
func Deserialization(cause error) *AppError {
	return &AppError{
		Code: ErrCodeDeserialization, Message: "The downstream response could not be decoded.",
		HTTPStatus: http.StatusBadGateway, Retryable: false, Cause: cause,
	}
}

// Authorization creates an AppError for a failed token acquisition.
func Authorization(cause error) *AppError {
	return &AppError{
		Code: ErrCodeAuthorization, Message: "An authorization header could not be acquired.",
		HTTPStatus: http.StatusUnauthorized, Retryable: false, Cause: cause,
	}
}

// ExternalServiceError creates a new AppError for an error from an external service.
func ExternalServiceError(service string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeExternalService, Message: fmt.Sprintf("The %s service encountered an error. Please try again.", service),
		HTTPStatus: http.StatusBadGateway, Retryable: true,
		Details: map[string]any{"service": service}, Cause: cause,
	}
}
