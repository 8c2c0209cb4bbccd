package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrorCode classifies transport failures.
type ErrorCode int

const (
	// ErrCodeTimeout indicates a request or connection timeout.
	ErrCodeTimeout ErrorCode = iota
	// ErrCodeConnection indicates a connection failure (refused, DNS, reset).
	ErrCodeConnection
	// ErrCodeCircuitOpen indicates the circuit breaker rejected the request.
	ErrCodeCircuitOpen
	// ErrCodeRetryableStatus marks an attempt answered with a retryable status.
	ErrCodeRetryableStatus
)

// String returns the error code name.
func (c ErrorCode) String() string {
	switch c {
	case ErrCodeTimeout:
		return "timeout"
	case ErrCodeConnection:
		return "connection"
	case ErrCodeCircuitOpen:
		return "circuit_open"
	case ErrCodeRetryableStatus:
		return "retryable_status"
	default:
		return "unknown"
	}
}

// Error is a classified transport error.
type Error struct {
	// Client is the name of the client that failed.
	Client string
	// StatusCode is set for ErrCodeRetryableStatus.
	StatusCode int
	// Code classifies the error.
	Code ErrorCode
	// Retryable indicates whether another attempt may succeed.
	Retryable bool
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("httpclient: %s: %s", e.Client, e.Code)
	if e.StatusCode > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.StatusCode)
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

// classify wraps a RoundTrip error. Cancellation is passed through so callers
// can match context.Canceled directly.
func classify(client string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return &Error{Client: client, Code: ErrCodeTimeout, Retryable: true, Err: err}
	}
	return &Error{Client: client, Code: ErrCodeConnection, Retryable: true, Err: err}
}

// RetryableStatus reports whether a response status is worth another attempt.
func RetryableStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout, http.StatusTooManyRequests,
		http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// IsTimeout checks if an error is a timeout error.
func IsTimeout(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeTimeout
}

// IsConnection checks if an error is a connection error.
func IsConnection(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeConnection
}

// IsCircuitOpen checks if the circuit breaker rejected the request.
func IsCircuitOpen(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeCircuitOpen
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Retryable
}
