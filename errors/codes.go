package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Connection/Availability errors (retryable)
const (
	// ErrCodeServiceUnavailable indicates the downstream service is temporarily unavailable.
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	// ErrCodeTimeout indicates the call timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeRateLimited indicates the downstream service throttled the call.
	ErrCodeRateLimited ErrorCode = "RATE_LIMITED"
)

// Validation errors
const (
	// ErrCodeInvalidInput indicates the input is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeMissingField indicates a required field is missing.
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"
	// ErrCodeNotFound indicates the requested resource does not exist.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeUnauthorized indicates the inbound request carries no valid credentials.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	// ErrCodeForbidden indicates the caller may not use the requested API.
	ErrCodeForbidden ErrorCode = "FORBIDDEN"
)

// Downstream call errors
const (
	// ErrCodeHTTPStatus indicates the downstream API answered with a non-2xx status.
	ErrCodeHTTPStatus ErrorCode = "HTTP_STATUS_FAILURE"
	// ErrCodeUnsupportedContentType indicates the response media type has no decoder.
	ErrCodeUnsupportedContentType ErrorCode = "UNSUPPORTED_CONTENT_TYPE"
	// ErrCodeSerialization indicates the request payload could not be encoded.
	ErrCodeSerialization ErrorCode = "SERIALIZATION_FAILED"
	// ErrCodeDeserialization indicates the response payload could not be decoded.
	ErrCodeDeserialization ErrorCode = "DESERIALIZATION_FAILED"
	// ErrCodeAuthorization indicates the authorization header could not be acquired.
	ErrCodeAuthorization ErrorCode = "AUTHORIZATION_FAILED"
)

// Internal errors
const (
	// ErrCodeInternal indicates an internal error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
	// ErrCodeExternalService indicates an error from an external service.
	ErrCodeExternalService ErrorCode = "EXTERNAL_SERVICE_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeServiceUnavailable: true,
	ErrCodeTimeout:            true,
	ErrCodeRateLimited:        true,
	ErrCodeExternalService:    true,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
