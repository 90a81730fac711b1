package types

import "fmt"

// ErrorCode represents a unified error code across the engine.
type ErrorCode string

// Session error codes
const (
	ErrSessionNotFound   ErrorCode = "SESSION_NOT_FOUND"
	ErrSessionTerminated ErrorCode = "SESSION_TERMINATED"
	ErrRoundLimitReached ErrorCode = "ROUND_LIMIT_REACHED"
	ErrNoOpenRound       ErrorCode = "NO_OPEN_ROUND"
	ErrInvalidCase       ErrorCode = "INVALID_CASE"
	ErrInvalidOpinion    ErrorCode = "INVALID_OPINION"
	ErrInvalidDecision   ErrorCode = "INVALID_DECISION"
)

// Panel error codes
const (
	ErrPanelSizeMismatch ErrorCode = "PANEL_SIZE_MISMATCH"
)

// API error codes
const (
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST"
	ErrInternalError  ErrorCode = "INTERNAL_ERROR"
)

// Generation error codes
const (
	ErrGenerationTimeout   ErrorCode = "GENERATION_TIMEOUT"
	ErrGenerationEmpty     ErrorCode = "GENERATION_EMPTY"
	ErrGenerationTruncated ErrorCode = "GENERATION_TRUNCATED"
	ErrGenerationFailed    ErrorCode = "GENERATION_FAILED"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Retryable  bool      `json:"retryable"`
	Cause      error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithHTTPStatus sets the HTTP status code.
func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return ""
}
