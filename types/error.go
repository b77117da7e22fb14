package types

import "fmt"

// ErrorCode represents a unified error code across the engine.
type ErrorCode string

// Request-level error codes. These abort a call before any step runs.
const (
	ErrUnknownCommand    ErrorCode = "UNKNOWN_COMMAND"
	ErrInvalidParameters ErrorCode = "INVALID_PARAMETERS"
)

// Aggregate-level error codes. Surfaced only as success=false plus a
// message on the final response, never raised past the engine entry point.
const (
	ErrWorkflowFailed      ErrorCode = "WORKFLOW_FAILED"
	ErrPipelineFailed      ErrorCode = "PIPELINE_FAILED"
	ErrBatchFailed         ErrorCode = "BATCH_FAILED"
	ErrMaxFailuresExceeded ErrorCode = "MAX_FAILURES_EXCEEDED"
	ErrInternalError       ErrorCode = "INTERNAL_ERROR"
)

// Dispatcher error codes
const (
	ErrToolNotFound      ErrorCode = "TOOL_NOT_FOUND"
	ErrOperationNotFound ErrorCode = "OPERATION_NOT_FOUND"
	ErrCircuitOpen       ErrorCode = "CIRCUIT_OPEN"
	ErrRateLimited       ErrorCode = "RATE_LIMITED"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Retryable bool      `json:"retryable"`
	Tool      string    `json:"tool,omitempty"`
	Cause     error     `json:"-"`
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

// Errorf creates a new Error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// WithTool sets the tool name the error originated from.
func (e *Error) WithTool(tool string) *Error {
	e.Tool = tool
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
