package errors

import (
	"fmt"
)

// ErrorCode represents a specific error type for engine operations.
type ErrorCode string

const (
	// ErrCodeInvalidArgument indicates invalid input parameters (empty input
	// list, missing intent). Surfaced before any backend call is made.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// ErrCodeBackendCall indicates a transport, timeout, or malformed-payload
	// failure from the inference backend.
	ErrCodeBackendCall ErrorCode = "BACKEND_CALL_FAILED"
	// ErrCodeNoCandidates indicates every model in the ensemble roster failed
	// to produce a candidate.
	ErrCodeNoCandidates ErrorCode = "NO_CANDIDATES"
	// ErrCodeNotRunning indicates an operation that requires a running
	// optimizer loop.
	ErrCodeNotRunning ErrorCode = "NOT_RUNNING"
	// ErrCodeAlreadyRunning indicates the optimizer loop was already started.
	ErrCodeAlreadyRunning ErrorCode = "ALREADY_RUNNING"
	// ErrCodeInternal indicates an unexpected internal failure.
	ErrCodeInternal ErrorCode = "INTERNAL"
)

// EngineError represents a structured error for engine operations.
type EngineError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *EngineError) Unwrap() error {
	return e.Cause
}

// GetCode returns the error code.
func (e *EngineError) GetCode() ErrorCode {
	return e.Code
}

// Convenience constructors for common error types.

// InvalidArgument creates an invalid argument error.
func InvalidArgument(msg string) *EngineError {
	return &EngineError{Code: ErrCodeInvalidArgument, Message: msg}
}

// BackendCall creates a backend call error. The cause is retained for
// unwrapping but never surfaced verbatim to API clients.
func BackendCall(msg string, cause error) *EngineError {
	return &EngineError{Code: ErrCodeBackendCall, Message: msg, Cause: cause}
}

// NoCandidates creates a no-candidates error.
func NoCandidates(msg string) *EngineError {
	return &EngineError{Code: ErrCodeNoCandidates, Message: msg}
}

// NotRunning creates a not-running error.
func NotRunning(msg string) *EngineError {
	return &EngineError{Code: ErrCodeNotRunning, Message: msg}
}

// AlreadyRunning creates an already-running error.
func AlreadyRunning(msg string) *EngineError {
	return &EngineError{Code: ErrCodeAlreadyRunning, Message: msg}
}

// Internal creates an internal error.
func Internal(msg string, cause error) *EngineError {
	return &EngineError{Code: ErrCodeInternal, Message: msg, Cause: cause}
}

// Wrap wraps an existing error with a code and message.
func Wrap(cause error, code ErrorCode, msg string) *EngineError {
	return &EngineError{Code: code, Message: msg, Cause: cause}
}

// IsCode checks if an error is of a specific code.
func IsCode(err error, code ErrorCode) bool {
	if engErr, ok := err.(*EngineError); ok {
		return engErr.Code == code
	}
	return false
}

// GetCodeFromError extracts the error code from any error.
// Returns the provided default code if the error is not an EngineError.
func GetCodeFromError(err error, defaultCode ErrorCode) ErrorCode {
	if engErr, ok := err.(*EngineError); ok {
		return engErr.Code
	}
	return defaultCode
}
