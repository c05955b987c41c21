package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code for stable testing
type ErrorCode string

// Error codes for different error categories
const (
	// General errors
	ErrUnknown      ErrorCode = "UNKNOWN"
	ErrInternal     ErrorCode = "INTERNAL"
	ErrInvalidInput ErrorCode = "INVALID_INPUT"

	// Planning errors, raised before anything touches the output tree
	ErrNotFound       ErrorCode = "NOT_FOUND"
	ErrInvalidPattern ErrorCode = "INVALID_PATTERN"
	ErrPathEscape     ErrorCode = "PATH_ESCAPE"
	ErrConflict       ErrorCode = "CONFLICT"

	// Filesystem errors
	ErrNotADirectory ErrorCode = "NOT_A_DIRECTORY"
	ErrIOFailure     ErrorCode = "IO_FAILURE"

	// Configuration errors
	ErrConfigLoad  ErrorCode = "CONFIG_LOAD"
	ErrConfigValid ErrorCode = "CONFIG_INVALID"
)

// StagingError represents a structured error with code and details
type StagingError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Wrapped error
}

// Error implements the error interface
func (e *StagingError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *StagingError) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is interface
func (e *StagingError) Is(target error) bool {
	var targetErr *StagingError
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

// New creates a new StagingError with the given code and message
func New(code ErrorCode, message string) *StagingError {
	return &StagingError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Newf creates a new StagingError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *StagingError {
	return &StagingError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error with a StagingError
func Wrap(err error, code ErrorCode, message string) *StagingError {
	if err == nil {
		return nil
	}
	return &StagingError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *StagingError {
	if err == nil {
		return nil
	}
	return &StagingError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// WithDetail adds a detail to the error
func (e *StagingError) WithDetail(key string, value interface{}) *StagingError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// IsErrorCode checks if an error has a specific error code
func IsErrorCode(err error, code ErrorCode) bool {
	var stagingErr *StagingError
	if errors.As(err, &stagingErr) {
		return stagingErr.Code == code
	}
	return false
}

// GetErrorCode returns the error code from an error, or ErrUnknown if not a StagingError
func GetErrorCode(err error) ErrorCode {
	var stagingErr *StagingError
	if errors.As(err, &stagingErr) {
		return stagingErr.Code
	}
	return ErrUnknown
}

// GetErrorDetails returns the details from an error, or nil if not a StagingError
func GetErrorDetails(err error) map[string]interface{} {
	var stagingErr *StagingError
	if errors.As(err, &stagingErr) {
		return stagingErr.Details
	}
	return nil
}
