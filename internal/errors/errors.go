package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a memebox error code.
type ErrorCode string

const (
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST" // 400
	ErrNotFound       ErrorCode = "NOT_FOUND"       // 404
	ErrFileNotFound   ErrorCode = "FILE_NOT_FOUND"  // 404
	ErrConflict       ErrorCode = "CONFLICT"        // 409
	ErrFileTooLarge   ErrorCode = "FILE_TOO_LARGE"  // 413
	ErrInternal       ErrorCode = "INTERNAL"        // 500
)

// MemeError is a structured error with code, status, and details.
// The store itself never fails; these are raised by the surfaces around it.
type MemeError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *MemeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *MemeError {
	return &MemeError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a missing meme, overlay or notification.
// kind names what was looked up, e.g. "meme" or "overlay".
func NewNotFound(kind, id string) *MemeError {
	return &MemeError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("%s not found: %s", kind, id),
		Details: map[string]any{"kind": kind, "id": id},
	}
}

// NewFileNotFound creates a 404 error for a missing backup file.
func NewFileNotFound(path string) *MemeError {
	return &MemeError{
		Code:    ErrFileNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewConflict creates a 409 error for general conflicts.
func NewConflict(msg string) *MemeError {
	return &MemeError{
		Code:    ErrConflict,
		Status:  409,
		Message: msg,
	}
}

// NewFileTooLarge creates a 413 error when a backup file exceeds the read limit.
func NewFileTooLarge(maxBytes, actualBytes int64) *MemeError {
	return &MemeError{
		Code:    ErrFileTooLarge,
		Status:  413,
		Message: fmt.Sprintf("file exceeds maximum size: %d bytes (max %d)", actualBytes, maxBytes),
		Details: map[string]any{"max_bytes": maxBytes, "actual_bytes": actualBytes},
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
// The cause goes into Details for logging; the message stays generic.
func NewInternal(err error) *MemeError {
	details := map[string]any{}
	if err != nil {
		details["internal_error"] = err.Error()
	}
	return &MemeError{
		Code:    ErrInternal,
		Status:  500,
		Message: "an internal error occurred",
		Details: details,
	}
}

// Is checks if err, or anything it wraps, is a MemeError with the given code.
func Is(err error, code ErrorCode) bool {
	var mErr *MemeError
	if stderrors.As(err, &mErr) {
		return mErr.Code == code
	}
	return false
}

// As returns the MemeError in err's chain, if any.
func As(err error) (*MemeError, bool) {
	var mErr *MemeError
	if stderrors.As(err, &mErr) {
		return mErr, true
	}
	return nil, false
}
