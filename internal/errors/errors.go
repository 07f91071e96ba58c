package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a Notefold error code.
type ErrorCode string

const (
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST" // 400
	ErrUnauthorized   ErrorCode = "UNAUTHORIZED"    // 401
	ErrNotFound       ErrorCode = "NOT_FOUND"       // 404
	ErrConflict       ErrorCode = "CONFLICT"        // 409 (fingerprint mismatch on write)
	ErrWorkspaceGone  ErrorCode = "WORKSPACE_GONE"  // 410 (remote repository vanished)
	ErrRateLimited    ErrorCode = "RATE_LIMITED"    // 429
	ErrInternal       ErrorCode = "INTERNAL"        // 500
)

// NotefoldError represents a structured error with code, status, and details.
type NotefoldError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *NotefoldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *NotefoldError {
	return &NotefoldError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewUnauthorized creates a 401 error for rejected credentials.
func NewUnauthorized(msg string) *NotefoldError {
	if msg == "" {
		msg = "remote rejected credentials"
	}
	return &NotefoldError{
		Code:    ErrUnauthorized,
		Status:  401,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for when a note cannot be found.
func NewNotFound(identifier string) *NotefoldError {
	return &NotefoldError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("note not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewWorkspaceNotFound creates a 404 error for an unknown workspace.
func NewWorkspaceNotFound(name string) *NotefoldError {
	return &NotefoldError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("workspace not found: %s", name),
		Details: map[string]any{"workspace": name},
	}
}

// NewConflict creates a 409 error for fingerprint mismatches and other
// concurrent-write collisions.
func NewConflict(msg string) *NotefoldError {
	return &NotefoldError{
		Code:    ErrConflict,
		Status:  409,
		Message: msg,
	}
}

// NewWorkspaceGone creates a 410 error for a workspace whose remote
// repository no longer exists.
func NewWorkspaceGone(workspace string) *NotefoldError {
	return &NotefoldError{
		Code:    ErrWorkspaceGone,
		Status:  410,
		Message: fmt.Sprintf("remote repository for workspace %q no longer exists", workspace),
		Details: map[string]any{"workspace": workspace},
	}
}

// NewRateLimited creates a 429 error for remote throttling.
func NewRateLimited(msg string) *NotefoldError {
	if msg == "" {
		msg = "remote rate limit exceeded"
	}
	return &NotefoldError{
		Code:    ErrRateLimited,
		Status:  429,
		Message: msg,
	}
}

// NewInternal creates a 500 error for unexpected internal errors. The
// message stays generic; the underlying error is kept in Details for logs.
func NewInternal(err error) *NotefoldError {
	details := map[string]any{}
	if err != nil {
		details["internal_error"] = err.Error()
	}
	return &NotefoldError{
		Code:    ErrInternal,
		Status:  500,
		Message: "an internal error occurred",
		Details: details,
	}
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code ErrorCode) bool {
	var nErr *NotefoldError
	if stderrors.As(err, &nErr) {
		return nErr.Code == code
	}
	return false
}

// CodeOf extracts the error code from err, or ErrInternal when the chain
// holds no NotefoldError.
func CodeOf(err error) ErrorCode {
	var nErr *NotefoldError
	if stderrors.As(err, &nErr) {
		return nErr.Code
	}
	return ErrInternal
}
