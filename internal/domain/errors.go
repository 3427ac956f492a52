package domain

import (
	"errors"
	"net/http"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
// Implementing this interface enables extensible error handling in the
// handler layer without a switch per concrete error type.
type HTTPError interface {
	error
	StatusCode() int
}

type (
	// NotFoundError indicates a referenced entity is absent.
	NotFoundError struct {
		Message string
	}

	// ValidationError indicates invalid input.
	ValidationError struct {
		Message string
	}

	// UnauthorizedError indicates authentication failure.
	UnauthorizedError struct {
		Message string
	}

	// ForbiddenError indicates an ownership mismatch.
	ForbiddenError struct {
		Message string
	}
)

func (e *NotFoundError) Error() string     { return e.Message }
func (e *ValidationError) Error() string   { return e.Message }
func (e *UnauthorizedError) Error() string { return e.Message }
func (e *ForbiddenError) Error() string    { return e.Message }

func (e *NotFoundError) StatusCode() int     { return http.StatusNotFound }
func (e *ValidationError) StatusCode() int   { return http.StatusBadRequest }
func (e *UnauthorizedError) StatusCode() int { return http.StatusUnauthorized }
func (e *ForbiddenError) StatusCode() int    { return http.StatusForbidden }

// Sentinel errors - use with errors.Is().
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("already exists")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// Tree-store misuse conditions. Recoverable: the tool adapter surfaces
	// them as text so the model can self-correct.
	ErrInvalidParent = errors.New("parent folder does not exist")
	ErrNotAFolder    = errors.New("not a folder")
	ErrNotAFile      = errors.New("not a file")

	// ErrConfigurationMissing aborts a request before any mutation.
	ErrConfigurationMissing = errors.New("required configuration is missing")
)

// ConflictError represents a sibling-name collision with details about the
// existing node, so callers can return the conflicting resource alongside 409.
type ConflictError struct {
	Message      string // Human-readable error message
	ResourceType string // Kind of resource (file, folder, project)
	ResourceID   string // ID of the existing/conflicting resource
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	return e.Message
}

// StatusCode implements the HTTPError interface.
func (e *ConflictError) StatusCode() int {
	return http.StatusConflict
}

// Is allows errors.Is() to match against ErrConflict.
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}
