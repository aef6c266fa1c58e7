package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
// Implementing this interface keeps the handler layer free of type switches
// over concrete error types.
type HTTPError interface {
	error
	StatusCode() int
}

// Sentinel errors - use with errors.Is()
var (
	// ErrNotFound indicates a path with no matching node. This is a normal
	// lookup outcome, not a failure.
	ErrNotFound = errors.New("not found")

	// ErrNotBuilt indicates a lookup against a tree that has never been
	// successfully rebuilt.
	ErrNotBuilt = errors.New("tree not built")

	// ErrValidation indicates a record or request that failed validation.
	ErrValidation = errors.New("validation failed")

	// ErrUnauthorized indicates authentication failure on the API surface.
	ErrUnauthorized = errors.New("unauthorized")
)

// ParseError indicates a field value that was present but could not be
// parsed (malformed timestamp, non-numeric count, unknown flag value).
// Absent values never produce a ParseError.
type ParseError struct {
	Field string
	Value string
	Hint  string // expected shape, e.g. the timestamp layout
}

func (e *ParseError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("parse %s: %q does not match %s", e.Field, e.Value, e.Hint)
	}
	return fmt.Sprintf("parse %s: malformed value %q", e.Field, e.Value)
}

func (e *ParseError) StatusCode() int { return http.StatusUnprocessableEntity }

// StructuralError indicates a record whose path cannot be placed in the
// tree at all (wrong root segment, empty segment). Fatal to the rebuild
// that encounters it.
type StructuralError struct {
	Path   string
	Reason string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("entry path %q: %s", e.Path, e.Reason)
}

func (e *StructuralError) StatusCode() int { return http.StatusUnprocessableEntity }

// DeviceError indicates a failed exchange with the digital paper device.
type DeviceError struct {
	Op     string // "authenticate", "list entries"
	Status int    // HTTP status returned by the device, 0 if none
	Err    error
}

func (e *DeviceError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("device %s: status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("device %s: %v", e.Op, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }

func (e *DeviceError) StatusCode() int { return http.StatusBadGateway }

// NotFoundError carries a message for a missing resource on the API surface.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

func (e *NotFoundError) StatusCode() int { return http.StatusNotFound }

// Is allows errors.Is() to match against ErrNotFound
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ValidationError carries a message for invalid input on the API surface.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) StatusCode() int { return http.StatusBadRequest }

// Is allows errors.Is() to match against ErrValidation
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }
