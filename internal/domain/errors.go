package domain

import (
	"errors"
	"net/http"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
type HTTPError interface {
	error
	StatusCode() int
}

// Sentinel errors - use with errors.Is()
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("already exists")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// ErrStaleResponse marks a completion that arrived for a post that is no
	// longer active. It is logged, never shown.
	ErrStaleResponse = errors.New("response for inactive post")

	// ErrBusy is returned when an operation overlaps one already in flight.
	ErrBusy = errors.New("operation already in progress")

	// ErrNoActivePost is returned by session commands issued with no post open.
	ErrNoActivePost = errors.New("no active post")
)

// Domain error types implementing HTTPError
type (
	// NotFoundError indicates a resource was not found
	NotFoundError struct {
		Message string
	}

	// ValidationError indicates invalid input, rejected before any remote call
	ValidationError struct {
		Message string
	}

	// UnauthorizedError indicates authentication failure
	UnauthorizedError struct {
		Message string
	}
)

func (e *NotFoundError) Error() string     { return e.Message }
func (e *ValidationError) Error() string   { return e.Message }
func (e *UnauthorizedError) Error() string { return e.Message }

func (e *NotFoundError) StatusCode() int     { return http.StatusNotFound }
func (e *ValidationError) StatusCode() int   { return http.StatusBadRequest }
func (e *UnauthorizedError) StatusCode() int { return http.StatusUnauthorized }

func (e *NotFoundError) Is(target error) bool     { return target == ErrNotFound }
func (e *ValidationError) Is(target error) bool   { return target == ErrValidation }
func (e *UnauthorizedError) Is(target error) bool { return target == ErrUnauthorized }

// PersistenceError reports a failed Post Store call. The edits it tried to
// save are still unsaved.
type PersistenceError struct {
	Op     string // create, update
	PostID string
	Err    error
}

func (e *PersistenceError) Error() string {
	if e.PostID == "" {
		return "save failed (" + e.Op + "): " + e.Err.Error()
	}
	return "save failed (" + e.Op + " " + e.PostID + "): " + e.Err.Error()
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// PublishError reports a publish that did not complete. Saved reports whether
// the save that precedes publishing succeeded.
type PublishError struct {
	PostID string
	Saved  bool
	Err    error
}

func (e *PublishError) Error() string {
	if !e.Saved {
		return "publish aborted, post could not be saved: " + e.Err.Error()
	}
	return "publish failed: " + e.Err.Error()
}

func (e *PublishError) Unwrap() error { return e.Err }

// GenerationError reports a failed Text Generation Service call. Detail is a
// human-readable message suitable for display.
type GenerationError struct {
	Detail string
	Err    error
}

func (e *GenerationError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	if e.Err != nil {
		return "AI generation failed: " + e.Err.Error()
	}
	return "AI generation failed"
}

func (e *GenerationError) Unwrap() error { return e.Err }

func (e *GenerationError) StatusCode() int { return http.StatusBadGateway }
