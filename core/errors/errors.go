// Package errors provides standardized error types and helpers for the Maktaba codebase.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common cases
var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput indicates invalid input or validation failure
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnauthorized indicates a rejected authentication gate
	ErrUnauthorized = errors.New("unauthorized")
	// ErrBadQuery indicates a syntactically invalid full-text query
	ErrBadQuery = errors.New("invalid full-text query")
	// ErrInternal indicates an internal system error
	ErrInternal = errors.New("internal error")
)

// NotFoundError represents a resource not found error with context
type NotFoundError struct {
	Resource string // Type of resource (e.g., "chunk", "source", "toc entry")
	ID       string // Identifier of the resource
	Err      error  // Underlying error, if any
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e *NotFoundError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrNotFound
}

// ValidationError represents a request parameter validation error
type ValidationError struct {
	Param   string // Parameter name that failed validation
	Message string // Human-readable error message
	Err     error  // Underlying error, if any
}

func (e *ValidationError) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("%s: %s", e.Param, e.Message)
	}
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidInput
}

// QueryError represents a full-text query the search engine rejected as
// syntactically invalid. Detail carries the engine's original message.
type QueryError struct {
	Detail string
	Err    error
}

func (e *QueryError) Error() string {
	return "invalid full-text query in q: use plain tokens or valid FTS5 syntax"
}

func (e *QueryError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrBadQuery
}

// Helper functions for creating common errors

// NewNotFound creates a NotFoundError
func NewNotFound(resource, id string) *NotFoundError {
	return &NotFoundError{
		Resource: resource,
		ID:       id,
	}
}

// NewValidation creates a ValidationError
func NewValidation(param, message string) *ValidationError {
	return &ValidationError{
		Param:   param,
		Message: message,
	}
}

// NewQuery creates a QueryError wrapping the engine error
func NewQuery(err error) *QueryError {
	return &QueryError{
		Detail: err.Error(),
		Err:    err,
	}
}

// ftsSyntaxPatterns are the store error fragments that identify a
// malformed full-text query, as opposed to a genuine engine failure.
var ftsSyntaxPatterns = []string{
	"fts5: syntax error",
	"malformed MATCH expression",
	"no such column",
}

// IsQuerySyntax reports whether err is the search engine rejecting the
// query string itself. Such errors are remapped to a 400-class response
// instead of leaking as a 500.
func IsQuerySyntax(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, p := range ftsSyntaxPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// Wrap adds context to an error. If err is nil, returns nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf adds formatted context to an error. If err is nil, returns nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// Is wraps errors.Is for convenience
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
