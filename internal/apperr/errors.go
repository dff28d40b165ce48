// Package apperr provides structured errors with HTTP status code mapping.
//
// Store and hub code return *Error values so that the HTTP layer can turn
// them into a status code and a JSON body without string matching.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Type is the category of an error.
type Type string

const (
	// TypeValidation indicates invalid input (HTTP 400).
	TypeValidation Type = "validation"
	// TypeNotFound indicates the referenced message does not exist (HTTP 404).
	TypeNotFound Type = "not_found"
	// TypeDelivery indicates a push to one subscriber failed. It never
	// leaves the hub.
	TypeDelivery Type = "delivery"
	// TypeInternal indicates a server-side failure (HTTP 500).
	TypeInternal Type = "internal"
)

// Error is a structured error with a type, a client-facing message and
// optional context for logging.
type Error struct {
	Type    Type
	Message string
	Cause   error
	Context map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// HTTPStatus returns the HTTP status code for this error type.
func (e *Error) HTTPStatus() int {
	switch e.Type {
	case TypeValidation:
		return http.StatusBadRequest
	case TypeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// With adds a context key/value and returns the error for chaining.
func (e *Error) With(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// Validation creates a validation error.
func Validation(message string) *Error {
	return &Error{Type: TypeValidation, Message: message}
}

// NotFound creates a not-found error.
func NotFound(message string) *Error {
	return &Error{Type: TypeNotFound, Message: message}
}

// Delivery wraps a failed push to a subscriber.
func Delivery(cause error) *Error {
	return &Error{Type: TypeDelivery, Message: "delivery failed", Cause: cause}
}

// Internal wraps an unexpected failure.
func Internal(message string, cause error) *Error {
	return &Error{Type: TypeInternal, Message: message, Cause: cause}
}

// IsType reports whether err, or any error it wraps, is an *Error of type t.
func IsType(err error, t Type) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Type == t
	}
	return false
}

// StatusOf returns the HTTP status for err. Errors that are not *Error map
// to 500.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.HTTPStatus()
	}
	return http.StatusInternalServerError
}

// MessageOf returns the client-facing message for err. Errors that are not
// *Error get a generic message so internals are not leaked.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Type != TypeInternal {
		return e.Message
	}
	return "Internal server error"
}
