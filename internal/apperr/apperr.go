// Package apperr defines the error taxonomy shared by services and the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gorm.io/gorm"
)

type Kind int

const (
	Internal Kind = iota
	Unauthenticated
	Forbidden
	NotFound
	BadRequest
	Validation
	Conflict
	TooManyRequests
)

func (k Kind) String() string {
	switch k {
	case Unauthenticated:
		return "unauthenticated"
	case Forbidden:
		return "forbidden"
	case NotFound:
		return "not_found"
	case BadRequest:
		return "bad_request"
	case Validation:
		return "validation_failed"
	case Conflict:
		return "conflict"
	case TooManyRequests:
		return "too_many_requests"
	default:
		return "internal"
	}
}

// Status returns the HTTP status code used in the response envelope.
func (k Kind) Status() int {
	switch k {
	case Unauthenticated:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case BadRequest:
		return http.StatusBadRequest
	case Validation:
		return http.StatusUnprocessableEntity
	case Conflict:
		return http.StatusConflict
	case TooManyRequests:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified failure. Message is safe to show to clients.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func NewUnauthenticated(message string) *Error { return New(Unauthenticated, message) }
func NewForbidden(message string) *Error       { return New(Forbidden, message) }
func NewNotFound(message string) *Error        { return New(NotFound, message) }
func NewBadRequest(message string) *Error      { return New(BadRequest, message) }
func NewConflict(message string) *Error        { return New(Conflict, message) }

// NewValidation builds a 422 error with per-field messages.
func NewValidation(message string, fields map[string]string) *Error {
	return &Error{Kind: Validation, Message: message, Fields: fields}
}

// Wrap marks err as an unexpected failure. The cause is kept for logging only.
func Wrap(err error, message string) *Error {
	return &Error{Kind: Internal, Message: message, Err: err}
}

// KindOf classifies any error, including storage errors that were not wrapped.
func KindOf(err error) Kind {
	return From(err).Kind
}

// Is reports whether err classifies as kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// From converts err into an *Error. Known storage failures map to NotFound or
// Conflict, anything else to Internal with a generic message.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &Error{Kind: NotFound, Message: "Record not found", Err: err}
	}
	if IsDuplicateKey(err) {
		return &Error{Kind: Conflict, Message: "A record with this value already exists", Err: err}
	}
	if IsInvalidID(err) {
		return &Error{Kind: NotFound, Message: "Record not found", Err: err}
	}
	return &Error{Kind: Internal, Message: "Internal server error", Err: err}
}

// IsDuplicateKey detects unique-constraint violations from either driver.
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "SQLSTATE 23505")
}

// IsInvalidID detects postgres rejecting a malformed uuid literal.
func IsInvalidID(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLSTATE 22P02") ||
		strings.Contains(msg, "invalid input syntax for type uuid")
}
