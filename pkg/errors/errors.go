package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

// Code is the stable, client-visible name of a failure class.
type Code string

const (
	CodeValidation Code = "VALIDATION_ERROR"
	CodeNotFound   Code = "NOT_FOUND"
	CodeConflict   Code = "CONFLICT"
	CodeStore      Code = "STORE_FAILURE"
	// CodeUniqueConstraint never leaves the service layer on purpose; the
	// service rewrites it into CodeConflict with the offending field.
	CodeUniqueConstraint Code = "UNIQUE_CONSTRAINT"

	CodeMethodNotAllowed Code = "METHOD_NOT_ALLOWED"
	CodeRateLimit        Code = "RATE_LIMIT_EXCEEDED"
	CodeDependency       Code = "DEPENDENCY_ERROR"
	CodeInternal         Code = "INTERNAL_ERROR"
)

// Metadata describes how a Code is rendered at the wire boundary.
type Metadata struct {
	HTTPStatus    int
	PublicMessage string
	Retryable     bool
	// DetailsAllowed lets the error's details reach the client.
	DetailsAllowed bool
	// MessageAllowed lets the error's own message replace PublicMessage.
	MessageAllowed bool
}

type exposure uint8

const (
	showMessage exposure = 1 << iota
	showDetails
	retryable
)

func describe(status int, public string, flags exposure) Metadata {
	return Metadata{
		HTTPStatus:     status,
		PublicMessage:  public,
		Retryable:      flags&retryable != 0,
		DetailsAllowed: flags&showDetails != 0,
		MessageAllowed: flags&showMessage != 0,
	}
}

var catalog = map[Code]Metadata{
	CodeValidation:       describe(http.StatusBadRequest, "validation failed", showMessage|showDetails),
	CodeNotFound:         describe(http.StatusNotFound, "resource not found", showMessage),
	CodeConflict:         describe(http.StatusConflict, "conflict detected", showMessage|showDetails),
	CodeUniqueConstraint: describe(http.StatusConflict, "a resource with the provided identifier(s) already exists", 0),
	CodeStore:            describe(http.StatusInternalServerError, "an unexpected error occurred on the server", retryable),
	CodeMethodNotAllowed: describe(http.StatusMethodNotAllowed, "method not allowed", showMessage),
	CodeRateLimit:        describe(http.StatusTooManyRequests, "rate limit exceeded", showMessage),
	CodeDependency:       describe(http.StatusServiceUnavailable, "dependency unavailable", showDetails|retryable),
	CodeInternal:         describe(http.StatusInternalServerError, "internal server error", retryable),
}

// MetadataFor falls back to CodeInternal for unknown codes.
func MetadataFor(code Code) Metadata {
	if meta, ok := catalog[code]; ok {
		return meta
	}
	return catalog[CodeInternal]
}

// Error is a coded failure with an optional cause and client details.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

// Newf is New with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap keeps err as the cause; a nil err behaves like New.
func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return ""
	case e.cause == nil:
		return string(e.code) + ": " + e.message
	default:
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Is matches another *Error with the same code, so a bare New(code, "")
// can serve as a target for errors.Is.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	return ok && e != nil && other != nil && e.code == other.code
}

// As returns the outermost *Error in err's chain, or nil.
func As(err error) *Error {
	var typed *Error
	if err != nil && stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// CodeOf returns the code of the outermost typed error in err's chain, or
// CodeInternal for untyped errors.
func CodeOf(err error) Code {
	return As(err).Code()
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}
