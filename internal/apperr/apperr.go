// Package apperr defines the typed errors surfaced to API callers. Each error
// carries a stable code and the HTTP status that handlers respond with.
package apperr

import (
	"errors"
)

// Code identifies the kind of an application error.
type Code string

const (
	CodeUnauthorized          Code = "UNAUTHORIZED"
	CodeForbidden             Code = "FORBIDDEN"
	CodeNotFound              Code = "NOT_FOUND"
	CodeValidation            Code = "VALIDATION_ERROR"
	CodeBusinessRuleViolation Code = "BUSINESS_RULE_VIOLATION"
	CodeConflict              Code = "CONFLICT"
)

// StatusCode returns the HTTP status conventionally paired with the code.
func (c Code) StatusCode() int {
	switch c {
	case CodeUnauthorized:
		return 401
	case CodeForbidden:
		return 403
	case CodeNotFound:
		return 404
	case CodeValidation:
		return 400
	case CodeBusinessRuleViolation:
		return 422
	case CodeConflict:
		return 409
	}
	return 500
}

// Name returns the error type name associated with the code.
func (c Code) Name() string {
	switch c {
	case CodeUnauthorized:
		return "UnauthorizedError"
	case CodeForbidden:
		return "ForbiddenError"
	case CodeNotFound:
		return "NotFoundError"
	case CodeValidation:
		return "ValidationError"
	case CodeBusinessRuleViolation:
		return "BusinessRuleError"
	case CodeConflict:
		return "ConflictError"
	}
	return "Error"
}

// Details carries structured context for an error, e.g. the account and
// permission involved in a denial.
type Details map[string]any

// Error is an application error with a code, HTTP status and optional details.
type Error struct {
	Code       Code
	StatusCode int
	Message    string
	Details    Details
}

func (e *Error) Error() string {
	return e.Message
}

// Name returns the error type name, e.g. "ForbiddenError".
func (e *Error) Name() string {
	return e.Code.Name()
}

// Is reports whether target is an *Error with the same code, so that
// errors.Is(err, apperr.ErrForbidden) matches any forbidden error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is comparisons.
var (
	ErrUnauthorized = &Error{Code: CodeUnauthorized, StatusCode: 401, Message: "unauthorized"}
	ErrForbidden    = &Error{Code: CodeForbidden, StatusCode: 403, Message: "forbidden"}
	ErrNotFound     = &Error{Code: CodeNotFound, StatusCode: 404, Message: "not found"}
	ErrValidation   = &Error{Code: CodeValidation, StatusCode: 400, Message: "validation failed"}
	ErrBusinessRule = &Error{Code: CodeBusinessRuleViolation, StatusCode: 422, Message: "business rule violation"}
	ErrConflict     = &Error{Code: CodeConflict, StatusCode: 409, Message: "conflict"}
)

// New creates an Error of the given code. The status code is derived from it.
func New(code Code, message string, details Details) *Error {
	return &Error{
		Code:       code,
		StatusCode: code.StatusCode(),
		Message:    message,
		Details:    details,
	}
}

// Unauthorized returns an UnauthorizedError (401).
func Unauthorized(message string, details Details) *Error {
	return New(CodeUnauthorized, message, details)
}

// Forbidden returns a ForbiddenError (403).
func Forbidden(message string, details Details) *Error {
	return New(CodeForbidden, message, details)
}

// NotFound returns a NotFoundError (404).
func NotFound(message string, details Details) *Error {
	return New(CodeNotFound, message, details)
}

// Validation returns a ValidationError (400).
func Validation(message string, details Details) *Error {
	return New(CodeValidation, message, details)
}

// BusinessRule returns a BusinessRuleError (422).
func BusinessRule(message string, details Details) *Error {
	return New(CodeBusinessRuleViolation, message, details)
}

// Conflict returns a ConflictError (409).
func Conflict(message string, details Details) *Error {
	return New(CodeConflict, message, details)
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
