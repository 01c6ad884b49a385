package domain

import (
	"errors"
	"fmt"
)

// Code classifies an error for transport mapping.
type Code string

const (
	CodeUnauthenticated Code = "unauthenticated"
	CodeForbidden       Code = "forbidden"
	CodeNotFound        Code = "not_found"
	CodeConflict        Code = "conflict"
	CodeBadRequest      Code = "bad_request"
	CodeUnavailable     Code = "unavailable"
	CodeInternal        Code = "internal"
)

// Error is a coded domain error.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches a wrapped error against the bare sentinel carrying the same
// code and message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Err == nil && e.Code == t.Code && e.Message == t.Message
}

// NewError creates a coded error.
func NewError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError attaches a code and message to an underlying error.
func WrapError(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf returns the code of the outermost coded error in err's chain.
// Errors without a code are internal.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// Identity errors
var (
	ErrUnauthenticated = NewError(CodeUnauthenticated, "authentication required")
	ErrForbidden       = NewError(CodeForbidden, "insufficient permissions")
	ErrInvalidToken    = NewError(CodeUnauthenticated, "invalid or expired token")
)

// Lookup errors
var (
	ErrUserNotFound       = NewError(CodeNotFound, "user not found")
	ErrHouseholdNotFound  = NewError(CodeNotFound, "household not found")
	ErrMemberNotFound     = NewError(CodeNotFound, "member not found")
	ErrPlanNotFound       = NewError(CodeNotFound, "plan not found")
	ErrCardNotFound       = NewError(CodeNotFound, "card not found")
	ErrNoCardForHousehold = NewError(CodeNotFound, "no active card found for this household")
)

// Constraint errors
var (
	ErrHouseholdAlreadyCarded = NewError(CodeConflict, "household already has a card")
	ErrUserAlreadyExists      = NewError(CodeConflict, "user already exists")
	ErrHouseholdInUse         = NewError(CodeConflict, "household still has members or a card")
	ErrPlanInUse              = NewError(CodeConflict, "plan is referenced by existing cards")
)

// Validation errors
var (
	ErrVerifyTargetRequired = NewError(CodeBadRequest, "either householdId or memberId is required")
	ErrInvalidCardStatus    = NewError(CodeBadRequest, "invalid card status")
	ErrInvalidEmail         = NewError(CodeBadRequest, "invalid email address")
	ErrInvalidRole          = NewError(CodeBadRequest, "invalid role")
	ErrInvalidRelation      = NewError(CodeBadRequest, "invalid member relation")
)

// ErrStoreUnavailable marks a store that could not be reached.
var ErrStoreUnavailable = NewError(CodeUnavailable, "store unavailable")

// StoreUnavailable wraps a connection or deadline failure so that it
// matches ErrStoreUnavailable and still unwraps to err.
func StoreUnavailable(err error) *Error {
	return WrapError(err, ErrStoreUnavailable.Code, ErrStoreUnavailable.Message)
}

// TransitionError reports a card status change rejected by the transition policy.
func TransitionError(from, to CardStatus) *Error {
	return NewError(CodeConflict, fmt.Sprintf("card status transition from %s to %s is not allowed", from, to))
}

// BadRequest builds a validation error with a custom message.
func BadRequest(message string) *Error {
	return NewError(CodeBadRequest, message)
}
