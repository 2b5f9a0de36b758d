package core

import (
	"errors"
	"fmt"
)

// Error kinds. Adapters return these (wrapped) and the HTTP layer maps them
// to status codes with errors.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrDuplicate    = errors.New("already exists")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInUse        = errors.New("in use")
	ErrValidation   = errors.New("validation failed")
)

// Error is an error of a given kind carrying a message safe to show to clients.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

// Errorf builds an *Error of the given kind.
func Errorf(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func invalid(msg string) *Error {
	return &Error{Kind: ErrValidation, Message: msg}
}

var (
	ErrInvalidAmount    = invalid("amount must be greater than zero")
	ErrInvalidType      = invalid("type must be income or expense")
	ErrMissingCategory  = invalid("categoryId is required")
	ErrMissingDate      = invalid("date is required")
	ErrInvalidDate      = invalid("invalid date")
	ErrNoteTooLong      = invalid("note too long (max 500 characters)")
	ErrEmptyName        = invalid("name is required")
	ErrNameTooLong      = invalid("name too long (max 50 characters)")
	ErrInvalidUsername  = invalid("username must be 3 to 32 characters without spaces")
	ErrInvalidPassword  = invalid("password must be at least 6 characters")
	ErrPasswordTooLong  = invalid("password too long (max 72 bytes)")
	ErrInvalidPeriod    = invalid("period must be daily, weekly, monthly or yearly")
	ErrInvalidDateRange = invalid("end date must not be before start date")
	ErrDescTooLong      = invalid("description too long (max 200 characters)")
)

// PublicMessage returns the client-facing message of err, or fallback when
// err carries none.
func PublicMessage(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return fallback
}
