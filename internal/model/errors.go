package model

import (
	"errors"
	"fmt"
)

// ErrorCode classifies errors for whatever layer reports them to users.
type ErrorCode string

const (
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	ErrCodeInvalid  ErrorCode = "INVALID"
	ErrCodeConflict ErrorCode = "CONFLICT"
	ErrCodeInternal ErrorCode = "INTERNAL"
)

// Error is a classified domain error.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches domain errors by code and message so wrapped copies of the
// sentinels below still satisfy errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

func WrapError(code ErrorCode, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

var (
	ErrTaskNotFound         = NewError(ErrCodeNotFound, "task not found")
	ErrReminderNotFound     = NewError(ErrCodeNotFound, "reminder not found")
	ErrUserNotFound         = NewError(ErrCodeNotFound, "user not found")
	ErrTagNotFound          = NewError(ErrCodeNotFound, "tag not found")
	ErrDuplicateTag         = NewError(ErrCodeConflict, "tag already exists")
	ErrTaskAlreadyCompleted = NewError(ErrCodeConflict, "task already completed")
	ErrDuplicateSuccessor   = NewError(ErrCodeConflict, "successor already exists")
	ErrInvalidInput         = NewError(ErrCodeInvalid, "invalid input")
)

// IsDomainError reports whether err carries the given code.
func IsDomainError(err error, code ErrorCode) bool {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Code == code
	}
	return false
}
