// Package apperr defines the error taxonomy shared by services and the HTTP
// boundary.
package apperr

import (
	"errors"
	"fmt"
)

// Error is a categorized application error.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil && e.Cause.Error() != e.Message {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches two *Error values by code and message so sentinels survive wrapping.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

func Validation(msg string) *Error       { return New(CodeValidation, msg) }
func NotFound(msg string) *Error         { return New(CodeNotFound, msg) }
func Forbidden(msg string) *Error        { return New(CodeForbidden, msg) }
func PermissionDenied(msg string) *Error { return New(CodePermissionDenied, msg) }
func Unauthenticated(msg string) *Error  { return New(CodeUnauthenticated, msg) }

// Store wraps a dependency failure. The cause text is kept as the message so
// callers see it verbatim.
func Store(cause error) *Error {
	if cause == nil {
		return New(CodeStore, "store error")
	}
	return &Error{Code: CodeStore, Message: cause.Error(), Cause: cause}
}

var (
	ErrInvalidCredentials   = Unauthenticated("invalid credentials")
	ErrDuplicateEmail       = New(CodeDuplicateEmail, "email already registered")
	ErrProfileNotFound      = NotFound("profile not found")
	ErrReceiverNotFound     = NotFound("receiver not found")
	ErrSelfMessage          = Validation("cannot send a message to yourself")
	ErrMustBeContactedFirst = PermissionDenied("owners can only message a housekeeper who has contacted them first")
	ErrEmptyBody            = Validation("message body must not be empty")
	ErrMessageNotFound      = NotFound("message not found")
	ErrNotParticipant       = Forbidden("not a participant of this message")
	ErrOnlySenderUnsends    = Forbidden("only the sender can delete a message for everyone")
	ErrForeignHistory       = Forbidden("cannot read another user's messages")
)

// CodeOf returns the code of the first *Error in err's chain, or CodeStore.
func CodeOf(err error) Code {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeStore
}

// HTTPStatus resolves the HTTP status for err.
func HTTPStatus(err error) int {
	return CodeOf(err).Status()
}

// Message returns the client-facing text for err.
func Message(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
