// Package errcode defines the gateway's domain error codes and their
// mapping to protocol-visible status codes.
package errcode

import "fmt"

// Code is a protocol-compatible numeric error code.
type Code int32

const (
	// OK is the zero value and means "no error".
	OK Code = 0

	InternalError        Code = 1
	BadValue             Code = 2
	FailedToParse        Code = 9
	Unauthorized         Code = 13
	TypeMismatch         Code = 14
	AuthenticationFailed Code = 18
	CursorNotFound       Code = 43
	ExceededTimeLimit    Code = 50
	CommandNotFound      Code = 59
	InvalidNamespace     Code = 73
	WriteConflict        Code = 112
	DuplicateKey         Code = 11000
)

var codeNames = map[Code]string{
	OK:                   "OK",
	InternalError:        "InternalError",
	BadValue:             "BadValue",
	FailedToParse:        "FailedToParse",
	Unauthorized:         "Unauthorized",
	TypeMismatch:         "TypeMismatch",
	AuthenticationFailed: "AuthenticationFailed",
	CursorNotFound:       "CursorNotFound",
	ExceededTimeLimit:    "ExceededTimeLimit",
	CommandNotFound:      "CommandNotFound",
	InvalidNamespace:     "InvalidNamespace",
	WriteConflict:        "WriteConflict",
	DuplicateKey:         "DuplicateKey",
}

// String returns the symbolic name for known codes and the decimal value
// for unrecognized ones.
func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("%d", int32(c))
}

// Error is a domain error carrying a code and a client-visible message.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// New creates a domain error with an arbitrary code.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Constructors for the common validation errors raised before any
// backend call is made.

func NewBadValue(msg string) *Error     { return New(BadValue, msg) }
func NewTypeMismatch(msg string) *Error { return New(TypeMismatch, msg) }
func NewUnauthorized(msg string) *Error { return New(Unauthorized, msg) }
func NewInternal(msg string) *Error     { return New(InternalError, msg) }
func NewInternalf(format string, args ...any) *Error {
	return Newf(InternalError, format, args...)
}

// StatusCode maps a domain error code to the protocol-visible status code.
// OK (no error) maps to 200. Unrecognized codes map to 400.
func StatusCode(code Code) int {
	switch code {
	case OK:
		return 200
	case AuthenticationFailed, Unauthorized:
		return 401
	case InternalError:
		return 500
	case ExceededTimeLimit:
		return 408
	case DuplicateKey:
		return 409
	default:
		return 400
	}
}
