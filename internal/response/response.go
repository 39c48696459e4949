// Package response models the gateway-level outcome of one command:
// either a wrapper over the backend's raw result document or a command
// error carrying a domain error code.
package response

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/fyrsmithlabs/docgateway/internal/errcode"
)

// CommandError is the error half of a Response.
type CommandError struct {
	Code    errcode.Code
	Message string
}

// NewCommandError builds a command error from a domain code and message.
func NewCommandError(code errcode.Code, msg string) *CommandError {
	return &CommandError{Code: code, Message: msg}
}

// CommandErrorFromErr converts any error into its wire-visible form.
// Domain errors keep their code; everything else is an InternalError with
// the message preserved.
func CommandErrorFromErr(err error) *CommandError {
	var derr *errcode.Error
	if errors.As(err, &derr) {
		return &CommandError{Code: derr.Code, Message: derr.Message}
	}
	return &CommandError{Code: errcode.InternalError, Message: err.Error()}
}

// Document renders the error in its wire document form.
func (e *CommandError) Document() (bson.Raw, error) {
	doc, err := bson.Marshal(bson.D{
		{Key: "ok", Value: float64(0)},
		{Key: "errmsg", Value: e.Message},
		{Key: "code", Value: int32(e.Code)},
		{Key: "codeName", Value: e.Code.String()},
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling command error: %w", err)
	}
	return bson.Raw(doc), nil
}

// Response is the outcome of one executed command: exactly one of the
// backend result wrapper or the command error is set.
type Response struct {
	pg     *PgResponse
	cmdErr *CommandError
}

// NewResult wraps a successful backend response.
func NewResult(pg *PgResponse) *Response {
	return &Response{pg: pg}
}

// NewError wraps a command error.
func NewError(e *CommandError) *Response {
	return &Response{cmdErr: e}
}

// OK reports whether the response carries a backend result.
func (r *Response) OK() bool { return r.pg != nil }

// Result returns the backend result wrapper, or nil on error responses.
func (r *Response) Result() *PgResponse { return r.pg }

// Err returns the command error, or nil on success responses.
func (r *Response) Err() *CommandError { return r.cmdErr }

// RawDocument returns the serialized result document for successful
// responses. The second return is false for error responses.
func (r *Response) RawDocument() (bson.Raw, bool) {
	if r.pg == nil {
		return nil, false
	}
	return r.pg.Document(), true
}
