package graphql

import (
	"errors"

	"chatql/internal/usecase"
)

const (
	CodeUnauthenticated = "UNAUTHENTICATED"
	CodeNotFound        = "NOT_FOUND"
	CodeBadUserInput    = "BAD_USER_INPUT"
	CodeInternal        = "INTERNAL_SERVER_ERROR"
)

// Error carries a usecase error to the client with an extensions.code.
type Error struct {
	Code string
	err  error
}

func (e *Error) Error() string { return e.err.Error() }

func (e *Error) Unwrap() error { return e.err }

func (e *Error) Extensions() map[string]interface{} {
	return map[string]interface{}{"code": e.Code}
}

func codeOf(err error) string {
	switch {
	case errors.Is(err, usecase.ErrNotAuthorized):
		return CodeUnauthenticated
	case errors.Is(err, usecase.ErrParticipantNotFound):
		return CodeNotFound
	case errors.Is(err, usecase.ErrInvalidParticipants), errors.Is(err, usecase.ErrUnknownParticipants):
		return CodeBadUserInput
	}
	return CodeInternal
}

func newError(err error) *Error {
	return &Error{Code: codeOf(err), err: err}
}
