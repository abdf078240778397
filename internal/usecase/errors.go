package usecase

import (
	"errors"

	"chatql/internal/entity"
)

var (
	ErrNotAuthorized       = entity.ErrNotAuthorized
	ErrParticipantNotFound = errors.New("participant not found")
	ErrInvalidParticipants = errors.New("at least one participant is required")
	ErrUnknownParticipants = errors.New("some user IDs are invalid")

	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrMissingFields        = errors.New("email, username, password, and name are required")
	ErrEmailAlreadyTaken    = errors.New("email already taken")
	ErrUsernameAlreadyTaken = errors.New("username already taken")
)
