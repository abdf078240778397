package repository

import (
	"context"
	"errors"

	"chatql/internal/entity"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrEmailTaken           = errors.New("email already taken")
	ErrUsernameTaken        = errors.New("username already taken")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrParticipantNotFound  = errors.New("participant not found")
)

type UserRepository interface {
	Get(ctx context.Context, userId string) (entity.User, error)
	GetByEmail(ctx context.Context, email string) (entity.User, error)
	Index(ctx context.Context, filter entity.UserIndexFilter) ([]entity.User, error)
	Create(ctx context.Context, user entity.User) (string, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
}

// ConversationRepository returns conversations populated with their
// participants' users and the latest message's sender.
type ConversationRepository interface {
	// Index returns the conversations userId participates in, most
	// recently updated first.
	Index(ctx context.Context, userId string) ([]entity.Conversation, error)
	Get(ctx context.Context, conversationId string) (entity.Conversation, error)
	// Create inserts a conversation and one participant row per entry.
	Create(ctx context.Context, participants []entity.NewParticipant) (entity.Conversation, error)

	GetParticipantByUserAndConversation(ctx context.Context, userId, conversationId string) (entity.ConversationParticipant, error)
	MarkParticipantAsRead(ctx context.Context, participantId string) error
}

// Store bundles the repositories of one backend.
type Store interface {
	Users() UserRepository
	Conversations() ConversationRepository
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
