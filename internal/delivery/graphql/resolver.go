package graphql

import (
	"context"
	"log/slog"

	"chatql/internal/entity"
	"chatql/internal/session"
	"chatql/internal/usecase"
)

// Resolver is the root of Query, Mutation and Subscription.
type Resolver struct {
	conversationUc usecase.ConversationUsecase
	logger         *slog.Logger
}

func NewResolver(conversationUc usecase.ConversationUsecase, logger *slog.Logger) *Resolver {
	return &Resolver{
		conversationUc: conversationUc,
		logger:         logger,
	}
}

// fail logs err at the resolver boundary and converts it for the client.
func (r *Resolver) fail(ctx context.Context, op string, err error) error {
	e := newError(err)
	level := slog.LevelWarn
	if e.Code == CodeInternal {
		level = slog.LevelError
	}
	r.logger.Log(ctx, level, "graphql operation failed",
		"operation", op,
		"code", e.Code,
		"user", session.FromContext(ctx).UserId(),
		"error", err,
	)
	return e
}

func (r *Resolver) Conversations(ctx context.Context) ([]*conversationResolver, error) {
	conversations, err := r.conversationUc.Index(ctx, session.FromContext(ctx))
	if err != nil {
		return nil, r.fail(ctx, "conversations", err)
	}

	out := make([]*conversationResolver, 0, len(conversations))
	for _, c := range conversations {
		out = append(out, &conversationResolver{c: c})
	}
	return out, nil
}

type createConversationArgs struct {
	ParticipantIds []string
}

func (r *Resolver) CreateConversation(ctx context.Context, args createConversationArgs) (*createConversationResponseResolver, error) {
	conversationId, err := r.conversationUc.Create(ctx, session.FromContext(ctx), args.ParticipantIds)
	if err != nil {
		return nil, r.fail(ctx, "createConversation", err)
	}
	return &createConversationResponseResolver{conversationId: conversationId}, nil
}

type markConversationAsReadArgs struct {
	UserId         string
	ConversationId string
}

func (r *Resolver) MarkConversationAsRead(ctx context.Context, args markConversationAsReadArgs) (bool, error) {
	err := r.conversationUc.MarkAsRead(ctx, session.FromContext(ctx), args.UserId, args.ConversationId)
	if err != nil {
		return false, r.fail(ctx, "markConversationAsRead", err)
	}
	return true, nil
}

func (r *Resolver) ConversationCreated(ctx context.Context) (<-chan *conversationResolver, error) {
	conversations, err := r.conversationUc.SubscribeCreated(ctx, session.FromContext(ctx))
	if err != nil {
		return nil, r.fail(ctx, "conversationCreated", err)
	}

	out := make(chan *conversationResolver)
	go forward(ctx, conversations, out, func(c entity.Conversation) *conversationResolver {
		return &conversationResolver{c: c}
	})
	return out, nil
}

func (r *Resolver) ConversationUpdated(ctx context.Context) (<-chan *conversationUpdatedResolver, error) {
	conversations, err := r.conversationUc.SubscribeUpdated(ctx, session.FromContext(ctx))
	if err != nil {
		return nil, r.fail(ctx, "conversationUpdated", err)
	}

	out := make(chan *conversationUpdatedResolver)
	go forward(ctx, conversations, out, func(c entity.Conversation) *conversationUpdatedResolver {
		return &conversationUpdatedResolver{c: c}
	})
	return out, nil
}

// forward wraps every conversation from in and closes out once in closes
// or ctx is done.
func forward[T any](ctx context.Context, in <-chan entity.Conversation, out chan<- T, wrap func(entity.Conversation) T) {
	defer close(out)
	for c := range in {
		select {
		case out <- wrap(c):
		case <-ctx.Done():
			return
		}
	}
}
