package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"chatql/infrastructure/pubsub"
	"chatql/internal/entity"
	"chatql/internal/repository"
	"chatql/internal/subscription"
)

type ConversationUsecase interface {
	// Index returns the conversations the session user takes part in.
	Index(ctx context.Context, session *entity.Session) ([]entity.Conversation, error)
	// Create creates a conversation between participantIds on behalf of
	// the session user and announces it on TopicConversationCreated.
	Create(ctx context.Context, session *entity.Session, participantIds []string) (string, error)
	// MarkAsRead flags the (userId, conversationId) participant as having
	// seen the latest message and announces it on TopicConversationUpdated.
	MarkAsRead(ctx context.Context, session *entity.Session, userId, conversationId string) error

	SubscribeCreated(ctx context.Context, session *entity.Session) (<-chan entity.Conversation, error)
	SubscribeUpdated(ctx context.Context, session *entity.Session) (<-chan entity.Conversation, error)
}

type conversationUsecase struct {
	conversationRepo repository.ConversationRepository
	userRepo         repository.UserRepository
	bus              pubsub.Bus
	logger           *slog.Logger
	now              func() time.Time
}

func NewConversationUsecase(
	conversationRepo repository.ConversationRepository,
	userRepo repository.UserRepository,
	bus pubsub.Bus,
	logger *slog.Logger,
) ConversationUsecase {
	return &conversationUsecase{
		conversationRepo: conversationRepo,
		userRepo:         userRepo,
		bus:              bus,
		logger:           logger,
		now:              time.Now,
	}
}

func (c *conversationUsecase) authorize(session *entity.Session) error {
	if !session.Active(c.now()) {
		return ErrNotAuthorized
	}
	return nil
}

func (c *conversationUsecase) Index(ctx context.Context, session *entity.Session) ([]entity.Conversation, error) {
	if err := c.authorize(session); err != nil {
		return nil, err
	}

	conversations, err := c.conversationRepo.Index(ctx, session.UserId())
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}
	return conversations, nil
}

func (c *conversationUsecase) Create(ctx context.Context, session *entity.Session, participantIds []string) (string, error) {
	if err := c.authorize(session); err != nil {
		return "", err
	}

	ids := uniqueIds(participantIds)
	if len(ids) == 0 {
		return "", ErrInvalidParticipants
	}

	users, err := c.userRepo.Index(ctx, entity.UserIndexFilter{Ids: ids})
	if err != nil {
		return "", fmt.Errorf("loading participants: %w", err)
	}
	if len(users) != len(ids) {
		return "", ErrUnknownParticipants
	}

	creatorId := session.UserId()
	participants := make([]entity.NewParticipant, 0, len(ids))
	for _, id := range ids {
		participants = append(participants, entity.NewParticipant{
			UserId:               id,
			HasSeenLatestMessage: id == creatorId,
		})
	}

	conversation, err := c.conversationRepo.Create(ctx, participants)
	if err != nil {
		return "", fmt.Errorf("creating conversation: %w", err)
	}

	c.publish(ctx, entity.TopicConversationCreated, conversation)

	return conversation.Id, nil
}

func (c *conversationUsecase) MarkAsRead(ctx context.Context, session *entity.Session, userId, conversationId string) error {
	if err := c.authorize(session); err != nil {
		return err
	}
	participant, err := c.conversationRepo.GetParticipantByUserAndConversation(ctx, userId, conversationId)
	if err != nil {
		if errors.Is(err, repository.ErrParticipantNotFound) {
			return ErrParticipantNotFound
		}
		return fmt.Errorf("finding participant: %w", err)
	}

	if err := c.conversationRepo.MarkParticipantAsRead(ctx, participant.Id); err != nil {
		if errors.Is(err, repository.ErrParticipantNotFound) {
			return ErrParticipantNotFound
		}
		return fmt.Errorf("marking conversation as read: %w", err)
	}

	// The write has succeeded; a failed reload only costs the event.
	conversation, err := c.conversationRepo.Get(ctx, conversationId)
	if err != nil {
		c.logger.Error("reloading conversation for update event", "conversation", conversationId, "error", err)
		return nil
	}
	c.publish(ctx, entity.TopicConversationUpdated, conversation)

	return nil
}

func (c *conversationUsecase) SubscribeCreated(ctx context.Context, session *entity.Session) (<-chan entity.Conversation, error) {
	return c.subscribe(ctx, session, entity.TopicConversationCreated)
}

func (c *conversationUsecase) SubscribeUpdated(ctx context.Context, session *entity.Session) (<-chan entity.Conversation, error) {
	return c.subscribe(ctx, session, entity.TopicConversationUpdated)
}

// subscribe listens to every event on topic and keeps those the session
// user participates in. The bus subscription ends with the returned
// stream, including when the filter rejects the session.
func (c *conversationUsecase) subscribe(ctx context.Context, session *entity.Session, topic string) (<-chan entity.Conversation, error) {
	if err := c.authorize(session); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	events, err := c.bus.Subscribe(ctx, topic)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("subscribing to %s: %w", topic, err)
	}

	logger := c.logger.With("topic", topic, "user", session.UserId())
	admitted := subscription.Filter(ctx, events, subscription.ParticipantFilter(session), logger)

	out := make(chan entity.Conversation)
	go func() {
		defer close(out)
		defer cancel()
		for ev := range admitted {
			var payload entity.ConversationEvent
			if err := json.Unmarshal(ev.Payload, &payload); err != nil {
				logger.Error("decoding conversation event", "error", err)
				return
			}
			select {
			case out <- payload.Conversation:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// publish is fire-and-forget: failures are logged, never returned.
func (c *conversationUsecase) publish(ctx context.Context, topic string, conversation entity.Conversation) {
	payload, err := json.Marshal(entity.ConversationEvent{Conversation: conversation})
	if err != nil {
		c.logger.Error("encoding conversation event", "topic", topic, "error", err)
		return
	}
	if err := c.bus.Publish(context.WithoutCancel(ctx), topic, payload); err != nil {
		c.logger.Error("publishing conversation event", "topic", topic, "conversation", conversation.Id, "error", err)
	}
}

// uniqueIds drops blanks and duplicates, keeping first-seen order.
func uniqueIds(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
