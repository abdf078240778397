package postgres

import (
	"context"
	"errors"
	"time"

	"chatql/internal/entity"
	"chatql/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ConversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// populated eager-loads participants with their users and the latest
// message with its sender.
func populated(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Participants", func(db *gorm.DB) *gorm.DB {
			return db.Order("conversation_participants.created_at ASC")
		}).
		Preload("Participants.User").
		Preload("LatestMessage.Sender")
}

// Index returns all conversations a user is participating in
func (r *ConversationRepository) Index(ctx context.Context, userId string) ([]entity.Conversation, error) {
	memberOf := r.db.Model(&participantModel{}).
		Select("conversation_id").
		Where("user_id = ?", userId)

	var rows []conversationModel
	err := r.db.WithContext(ctx).
		Scopes(populated).
		Where("id IN (?)", memberOf).
		Order("updated_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	conversations := make([]entity.Conversation, 0, len(rows))
	for _, m := range rows {
		conversations = append(conversations, m.toEntity())
	}
	return conversations, nil
}

func (r *ConversationRepository) Get(ctx context.Context, conversationId string) (entity.Conversation, error) {
	var m conversationModel
	err := r.db.WithContext(ctx).Scopes(populated).First(&m, "id = ?", conversationId).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entity.Conversation{}, repository.ErrConversationNotFound
		}
		return entity.Conversation{}, err
	}
	return m.toEntity(), nil
}

// Create inserts the conversation and its participants in one transaction
// and returns the populated result.
func (r *ConversationRepository) Create(ctx context.Context, participants []entity.NewParticipant) (entity.Conversation, error) {
	now := time.Now()
	conv := conversationModel{
		ID:        uuid.New().String(),
		CreatedAt: now,
		UpdatedAt: now,
	}

	rows := make([]participantModel, 0, len(participants))
	for _, p := range participants {
		rows = append(rows, participantModel{
			ID:                   uuid.New().String(),
			ConversationID:       conv.ID,
			UserID:               p.UserId,
			HasSeenLatestMessage: p.HasSeenLatestMessage,
			CreatedAt:            now,
			UpdatedAt:            now,
		})
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&conv).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Omit(clause.Associations).Create(&rows).Error
	})
	if err != nil {
		return entity.Conversation{}, err
	}

	return r.Get(ctx, conv.ID)
}

func (r *ConversationRepository) GetParticipantByUserAndConversation(ctx context.Context, userId, conversationId string) (entity.ConversationParticipant, error) {
	var m participantModel
	err := r.db.WithContext(ctx).
		Preload("User").
		First(&m, "user_id = ? AND conversation_id = ?", userId, conversationId).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entity.ConversationParticipant{}, repository.ErrParticipantNotFound
		}
		return entity.ConversationParticipant{}, err
	}
	return m.toEntity(), nil
}

func (r *ConversationRepository) MarkParticipantAsRead(ctx context.Context, participantId string) error {
	res := r.db.WithContext(ctx).
		Model(&participantModel{}).
		Where("id = ?", participantId).
		Update("has_seen_latest_message", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repository.ErrParticipantNotFound
	}
	return nil
}
