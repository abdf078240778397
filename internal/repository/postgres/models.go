package postgres

import (
	"time"

	"chatql/internal/entity"
)

type userModel struct {
	ID            string `gorm:"primaryKey;type:varchar(36)"`
	Username      string `gorm:"type:varchar(64);uniqueIndex;not null"`
	Email         string `gorm:"uniqueIndex;not null"`
	EmailVerified bool   `gorm:"not null"`
	Password      string `gorm:"not null"`
	Name          string
	Image         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (userModel) TableName() string { return "users" }

type messageModel struct {
	ID             string    `gorm:"primaryKey;type:varchar(36)"`
	ConversationID string    `gorm:"type:varchar(36);not null;index"`
	SenderID       string    `gorm:"type:varchar(36);not null"`
	Sender         userModel `gorm:"foreignKey:SenderID;references:ID"`
	Body           string    `gorm:"not null"`
	CreatedAt      time.Time
}

func (messageModel) TableName() string { return "messages" }

type conversationModel struct {
	ID              string             `gorm:"primaryKey;type:varchar(36)"`
	Participants    []participantModel `gorm:"foreignKey:ConversationID;references:ID;constraint:OnDelete:CASCADE"`
	LatestMessageID *string            `gorm:"type:varchar(36)"`
	LatestMessage   *messageModel      `gorm:"foreignKey:LatestMessageID;references:ID;constraint:OnDelete:SET NULL"`
	CreatedAt       time.Time
	UpdatedAt       time.Time `gorm:"index"`
}

func (conversationModel) TableName() string { return "conversations" }

type participantModel struct {
	ID                   string    `gorm:"primaryKey;type:varchar(36)"`
	ConversationID       string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_participants_conversation_user"`
	UserID               string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_participants_conversation_user;index"`
	User                 userModel `gorm:"foreignKey:UserID;references:ID"`
	HasSeenLatestMessage bool      `gorm:"not null"`
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

func (participantModel) TableName() string { return "conversation_participants" }

// Models lists every table in dependency order for AutoMigrate.
func Models() []any {
	return []any{&userModel{}, &messageModel{}, &conversationModel{}, &participantModel{}}
}

func (m userModel) toEntity() entity.User {
	return entity.User{
		Id:            m.ID,
		Username:      m.Username,
		Email:         m.Email,
		EmailVerified: m.EmailVerified,
		Password:      m.Password,
		Name:          m.Name,
		Image:         m.Image,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func (m userModel) toSummary() entity.UserSummary {
	return entity.UserSummary{Id: m.ID, Username: m.Username}
}

func (m participantModel) toEntity() entity.ConversationParticipant {
	return entity.ConversationParticipant{
		Id:                   m.ID,
		ConversationId:       m.ConversationID,
		UserId:               m.UserID,
		User:                 m.User.toSummary(),
		HasSeenLatestMessage: m.HasSeenLatestMessage,
		CreatedAt:            m.CreatedAt,
		UpdatedAt:            m.UpdatedAt,
	}
}

func (m conversationModel) toEntity() entity.Conversation {
	c := entity.Conversation{
		Id:              m.ID,
		Participants:    make([]entity.ConversationParticipant, 0, len(m.Participants)),
		LatestMessageId: m.LatestMessageID,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
	for _, p := range m.Participants {
		c.Participants = append(c.Participants, p.toEntity())
	}
	if m.LatestMessage != nil {
		c.LatestMessage = &entity.Message{
			Id:             m.LatestMessage.ID,
			ConversationId: m.LatestMessage.ConversationID,
			SenderId:       m.LatestMessage.SenderID,
			Sender:         m.LatestMessage.Sender.toSummary(),
			Body:           m.LatestMessage.Body,
			CreatedAt:      m.LatestMessage.CreatedAt,
		}
	}
	return c
}
