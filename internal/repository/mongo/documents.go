package mongo

import (
	"time"

	"chatql/internal/entity"
)

const (
	usersCollection         = "users"
	conversationsCollection = "conversations"
	participantsCollection  = "conversation_participants"
	messagesCollection      = "messages"
)

type userDocument struct {
	Id            string    `bson:"_id"`
	Username      string    `bson:"username"`
	Email         string    `bson:"email"`
	EmailVerified bool      `bson:"emailVerified"`
	Password      string    `bson:"password"`
	Name          string    `bson:"name"`
	Image         string    `bson:"image"`
	CreatedAt     time.Time `bson:"createdAt"`
	UpdatedAt     time.Time `bson:"updatedAt"`
}

type conversationDocument struct {
	Id              string    `bson:"_id"`
	LatestMessageId *string   `bson:"latestMessageId,omitempty"`
	CreatedAt       time.Time `bson:"createdAt"`
	UpdatedAt       time.Time `bson:"updatedAt"`
}

type participantDocument struct {
	Id                   string    `bson:"_id"`
	ConversationId       string    `bson:"conversationId"`
	UserId               string    `bson:"userId"`
	HasSeenLatestMessage bool      `bson:"hasSeenLatestMessage"`
	CreatedAt            time.Time `bson:"createdAt"`
	UpdatedAt            time.Time `bson:"updatedAt"`
}

type messageDocument struct {
	Id             string    `bson:"_id"`
	ConversationId string    `bson:"conversationId"`
	SenderId       string    `bson:"senderId"`
	Body           string    `bson:"body"`
	CreatedAt      time.Time `bson:"createdAt"`
}

func (d userDocument) toEntity() entity.User {
	return entity.User{
		Id:            d.Id,
		Username:      d.Username,
		Email:         d.Email,
		EmailVerified: d.EmailVerified,
		Password:      d.Password,
		Name:          d.Name,
		Image:         d.Image,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

// lookup resolves the user summaries referenced by populated conversations.
type lookup map[string]entity.UserSummary

func (l lookup) summary(userId string) entity.UserSummary {
	if s, ok := l[userId]; ok {
		return s
	}
	return entity.UserSummary{Id: userId}
}

func (d participantDocument) toEntity(users lookup) entity.ConversationParticipant {
	return entity.ConversationParticipant{
		Id:                   d.Id,
		ConversationId:       d.ConversationId,
		UserId:               d.UserId,
		User:                 users.summary(d.UserId),
		HasSeenLatestMessage: d.HasSeenLatestMessage,
		CreatedAt:            d.CreatedAt,
		UpdatedAt:            d.UpdatedAt,
	}
}

func (d messageDocument) toEntity(users lookup) *entity.Message {
	return &entity.Message{
		Id:             d.Id,
		ConversationId: d.ConversationId,
		SenderId:       d.SenderId,
		Sender:         users.summary(d.SenderId),
		Body:           d.Body,
		CreatedAt:      d.CreatedAt,
	}
}

// assemble joins conversations with their participants and latest
// messages, preserving the order of convs.
func assemble(convs []conversationDocument, participants []participantDocument, messages []messageDocument, users lookup) []entity.Conversation {
	byConversation := make(map[string][]entity.ConversationParticipant, len(convs))
	for _, p := range participants {
		byConversation[p.ConversationId] = append(byConversation[p.ConversationId], p.toEntity(users))
	}
	messageById := make(map[string]messageDocument, len(messages))
	for _, m := range messages {
		messageById[m.Id] = m
	}

	out := make([]entity.Conversation, 0, len(convs))
	for _, c := range convs {
		conv := entity.Conversation{
			Id:              c.Id,
			Participants:    byConversation[c.Id],
			LatestMessageId: c.LatestMessageId,
			CreatedAt:       c.CreatedAt,
			UpdatedAt:       c.UpdatedAt,
		}
		if conv.Participants == nil {
			conv.Participants = []entity.ConversationParticipant{}
		}
		if c.LatestMessageId != nil {
			if m, ok := messageById[*c.LatestMessageId]; ok {
				conv.LatestMessage = m.toEntity(users)
			}
		}
		out = append(out, conv)
	}
	return out
}
