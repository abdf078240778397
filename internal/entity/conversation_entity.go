package entity

import "time"

// Conversation is always handed out populated: participants carry their
// user and LatestMessage carries its sender.
type Conversation struct {
	Id              string                    `json:"id"`
	Participants    []ConversationParticipant `json:"participants"`
	LatestMessageId *string                   `json:"latestMessageId,omitempty"`
	LatestMessage   *Message                  `json:"latestMessage,omitempty"`
	CreatedAt       time.Time                 `json:"createdAt"`
	UpdatedAt       time.Time                 `json:"updatedAt"`
}

type ConversationParticipant struct {
	Id                   string      `json:"id"`
	ConversationId       string      `json:"conversationId"`
	UserId               string      `json:"userId"`
	User                 UserSummary `json:"user"`
	HasSeenLatestMessage bool        `json:"hasSeenLatestMessage"`
	CreatedAt            time.Time   `json:"createdAt"`
	UpdatedAt            time.Time   `json:"updatedAt"`
}

// NewParticipant is the create-time input for one participant row.
type NewParticipant struct {
	UserId               string
	HasSeenLatestMessage bool
}

// ParticipantUserIds returns the user ids of every participant in order.
func (c Conversation) ParticipantUserIds() []string {
	ids := make([]string, 0, len(c.Participants))
	for _, p := range c.Participants {
		ids = append(ids, p.UserId)
	}
	return ids
}

// Participant returns the participant row for userId, if any.
func (c Conversation) Participant(userId string) (ConversationParticipant, bool) {
	for _, p := range c.Participants {
		if p.UserId == userId {
			return p, true
		}
	}
	return ConversationParticipant{}, false
}
