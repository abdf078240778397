package entity

const (
	TopicConversationCreated = "CONVERSATION_CREATED"
	TopicConversationUpdated = "CONVERSATION_UPDATED"
)

// ConversationEvent is the payload published on both conversation topics.
type ConversationEvent struct {
	Conversation Conversation `json:"conversation"`
}
