package entity

import "time"

type Message struct {
	Id             string      `json:"id"`
	ConversationId string      `json:"conversationId"`
	SenderId       string      `json:"senderId"`
	Sender         UserSummary `json:"sender"`
	Body           string      `json:"body"`
	CreatedAt      time.Time   `json:"createdAt"`
}
