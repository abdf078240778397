package websocket

import "encoding/json"

// Message types of the graphql-transport-ws protocol.
const (
	TypeConnectionInit = "connection_init"
	TypeConnectionAck  = "connection_ack"
	TypePing           = "ping"
	TypePong           = "pong"
	TypeSubscribe      = "subscribe"
	TypeNext           = "next"
	TypeError          = "error"
	TypeComplete       = "complete"
)

// Message is the envelope of every frame in either direction.
type Message struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// InitPayload carries the client's credentials. Either field may hold the
// access token, with or without the Bearer scheme.
type InitPayload struct {
	Authorization string `json:"authorization"`
	Token         string `json:"token"`
}

type SubscribePayload struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName"`
	Variables     map[string]interface{} `json:"variables"`
}
