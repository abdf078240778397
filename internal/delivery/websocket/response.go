package websocket

// Close codes defined by graphql-transport-ws.
const (
	CloseBadRequest          = 4400
	CloseUnauthorized        = 4401
	CloseForbidden           = 4403
	CloseSubprotocolNotOK    = 4406
	CloseInitTimeout         = 4408
	CloseSubscriberExists    = 4409
	CloseTooManyInitRequests = 4429
)

type ErrorPayload struct {
	Message string `json:"message"`
}
