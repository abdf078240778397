package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"chatql/internal/entity"
	"chatql/internal/session"

	"github.com/gorilla/websocket"
	"github.com/graph-gophers/graphql-go"
)

const (
	Subprotocol = "graphql-transport-ws"

	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 64
)

// Executor runs GraphQL documents of any operation type. Queries and
// mutations yield a single result. *graphql.Schema satisfies it.
type Executor interface {
	Subscribe(ctx context.Context, query, operationName string, variables map[string]interface{}) (<-chan interface{}, error)
}

var _ Executor = (*graphql.Schema)(nil)

type SessionResolver interface {
	Resolve(ctx context.Context, token string) (*entity.Session, error)
}

type WebsocketHandler struct {
	executor    Executor
	sessions    SessionResolver
	logger      *slog.Logger
	upgrader    websocket.Upgrader
	initTimeout time.Duration
}

func NewWebsocketHandler(executor Executor, sessions SessionResolver, allowedOrigin string, logger *slog.Logger) *WebsocketHandler {
	return &WebsocketHandler{
		executor: executor,
		sessions: sessions,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			Subprotocols:    []string{Subprotocol},
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowedOrigin == "*" || origin == allowedOrigin
			},
		},
		initTimeout: 10 * time.Second,
	}
}

func (h *WebsocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	c := &connection{
		h:          h,
		conn:       conn,
		ctx:        ctx,
		cancel:     cancel,
		send:       make(chan []byte, sendBuffer),
		done:       make(chan struct{}),
		session:    session.FromContext(r.Context()),
		operations: make(map[string]*operation),
		logger:     h.logger.With("remote", r.RemoteAddr),
	}
	defer c.shutdown()

	if conn.Subprotocol() != Subprotocol {
		c.closeWith(CloseSubprotocolNotOK, "Subprotocol not acceptable")
		return
	}

	timer := time.AfterFunc(h.initTimeout, func() {
		if !c.isAcknowledged() {
			c.closeWith(CloseInitTimeout, "Connection initialisation timeout")
		}
	})
	defer timer.Stop()

	go func() {
		select {
		case <-ctx.Done():
			c.closeWith(websocket.CloseGoingAway, "Server shutting down")
		case <-c.done:
		}
	}()

	go c.writePump()
	c.readPump()
}

type operation struct {
	cancel context.CancelFunc
}

// connection is one graphql-transport-ws client. readPump owns inbound
// frames; writePump is the only writer of data frames.
type connection struct {
	h      *WebsocketHandler
	conn   *websocket.Conn
	ctx    context.Context
	cancel context.CancelFunc
	send   chan []byte
	done   chan struct{}
	once   sync.Once
	logger *slog.Logger

	mu           sync.Mutex
	session      *entity.Session
	initReceived bool
	acked        bool
	operations   map[string]*operation
}

func (c *connection) isAcknowledged() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.acked
}

func (c *connection) shutdown() {
	c.once.Do(func() {
		close(c.done)
		c.cancel()
		c.conn.Close()
	})
}

// closeWith sends a close frame with code and tears the connection down.
func (c *connection) closeWith(code int, reason string) {
	c.logger.Debug("closing websocket", "code", code, "reason", reason)
	msg := websocket.FormatCloseMessage(code, reason)
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	c.shutdown()
}

func (c *connection) readPump() {
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("websocket read failed", "error", err)
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.closeWith(CloseBadRequest, "Invalid message received")
			return
		}
		if !c.handle(msg) {
			return
		}
	}
}

// handle processes one client message and reports whether the connection
// stays open.
func (c *connection) handle(msg Message) bool {
	switch msg.Type {
	case TypeConnectionInit:
		return c.handleInit(msg)
	case TypePing:
		c.write(Message{Type: TypePong, Payload: msg.Payload})
	case TypePong:
	case TypeSubscribe:
		return c.handleSubscribe(msg)
	case TypeComplete:
		c.mu.Lock()
		op, ok := c.operations[msg.ID]
		delete(c.operations, msg.ID)
		c.mu.Unlock()
		if ok {
			op.cancel()
		}
	default:
		c.closeWith(CloseBadRequest, "Invalid message received")
		return false
	}
	return true
}

func (c *connection) handleInit(msg Message) bool {
	c.mu.Lock()
	if c.initReceived {
		c.mu.Unlock()
		c.closeWith(CloseTooManyInitRequests, "Too many initialisation requests")
		return false
	}
	c.initReceived = true
	c.mu.Unlock()

	var payload InitPayload
	if len(msg.Payload) > 0 && string(msg.Payload) != "null" {
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			c.closeWith(CloseBadRequest, "Invalid connection_init payload")
			return false
		}
	}

	credential := payload.Authorization
	if credential == "" {
		credential = payload.Token
	}
	token, err := session.BearerToken(credential)
	if err != nil {
		c.closeWith(CloseForbidden, "Forbidden")
		return false
	}

	var s *entity.Session
	if token != "" {
		s, err = c.h.sessions.Resolve(c.ctx, token)
		if err != nil {
			c.logger.Info("rejecting websocket credentials", "error", err)
			c.closeWith(CloseForbidden, "Forbidden")
			return false
		}
	}

	c.mu.Lock()
	if s != nil {
		c.session = s
	}
	c.acked = true
	c.mu.Unlock()

	c.write(Message{Type: TypeConnectionAck})
	return true
}

func (c *connection) handleSubscribe(msg Message) bool {
	if !c.isAcknowledged() {
		c.closeWith(CloseUnauthorized, "Unauthorized")
		return false
	}
	if msg.ID == "" {
		c.closeWith(CloseBadRequest, "Invalid message received")
		return false
	}

	var payload SubscribePayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil || payload.Query == "" {
		c.closeWith(CloseBadRequest, "Invalid subscribe payload")
		return false
	}

	c.mu.Lock()
	if _, exists := c.operations[msg.ID]; exists {
		c.mu.Unlock()
		c.closeWith(CloseSubscriberExists, fmt.Sprintf("Subscriber for %s already exists", msg.ID))
		return false
	}
	ctx, cancel := context.WithCancel(session.NewContext(c.ctx, c.session))
	op := &operation{cancel: cancel}
	c.operations[msg.ID] = op
	c.mu.Unlock()

	go c.run(ctx, msg.ID, op, payload)
	return true
}

// run executes one operation and streams its results. An operation that
// fails before producing any data gets a single error frame; otherwise
// complete is sent unless the client completed the operation itself.
func (c *connection) run(ctx context.Context, id string, op *operation, payload SubscribePayload) {
	defer op.cancel()

	results, err := c.h.executor.Subscribe(ctx, payload.Query, payload.OperationName, payload.Variables)
	if err != nil {
		c.fail(id, op, []ErrorPayload{{Message: err.Error()}})
		return
	}

	first := true
	for r := range results {
		if first {
			first = false
			if resp, ok := r.(*graphql.Response); ok && len(resp.Errors) > 0 && !hasData(resp) {
				c.fail(id, op, resp.Errors)
				return
			}
		}
		c.next(id, r)
	}

	if c.finish(id, op) {
		c.write(Message{ID: id, Type: TypeComplete})
	}
}

func hasData(resp *graphql.Response) bool {
	return len(resp.Data) > 0 && string(resp.Data) != "null"
}

func (c *connection) next(id string, result interface{}) {
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("encoding operation result", "id", id, "error", err)
		return
	}
	c.write(Message{ID: id, Type: TypeNext, Payload: data})
}

// fail sends errs as the terminal error frame of op.
func (c *connection) fail(id string, op *operation, errs interface{}) {
	if !c.finish(id, op) {
		return
	}
	payload, err := json.Marshal(errs)
	if err != nil {
		c.logger.Error("encoding operation errors", "id", id, "error", err)
		return
	}
	c.write(Message{ID: id, Type: TypeError, Payload: payload})
}

// finish unregisters op and reports whether it was still registered.
func (c *connection) finish(id string, op *operation) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.operations[id] != op {
		return false
	}
	delete(c.operations, id)
	return true
}

func (c *connection) write(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.logger.Error("encoding websocket message", "type", msg.Type, "error", err)
		return
	}
	select {
	case c.send <- data:
	case <-c.done:
	}
}

func (c *connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.shutdown()
	}()

	for {
		select {
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Debug("websocket write failed", "error", err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
