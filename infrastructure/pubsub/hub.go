package pubsub

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

const defaultSubscriberBuffer = 16

type subscriber struct {
	id     string
	topics map[string]struct{}
	send   chan Event
}

func (s *subscriber) wants(topic string) bool {
	_, ok := s.topics[topic]
	return ok
}

// Hub is the in-process Bus. A single Run loop owns the subscriber set,
// so each subscriber sees events in publish order.
type Hub struct {
	subscribers map[string]*subscriber
	broadcast   chan Event
	register    chan *subscriber
	unregister  chan *subscriber
	mu          sync.RWMutex

	done      chan struct{}
	closeOnce sync.Once

	bufferSize int
	logger     *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		subscribers: make(map[string]*subscriber),
		broadcast:   make(chan Event, 256),
		register:    make(chan *subscriber),
		unregister:  make(chan *subscriber),
		done:        make(chan struct{}),
		bufferSize:  defaultSubscriberBuffer,
		logger:      logger,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case sub := <-h.register:
			h.mu.Lock()
			h.subscribers[sub.id] = sub
			h.mu.Unlock()
			h.logger.Debug("subscriber registered", "subscriber", sub.id)

		case sub := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.subscribers[sub.id]; ok {
				delete(h.subscribers, sub.id)
				close(sub.send)
				h.logger.Debug("subscriber unregistered", "subscriber", sub.id)
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			h.deliver(event)

		case <-h.done:
			h.mu.Lock()
			for id, sub := range h.subscribers {
				close(sub.send)
				delete(h.subscribers, id)
			}
			h.mu.Unlock()
			return
		}
	}
}

func (h *Hub) deliver(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, sub := range h.subscribers {
		if !sub.wants(event.Topic) {
			continue
		}
		select {
		case sub.send <- event:
		default:
			h.logger.Warn("dropping event for slow subscriber", "subscriber", id, "topic", event.Topic)
		}
	}
}

func (h *Hub) Publish(ctx context.Context, topic string, payload []byte) error {
	select {
	case h.broadcast <- Event{Topic: topic, Payload: payload}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-h.done:
		return ErrBusClosed
	}
}

func (h *Hub) Subscribe(ctx context.Context, topics ...string) (<-chan Event, error) {
	sub := &subscriber{
		id:     uuid.New().String(),
		topics: make(map[string]struct{}, len(topics)),
		send:   make(chan Event, h.bufferSize),
	}
	for _, t := range topics {
		sub.topics[t] = struct{}{}
	}

	select {
	case h.register <- sub:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-h.done:
		return nil, ErrBusClosed
	}

	go func() {
		select {
		case <-ctx.Done():
			select {
			case h.unregister <- sub:
			case <-h.done:
			}
		case <-h.done:
		}
	}()

	return sub.send, nil
}

func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Close stops the Run loop and closes every subscriber channel.
func (h *Hub) Close() error {
	h.closeOnce.Do(func() {
		close(h.done)
	})
	return nil
}
