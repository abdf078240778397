package pubsub

import (
	"context"
	"errors"
)

var ErrBusClosed = errors.New("event bus is closed")

// Event is one published message. Payload is opaque to the bus.
type Event struct {
	Topic   string
	Payload []byte
}

// Bus broadcasts every published event to all subscribers of its topic.
// Delivery is fire-and-forget: a subscriber that is not keeping up loses
// events rather than slowing publishers down.
type Bus interface {
	Run()
	Publish(ctx context.Context, topic string, payload []byte) error
	// Subscribe returns a channel of events for topics. The channel is
	// closed once ctx is done or the bus is closed.
	Subscribe(ctx context.Context, topics ...string) (<-chan Event, error)
	SubscriberCount() int
	Close() error
}
