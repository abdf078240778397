// Package subscription decides which subscribers receive a broadcast
// conversation event.
//
// Events are broadcast to every subscriber of a topic and filtered at
// delivery: a subscriber sees an event only if it is a participant of the
// conversation the event is about.
package subscription

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"chatql/infrastructure/pubsub"
	"chatql/internal/entity"
)

// CanDeliver reports whether the holder of session may receive an event
// about a conversation with the given participants. A missing or expired
// session is an error, not a false.
func CanDeliver(session *entity.Session, participants []entity.ConversationParticipant, now time.Time) (bool, error) {
	if !session.Active(now) {
		return false, entity.ErrNotAuthorized
	}
	userId := session.UserId()
	for _, p := range participants {
		if p.UserId == userId {
			return true, nil
		}
	}
	return false, nil
}

// Predicate admits or denies one event. An error ends the stream.
type Predicate func(pubsub.Event) (bool, error)

// ParticipantFilter decodes conversation events and admits them for the
// participants of the conversation only.
func ParticipantFilter(session *entity.Session) Predicate {
	return func(ev pubsub.Event) (bool, error) {
		var payload entity.ConversationEvent
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			return false, fmt.Errorf("decoding %s event: %w", ev.Topic, err)
		}
		return CanDeliver(session, payload.Conversation.Participants, time.Now())
	}
}

// Filter forwards the events admitted by pred. The returned channel is
// closed when in is closed, ctx is done, or pred fails.
func Filter(ctx context.Context, in <-chan pubsub.Event, pred Predicate, logger *slog.Logger) <-chan pubsub.Event {
	out := make(chan pubsub.Event)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-in:
				if !ok {
					return
				}
				deliver, err := pred(ev)
				if err != nil {
					logger.Warn("subscription filter failed, closing stream", "topic", ev.Topic, "error", err)
					return
				}
				if !deliver {
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}
