package graphql

import (
	"chatql/internal/entity"

	"github.com/graph-gophers/graphql-go"
)

type conversationResolver struct {
	c entity.Conversation
}

func (r *conversationResolver) ID() graphql.ID { return graphql.ID(r.c.Id) }

func (r *conversationResolver) LatestMessageID() *graphql.ID {
	if r.c.LatestMessageId == nil {
		return nil
	}
	id := graphql.ID(*r.c.LatestMessageId)
	return &id
}

func (r *conversationResolver) LatestMessage() *messageResolver {
	if r.c.LatestMessage == nil {
		return nil
	}
	return &messageResolver{m: *r.c.LatestMessage}
}

func (r *conversationResolver) Participants() []*participantResolver {
	out := make([]*participantResolver, 0, len(r.c.Participants))
	for _, p := range r.c.Participants {
		out = append(out, &participantResolver{p: p})
	}
	return out
}

func (r *conversationResolver) CreatedAt() graphql.Time { return graphql.Time{Time: r.c.CreatedAt} }

func (r *conversationResolver) UpdatedAt() graphql.Time { return graphql.Time{Time: r.c.UpdatedAt} }

type participantResolver struct {
	p entity.ConversationParticipant
}

func (r *participantResolver) ID() graphql.ID { return graphql.ID(r.p.Id) }

func (r *participantResolver) User() *userResolver { return &userResolver{u: r.p.User} }

func (r *participantResolver) HasSeenLatestMessage() bool { return r.p.HasSeenLatestMessage }

type messageResolver struct {
	m entity.Message
}

func (r *messageResolver) ID() graphql.ID { return graphql.ID(r.m.Id) }

func (r *messageResolver) Sender() *userResolver { return &userResolver{u: r.m.Sender} }

func (r *messageResolver) Body() string { return r.m.Body }

func (r *messageResolver) CreatedAt() graphql.Time { return graphql.Time{Time: r.m.CreatedAt} }

type userResolver struct {
	u entity.UserSummary
}

func (r *userResolver) ID() graphql.ID { return graphql.ID(r.u.Id) }

// Username is null for accounts that have not picked one yet.
func (r *userResolver) Username() *string {
	if r.u.Username == "" {
		return nil
	}
	return &r.u.Username
}

type createConversationResponseResolver struct {
	conversationId string
}

func (r *createConversationResponseResolver) ConversationID() string { return r.conversationId }

type conversationUpdatedResolver struct {
	c entity.Conversation
}

func (r *conversationUpdatedResolver) Conversation() *conversationResolver {
	return &conversationResolver{c: r.c}
}
