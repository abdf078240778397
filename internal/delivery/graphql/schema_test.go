package graphql

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"chatql/internal/entity"
	"chatql/internal/session"
	"chatql/internal/usecase"

	"github.com/graph-gophers/graphql-go"
)

type fakeConversationUc struct {
	conversations []entity.Conversation
	created       []string
	read          [][2]string
	err           error
	stream        chan entity.Conversation
}

func (f *fakeConversationUc) Index(ctx context.Context, s *entity.Session) ([]entity.Conversation, error) {
	if !s.Active(time.Now()) {
		return nil, usecase.ErrNotAuthorized
	}
	return f.conversations, f.err
}

func (f *fakeConversationUc) Create(ctx context.Context, s *entity.Session, ids []string) (string, error) {
	if !s.Active(time.Now()) {
		return "", usecase.ErrNotAuthorized
	}
	if f.err != nil {
		return "", f.err
	}
	f.created = ids
	return "conv-1", nil
}

func (f *fakeConversationUc) MarkAsRead(ctx context.Context, s *entity.Session, userId, conversationId string) error {
	if !s.Active(time.Now()) {
		return usecase.ErrNotAuthorized
	}
	if f.err != nil {
		return f.err
	}
	f.read = append(f.read, [2]string{userId, conversationId})
	return nil
}

func (f *fakeConversationUc) SubscribeCreated(ctx context.Context, s *entity.Session) (<-chan entity.Conversation, error) {
	if !s.Active(time.Now()) {
		return nil, usecase.ErrNotAuthorized
	}
	return f.stream, nil
}

func (f *fakeConversationUc) SubscribeUpdated(ctx context.Context, s *entity.Session) (<-chan entity.Conversation, error) {
	return f.SubscribeCreated(ctx, s)
}

func newTestSchema(uc usecase.ConversationUsecase) *graphql.Schema {
	return NewSchema(uc, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func authed(id string) context.Context {
	return session.NewContext(context.Background(), &entity.Session{
		User:    &entity.SessionUser{Id: id},
		Expires: time.Now().Add(time.Hour),
	})
}

func sample() entity.Conversation {
	msgId := "m1"
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return entity.Conversation{
		Id: "conv-1",
		Participants: []entity.ConversationParticipant{
			{Id: "p1", UserId: "u1", User: entity.UserSummary{Id: "u1", Username: "alice"}, HasSeenLatestMessage: true},
			{Id: "p2", UserId: "u2", User: entity.UserSummary{Id: "u2"}},
		},
		LatestMessageId: &msgId,
		LatestMessage:   &entity.Message{Id: msgId, Body: "hi", Sender: entity.UserSummary{Id: "u1", Username: "alice"}, CreatedAt: at},
		CreatedAt:       at,
		UpdatedAt:       at,
	}
}

const conversationsQuery = `{
  conversations {
    id
    latestMessageId
    latestMessage { id body sender { id username } createdAt }
    participants { id hasSeenLatestMessage user { id username } }
    updatedAt
  }
}`

func TestConversationsQuery(t *testing.T) {
	uc := &fakeConversationUc{conversations: []entity.Conversation{sample()}}
	resp := newTestSchema(uc).Exec(authed("u1"), conversationsQuery, "", nil)
	if len(resp.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", resp.Errors)
	}

	var data struct {
		Conversations []struct {
			ID            string
			LatestMessage struct {
				Body   string
				Sender struct{ Username *string }
			}
			Participants []struct {
				HasSeenLatestMessage bool
				User                 struct{ Username *string }
			}
			UpdatedAt string
		}
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		t.Fatal(err)
	}
	if len(data.Conversations) != 1 {
		t.Fatalf("got %d conversations", len(data.Conversations))
	}
	c := data.Conversations[0]
	if c.ID != "conv-1" || c.LatestMessage.Body != "hi" || *c.LatestMessage.Sender.Username != "alice" {
		t.Fatalf("unexpected conversation %+v", c)
	}
	if !c.Participants[0].HasSeenLatestMessage || c.Participants[1].User.Username != nil {
		t.Fatalf("unexpected participants %+v", c.Participants)
	}
	if c.UpdatedAt != "2024-03-01T12:00:00Z" {
		t.Fatalf("updatedAt = %q", c.UpdatedAt)
	}
}

func TestErrorCodes(t *testing.T) {
	tests := []struct {
		name  string
		ctx   context.Context
		err   error
		query string
		code  string
	}{
		{
			name:  "unauthenticated query",
			ctx:   context.Background(),
			query: `{ conversations { id } }`,
			code:  CodeUnauthenticated,
		},
		{
			name:  "bad input",
			ctx:   authed("u1"),
			err:   usecase.ErrUnknownParticipants,
			query: `mutation { createConversation(participantIds: ["ghost"]) { conversationId } }`,
			code:  CodeBadUserInput,
		},
		{
			name:  "not found",
			ctx:   authed("u1"),
			err:   usecase.ErrParticipantNotFound,
			query: `mutation { markConversationAsRead(userId: "u1", conversationId: "c9") }`,
			code:  CodeNotFound,
		},
		{
			name:  "store failure",
			ctx:   authed("u1"),
			err:   context.DeadlineExceeded,
			query: `{ conversations { id } }`,
			code:  CodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := newTestSchema(&fakeConversationUc{err: tt.err}).Exec(tt.ctx, tt.query, "", nil)
			if len(resp.Errors) != 1 {
				t.Fatalf("expected one error, got %v", resp.Errors)
			}
			if got := resp.Errors[0].Extensions["code"]; got != tt.code {
				t.Fatalf("code = %v, want %s", got, tt.code)
			}
		})
	}
}

func TestUnauthenticatedMessage(t *testing.T) {
	resp := newTestSchema(&fakeConversationUc{}).Exec(context.Background(),
		`mutation { createConversation(participantIds: ["u1"]) { conversationId } }`, "", nil)
	if len(resp.Errors) != 1 || resp.Errors[0].Message != "Not authorized" {
		t.Fatalf("unexpected errors %v", resp.Errors)
	}
}

func TestMutations(t *testing.T) {
	uc := &fakeConversationUc{}
	schema := newTestSchema(uc)

	resp := schema.Exec(authed("u1"),
		`mutation($ids: [String!]!) { createConversation(participantIds: $ids) { conversationId } }`,
		"", map[string]interface{}{"ids": []interface{}{"u1", "u2"}})
	if len(resp.Errors) > 0 {
		t.Fatal(resp.Errors)
	}
	if string(resp.Data) != `{"createConversation":{"conversationId":"conv-1"}}` {
		t.Fatalf("data = %s", resp.Data)
	}
	if len(uc.created) != 2 {
		t.Fatalf("created with %v", uc.created)
	}

	resp = schema.Exec(authed("u2"), `mutation { markConversationAsRead(userId: "u2", conversationId: "conv-1") }`, "", nil)
	if len(resp.Errors) > 0 {
		t.Fatal(resp.Errors)
	}
	if string(resp.Data) != `{"markConversationAsRead":true}` {
		t.Fatalf("data = %s", resp.Data)
	}
	if len(uc.read) != 1 || uc.read[0] != [2]string{"u2", "conv-1"} {
		t.Fatalf("read = %v", uc.read)
	}
}

func TestSubscriptions(t *testing.T) {
	uc := &fakeConversationUc{stream: make(chan entity.Conversation, 1)}
	schema := newTestSchema(uc)

	ctx, cancel := context.WithCancel(authed("u1"))
	defer cancel()

	results, err := schema.Subscribe(ctx, `subscription { conversationUpdated { conversation { id participants { user { id } } } } }`, "", nil)
	if err != nil {
		t.Fatal(err)
	}

	uc.stream <- sample()
	select {
	case r := <-results:
		resp := r.(*graphql.Response)
		if len(resp.Errors) > 0 {
			t.Fatal(resp.Errors)
		}
		want := `{"conversationUpdated":{"conversation":{"id":"conv-1","participants":[{"user":{"id":"u1"}},{"user":{"id":"u2"}}]}}}`
		if string(resp.Data) != want {
			t.Fatalf("data = %s", resp.Data)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out")
	}

	close(uc.stream)
	select {
	case _, ok := <-results:
		if ok {
			t.Fatal("expected subscription to end")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("subscription did not end")
	}
}

func TestSubscriptionWithoutSession(t *testing.T) {
	schema := newTestSchema(&fakeConversationUc{})
	results, err := schema.Subscribe(context.Background(), `subscription { conversationCreated { id } }`, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	r, ok := <-results
	if !ok {
		t.Fatal("expected an error response")
	}
	resp := r.(*graphql.Response)
	if len(resp.Errors) != 1 || resp.Errors[0].Message != "Not authorized" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestSubscribeAnswersQueriesAndMutationsOnce(t *testing.T) {
	uc := &fakeConversationUc{}
	schema := newTestSchema(uc)

	tests := []struct {
		name  string
		query string
		want  string
	}{
		{
			name:  "mutation",
			query: `mutation { createConversation(participantIds: ["u1","u2"]) { conversationId } }`,
			want:  `{"createConversation":{"conversationId":"conv-1"}}`,
		},
		{
			name:  "query",
			query: `{ conversations { id } }`,
			want:  `{"conversations":[]}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := schema.Subscribe(authed("u1"), tt.query, "", nil)
			if err != nil {
				t.Fatal(err)
			}
			resp := (<-results).(*graphql.Response)
			if len(resp.Errors) > 0 || string(resp.Data) != tt.want {
				t.Fatalf("unexpected response %s %v", resp.Data, resp.Errors)
			}
			if _, ok := <-results; ok {
				t.Fatal("expected the result channel to close after one response")
			}
		})
	}
	if len(uc.created) != 2 {
		t.Fatalf("created with %v", uc.created)
	}
}
