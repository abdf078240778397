package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"chatql/infrastructure/pubsub"
	"chatql/internal/entity"
)

func sessionFor(id string) *entity.Session {
	return &entity.Session{
		User:    &entity.SessionUser{Id: id, Username: id},
		Expires: time.Now().Add(time.Hour),
	}
}

type fixture struct {
	users         *fakeUserRepo
	conversations *fakeConversationRepo
	hub           *pubsub.Hub
	uc            ConversationUsecase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	users := newFakeUserRepo(
		entity.User{Id: "u1", Username: "alice"},
		entity.User{Id: "u2", Username: "bob"},
		entity.User{Id: "u3", Username: "carol"},
	)
	conversations := newFakeConversationRepo(users)
	hub := pubsub.NewHub(discardLogger())
	go hub.Run()
	t.Cleanup(func() { hub.Close() })

	return &fixture{
		users:         users,
		conversations: conversations,
		hub:           hub,
		uc:            NewConversationUsecase(conversations, users, hub, discardLogger()),
	}
}

func next(t *testing.T, ch <-chan entity.Conversation) entity.Conversation {
	t.Helper()
	select {
	case c, ok := <-ch:
		if !ok {
			t.Fatal("stream closed")
		}
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for conversation")
	}
	return entity.Conversation{}
}

func silent(t *testing.T, ch <-chan entity.Conversation) {
	t.Helper()
	select {
	case c, ok := <-ch:
		if ok {
			t.Fatalf("unexpected delivery of %s", c.Id)
		}
	case <-time.After(100 * time.Millisecond):
	}
}

func TestCreateMarksOnlyCreatorAsSeen(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.uc.Create(ctx, sessionFor("u1"), []string{"u1", "u2"})
	if err != nil {
		t.Fatal(err)
	}

	conv, err := f.conversations.Get(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if len(conv.Participants) != 2 {
		t.Fatalf("expected 2 participants, got %d", len(conv.Participants))
	}
	want := map[string]bool{"u1": true, "u2": false}
	for _, p := range conv.Participants {
		if p.HasSeenLatestMessage != want[p.UserId] {
			t.Errorf("participant %s: hasSeen=%v", p.UserId, p.HasSeenLatestMessage)
		}
	}
}

func TestCreateCollapsesDuplicates(t *testing.T) {
	f := newFixture(t)
	id, err := f.uc.Create(context.Background(), sessionFor("u1"), []string{"u2", "u1", "u2", ""})
	if err != nil {
		t.Fatal(err)
	}
	conv, _ := f.conversations.Get(context.Background(), id)
	if got := conv.ParticipantUserIds(); len(got) != 2 || got[0] != "u2" || got[1] != "u1" {
		t.Fatalf("participants = %v", got)
	}
}

func TestCreateRejections(t *testing.T) {
	tests := []struct {
		name    string
		session *entity.Session
		ids     []string
		wantErr error
	}{
		{name: "no session", session: nil, ids: []string{"u1"}, wantErr: ErrNotAuthorized},
		{name: "session without user", session: &entity.Session{}, ids: []string{"u1"}, wantErr: ErrNotAuthorized},
		{
			name:    "expired session",
			session: &entity.Session{User: &entity.SessionUser{Id: "u1"}, Expires: time.Now().Add(-time.Minute)},
			ids:     []string{"u1"},
			wantErr: ErrNotAuthorized,
		},
		{name: "empty list", session: sessionFor("u1"), ids: nil, wantErr: ErrInvalidParticipants},
		{name: "unknown user", session: sessionFor("u1"), ids: []string{"u1", "ghost"}, wantErr: ErrUnknownParticipants},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.uc.Create(context.Background(), tt.session, tt.ids)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if n := len(f.conversations.conversations); n != 0 {
				t.Fatalf("expected no conversations written, got %d", n)
			}
		})
	}
}

func TestCreateWrapsStoreError(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("connection refused")
	f.conversations.createErr = boom

	_, err := f.uc.Create(context.Background(), sessionFor("u1"), []string{"u1"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
}

func TestIndexReturnsOnlyOwnConversations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mine, _ := f.uc.Create(ctx, sessionFor("u1"), []string{"u1", "u2"})
	_, _ = f.uc.Create(ctx, sessionFor("u2"), []string{"u2", "u3"})

	got, err := f.uc.Index(ctx, sessionFor("u1"))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Id != mine {
		t.Fatalf("unexpected conversations %+v", got)
	}

	if _, err := f.uc.Index(ctx, nil); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
}

func TestMarkAsRead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id, _ := f.uc.Create(ctx, sessionFor("u1"), []string{"u1", "u2"})

	if err := f.uc.MarkAsRead(ctx, sessionFor("u2"), "u2", id); err != nil {
		t.Fatal(err)
	}
	conv, _ := f.conversations.Get(ctx, id)
	p, _ := conv.Participant("u2")
	if !p.HasSeenLatestMessage {
		t.Fatal("expected u2 to have seen the latest message")
	}
}

func TestMarkAsReadOnBehalfOfAnotherParticipant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id, _ := f.uc.Create(ctx, sessionFor("u1"), []string{"u1", "u2"})

	if err := f.uc.MarkAsRead(ctx, sessionFor("u1"), "u2", id); err != nil {
		t.Fatal(err)
	}
	conv, _ := f.conversations.Get(ctx, id)
	p, _ := conv.Participant("u2")
	if !p.HasSeenLatestMessage {
		t.Fatal("expected u2 to have seen the latest message")
	}
}

func TestMarkAsReadRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id, _ := f.uc.Create(ctx, sessionFor("u1"), []string{"u1", "u2"})

	tests := []struct {
		name           string
		session        *entity.Session
		userId, convId string
		wantErr        error
	}{
		{name: "no session", session: nil, userId: "u2", convId: id, wantErr: ErrNotAuthorized},
		{name: "not a participant", session: sessionFor("u3"), userId: "u3", convId: id, wantErr: ErrParticipantNotFound},
		{name: "unknown conversation", session: sessionFor("u2"), userId: "u2", convId: "nope", wantErr: ErrParticipantNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.uc.MarkAsRead(ctx, tt.session, tt.userId, tt.convId)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			conv, _ := f.conversations.Get(ctx, id)
			p, _ := conv.Participant("u2")
			if p.HasSeenLatestMessage {
				t.Fatal("participant was mutated")
			}
		})
	}
}

func TestSubscribeCreatedDeliversToParticipantsOnly(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	u2, err := f.uc.SubscribeCreated(ctx, sessionFor("u2"))
	if err != nil {
		t.Fatal(err)
	}
	u3, err := f.uc.SubscribeCreated(ctx, sessionFor("u3"))
	if err != nil {
		t.Fatal(err)
	}

	id, err := f.uc.Create(ctx, sessionFor("u1"), []string{"u1", "u2"})
	if err != nil {
		t.Fatal(err)
	}

	got := next(t, u2)
	if got.Id != id || len(got.Participants) != 2 {
		t.Fatalf("unexpected conversation %+v", got)
	}
	if got.Participants[0].User.Username != "alice" {
		t.Fatalf("expected populated participant user, got %+v", got.Participants[0].User)
	}
	silent(t, u3)
}

func TestSubscribeUpdatedAfterMarkAsRead(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	id, _ := f.uc.Create(ctx, sessionFor("u1"), []string{"u1", "u2"})

	updates, err := f.uc.SubscribeUpdated(ctx, sessionFor("u1"))
	if err != nil {
		t.Fatal(err)
	}
	if err := f.uc.MarkAsRead(ctx, sessionFor("u2"), "u2", id); err != nil {
		t.Fatal(err)
	}

	got := next(t, updates)
	p, _ := got.Participant("u2")
	if got.Id != id || !p.HasSeenLatestMessage {
		t.Fatalf("unexpected update %+v", got)
	}
}

func TestSubscribeRequiresSession(t *testing.T) {
	f := newFixture(t)
	if _, err := f.uc.SubscribeCreated(context.Background(), nil); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
	if _, err := f.uc.SubscribeUpdated(context.Background(), &entity.Session{}); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
}

func TestSubscribeEndsWhenSessionExpires(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	session := &entity.Session{
		User:    &entity.SessionUser{Id: "u2"},
		Expires: time.Now().Add(150 * time.Millisecond),
	}
	stream, err := f.uc.SubscribeCreated(ctx, session)
	if err != nil {
		t.Fatal(err)
	}

	time.Sleep(200 * time.Millisecond)
	if _, err := f.uc.Create(ctx, sessionFor("u1"), []string{"u1", "u2"}); err != nil {
		t.Fatal(err)
	}

	select {
	case c, ok := <-stream:
		if ok {
			t.Fatalf("expected stream to close, got %s", c.Id)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("stream was not terminated")
	}

	// The hub drops the subscriber while ctx is still live.
	deadline := time.Now().Add(2 * time.Second)
	for f.hub.SubscriberCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("hub still has %d subscribers", f.hub.SubscriberCount())
		}
		time.Sleep(10 * time.Millisecond)
	}
}
