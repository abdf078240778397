package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"chatql/internal/entity"
	"chatql/internal/repository"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]entity.User
	seq   int
}

func newFakeUserRepo(users ...entity.User) *fakeUserRepo {
	r := &fakeUserRepo{users: map[string]entity.User{}}
	for _, u := range users {
		r.users[u.Id] = u
	}
	return r
}

func (r *fakeUserRepo) Get(ctx context.Context, userId string) (entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userId]
	if !ok {
		return entity.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return entity.User{}, repository.ErrUserNotFound
}

func (r *fakeUserRepo) Index(ctx context.Context, filter entity.UserIndexFilter) ([]entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.User
	for _, id := range filter.Ids {
		if u, ok := r.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) Create(ctx context.Context, user entity.User) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	user.Id = fmt.Sprintf("user-%d", r.seq)
	r.users[user.Id] = user
	return user.Id, nil
}

func (r *fakeUserRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	_, err := r.GetByEmail(ctx, email)
	return err == nil, nil
}

func (r *fakeUserRepo) UsernameExists(ctx context.Context, username string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

type fakeConversationRepo struct {
	mu            sync.Mutex
	users         *fakeUserRepo
	conversations map[string]entity.Conversation
	seq           int
	createErr     error
}

func newFakeConversationRepo(users *fakeUserRepo) *fakeConversationRepo {
	return &fakeConversationRepo{users: users, conversations: map[string]entity.Conversation{}}
}

func (r *fakeConversationRepo) Index(ctx context.Context, userId string) ([]entity.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.Conversation
	for _, c := range r.conversations {
		if _, ok := c.Participant(userId); ok {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (r *fakeConversationRepo) Get(ctx context.Context, conversationId string) (entity.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conversations[conversationId]
	if !ok {
		return entity.Conversation{}, repository.ErrConversationNotFound
	}
	return c, nil
}

func (r *fakeConversationRepo) Create(ctx context.Context, participants []entity.NewParticipant) (entity.Conversation, error) {
	if r.createErr != nil {
		return entity.Conversation{}, r.createErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	now := time.Date(2024, 1, 1, 0, 0, r.seq, 0, time.UTC)
	c := entity.Conversation{Id: fmt.Sprintf("conv-%d", r.seq), CreatedAt: now, UpdatedAt: now}
	for i, p := range participants {
		u := r.users.users[p.UserId]
		c.Participants = append(c.Participants, entity.ConversationParticipant{
			Id:                   fmt.Sprintf("%s-p%d", c.Id, i),
			ConversationId:       c.Id,
			UserId:               p.UserId,
			User:                 entity.UserSummary{Id: u.Id, Username: u.Username},
			HasSeenLatestMessage: p.HasSeenLatestMessage,
		})
	}
	r.conversations[c.Id] = c
	return c, nil
}

func (r *fakeConversationRepo) GetParticipantByUserAndConversation(ctx context.Context, userId, conversationId string) (entity.ConversationParticipant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conversations[conversationId]
	if !ok {
		return entity.ConversationParticipant{}, repository.ErrParticipantNotFound
	}
	p, ok := c.Participant(userId)
	if !ok {
		return entity.ConversationParticipant{}, repository.ErrParticipantNotFound
	}
	return p, nil
}

func (r *fakeConversationRepo) MarkParticipantAsRead(ctx context.Context, participantId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, c := range r.conversations {
		for i, p := range c.Participants {
			if p.Id == participantId {
				c.Participants[i].HasSeenLatestMessage = true
				r.conversations[id] = c
				return nil
			}
		}
	}
	return repository.ErrParticipantNotFound
}
