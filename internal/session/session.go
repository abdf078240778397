package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"chatql/infrastructure/cache"
	"chatql/internal/entity"
	"chatql/internal/repository"
)

var (
	ErrInvalidAuthorization = errors.New("invalid authorization header format")
	ErrUnknownUser          = errors.New("token subject no longer exists")
)

type contextKey struct{}

// NewContext returns a copy of ctx carrying session.
func NewContext(ctx context.Context, session *entity.Session) context.Context {
	return context.WithValue(ctx, contextKey{}, session)
}

// FromContext returns the session stored in ctx, or nil.
func FromContext(ctx context.Context) *entity.Session {
	s, _ := ctx.Value(contextKey{}).(*entity.Session)
	return s
}

type TokenValidator interface {
	ValidateAccessToken(token string) (*entity.TokenClaims, error)
}

type UserGetter interface {
	Get(ctx context.Context, userId string) (entity.User, error)
}

// Resolver turns access tokens into sessions. User lookups are cached for
// the configured TTL so subscriptions and bursts of requests from one
// client hit the store once.
type Resolver struct {
	tokens TokenValidator
	users  UserGetter
	cache  *cache.MemCache[entity.SessionUser]
}

func NewResolver(tokens TokenValidator, users UserGetter, cacheTTL time.Duration) *Resolver {
	return &Resolver{
		tokens: tokens,
		users:  users,
		cache:  cache.NewMemCache[entity.SessionUser](cacheTTL, cacheTTL),
	}
}

// Resolve validates token and loads the session user.
func (r *Resolver) Resolve(ctx context.Context, token string) (*entity.Session, error) {
	claims, err := r.tokens.ValidateAccessToken(token)
	if err != nil {
		return nil, err
	}

	user, ok := r.cache.Get(claims.UserId)
	if !ok {
		u, err := r.users.Get(ctx, claims.UserId)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				return nil, ErrUnknownUser
			}
			return nil, fmt.Errorf("loading session user: %w", err)
		}
		user = entity.SessionUser{
			Id:            u.Id,
			Username:      u.Username,
			Email:         u.Email,
			EmailVerified: u.EmailVerified,
			Name:          u.Name,
			Image:         u.Image,
		}
		r.cache.Set(claims.UserId, user)
	}

	return &entity.Session{User: &user, Expires: claims.ExpiresAt}, nil
}

// FromHeader resolves an Authorization header value of the form
// "Bearer <token>". An empty header yields a nil session and no error.
func (r *Resolver) FromHeader(ctx context.Context, header string) (*entity.Session, error) {
	token, err := BearerToken(header)
	if err != nil || token == "" {
		return nil, err
	}
	return r.Resolve(ctx, token)
}

// Forget drops the cached user so the next Resolve reloads it.
func (r *Resolver) Forget(userId string) {
	r.cache.Delete(userId)
}

func (r *Resolver) Close() {
	r.cache.Close()
}

// BearerToken extracts the token from an Authorization header value. A
// bare token without the scheme is accepted.
func BearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", nil
	}
	parts := strings.Fields(header)
	switch {
	case len(parts) == 1:
		return parts[0], nil
	case len(parts) == 2 && strings.EqualFold(parts[0], "Bearer"):
		return parts[1], nil
	}
	return "", ErrInvalidAuthorization
}
