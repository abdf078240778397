package postgres

import (
	"context"
	"errors"
	"fmt"

	"chatql/infrastructure/db"
	"chatql/internal/repository"

	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

type Store struct {
	pg            *db.PostgresStore
	users         *UserRepository
	conversations *ConversationRepository
}

func NewStore(pg *db.PostgresStore) *Store {
	return &Store{
		pg:            pg,
		users:         NewUserRepository(pg.DB),
		conversations: NewConversationRepository(pg.DB),
	}
}

// Migrate creates or updates the schema.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.pg.DB.WithContext(ctx).AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}
	return nil
}

func (s *Store) Users() repository.UserRepository                 { return s.users }
func (s *Store) Conversations() repository.ConversationRepository { return s.conversations }
func (s *Store) Ping(ctx context.Context) error                   { return s.pg.Ping(ctx) }
func (s *Store) Close(ctx context.Context) error                  { return s.pg.Close(ctx) }

func uniqueConstraint(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return pgErr.ConstraintName, true
	}
	return "", false
}
