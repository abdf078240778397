package mongo

import (
	"context"
	"fmt"

	"chatql/infrastructure/db"
	"chatql/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	mongo         *db.MongoStore
	users         *UserRepository
	conversations *ConversationRepository
}

func NewStore(m *db.MongoStore) *Store {
	users := NewUserRepository(m.DB)
	return &Store{
		mongo:         m,
		users:         users,
		conversations: NewConversationRepository(m.DB, users),
	}
}

// Migrate creates the indexes the repositories rely on.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		usersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		participantsCollection: {
			{Keys: bson.D{{Key: "conversationId", Value: 1}, {Key: "userId", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "userId", Value: 1}}},
		},
		conversationsCollection: {
			{Keys: bson.D{{Key: "updatedAt", Value: -1}}},
		},
	}

	for collection, models := range indexes {
		if _, err := s.mongo.DB.Collection(collection).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("creating %s indexes: %w", collection, err)
		}
	}
	return nil
}

func (s *Store) Users() repository.UserRepository                 { return s.users }
func (s *Store) Conversations() repository.ConversationRepository { return s.conversations }
func (s *Store) Ping(ctx context.Context) error                   { return s.mongo.Ping(ctx) }
func (s *Store) Close(ctx context.Context) error                  { return s.mongo.Close(ctx) }
