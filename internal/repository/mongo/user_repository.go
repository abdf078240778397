package mongo

import (
	"context"
	"errors"
	"strings"
	"time"

	"chatql/internal/entity"
	"chatql/internal/repository"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type UserRepository struct {
	db *mongo.Database
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Get(ctx context.Context, userId string) (entity.User, error) {
	return r.findOne(ctx, bson.M{"_id": userId})
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (entity.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (entity.User, error) {
	collection := r.db.Collection(usersCollection)

	var doc userDocument
	err := collection.FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return entity.User{}, repository.ErrUserNotFound
		}
		return entity.User{}, err
	}
	return doc.toEntity(), nil
}

func (r *UserRepository) Index(ctx context.Context, filter entity.UserIndexFilter) ([]entity.User, error) {
	collection := r.db.Collection(usersCollection)

	bsonFilter := bson.M{}
	if len(filter.Ids) > 0 {
		bsonFilter["_id"] = bson.M{"$in": filter.Ids}
	}

	opts := options.Find().SetSort(bson.D{{Key: "username", Value: 1}})
	cursor, err := collection.Find(ctx, bsonFilter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []userDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	users := make([]entity.User, 0, len(docs))
	for _, d := range docs {
		users = append(users, d.toEntity())
	}
	return users, nil
}

func (r *UserRepository) Create(ctx context.Context, user entity.User) (string, error) {
	collection := r.db.Collection(usersCollection)
	now := time.Now()
	doc := userDocument{
		Id:            uuid.New().String(),
		Username:      user.Username,
		Email:         user.Email,
		EmailVerified: user.EmailVerified,
		Password:      user.Password,
		Name:          user.Name,
		Image:         user.Image,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if _, err := collection.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			if strings.Contains(err.Error(), "username") {
				return "", repository.ErrUsernameTaken
			}
			return "", repository.ErrEmailTaken
		}
		return "", err
	}
	return doc.Id, nil
}

func (r *UserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, bson.M{"email": email})
}

func (r *UserRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, bson.M{"username": username})
}

func (r *UserRepository) exists(ctx context.Context, filter bson.M) (bool, error) {
	count, err := r.db.Collection(usersCollection).CountDocuments(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *UserRepository) summaries(ctx context.Context, ids []string) (lookup, error) {
	users := make(lookup, len(ids))
	if len(ids) == 0 {
		return users, nil
	}
	found, err := r.Index(ctx, entity.UserIndexFilter{Ids: ids})
	if err != nil {
		return nil, err
	}
	for _, u := range found {
		users[u.Id] = entity.UserSummary{Id: u.Id, Username: u.Username}
	}
	return users, nil
}
