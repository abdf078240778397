package mongo

import (
	"context"
	"errors"
	"time"

	"chatql/internal/entity"
	"chatql/internal/repository"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type ConversationRepository struct {
	db    *mongo.Database
	users *UserRepository
}

func NewConversationRepository(db *mongo.Database, users *UserRepository) *ConversationRepository {
	return &ConversationRepository{db: db, users: users}
}

// Index returns all conversations a user is participating in
func (r *ConversationRepository) Index(ctx context.Context, userId string) ([]entity.Conversation, error) {
	collection := r.db.Collection(conversationsCollection)

	lookupStage := bson.D{{Key: "$lookup", Value: bson.D{
		{Key: "from", Value: participantsCollection},
		{Key: "localField", Value: "_id"},
		{Key: "foreignField", Value: "conversationId"},
		{Key: "as", Value: "participants"},
	}}}
	matchStage := bson.D{{Key: "$match", Value: bson.D{
		{Key: "participants.userId", Value: userId},
	}}}
	sortStage := bson.D{{Key: "$sort", Value: bson.D{{Key: "updatedAt", Value: -1}}}}
	projectStage := bson.D{{Key: "$project", Value: bson.D{{Key: "participants", Value: 0}}}}

	cursor, err := collection.Aggregate(ctx, mongo.Pipeline{lookupStage, matchStage, sortStage, projectStage})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var convs []conversationDocument
	if err := cursor.All(ctx, &convs); err != nil {
		return nil, err
	}

	return r.populate(ctx, convs)
}

func (r *ConversationRepository) Get(ctx context.Context, conversationId string) (entity.Conversation, error) {
	var doc conversationDocument
	err := r.db.Collection(conversationsCollection).FindOne(ctx, bson.M{"_id": conversationId}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return entity.Conversation{}, repository.ErrConversationNotFound
		}
		return entity.Conversation{}, err
	}

	convs, err := r.populate(ctx, []conversationDocument{doc})
	if err != nil {
		return entity.Conversation{}, err
	}
	return convs[0], nil
}

// Create inserts the conversation then its participants. Mongo offers no
// cross-collection atomicity without a replica set, so a failed participant
// insert removes the conversation again.
func (r *ConversationRepository) Create(ctx context.Context, participants []entity.NewParticipant) (entity.Conversation, error) {
	now := time.Now()
	conv := conversationDocument{
		Id:        uuid.New().String(),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := r.db.Collection(conversationsCollection).InsertOne(ctx, conv); err != nil {
		return entity.Conversation{}, err
	}

	if len(participants) > 0 {
		docs := make([]interface{}, 0, len(participants))
		for _, p := range participants {
			docs = append(docs, participantDocument{
				Id:                   uuid.New().String(),
				ConversationId:       conv.Id,
				UserId:               p.UserId,
				HasSeenLatestMessage: p.HasSeenLatestMessage,
				CreatedAt:            now,
				UpdatedAt:            now,
			})
		}
		if _, err := r.db.Collection(participantsCollection).InsertMany(ctx, docs); err != nil {
			_, _ = r.db.Collection(conversationsCollection).DeleteOne(ctx, bson.M{"_id": conv.Id})
			_, _ = r.db.Collection(participantsCollection).DeleteMany(ctx, bson.M{"conversationId": conv.Id})
			return entity.Conversation{}, err
		}
	}

	return r.Get(ctx, conv.Id)
}

func (r *ConversationRepository) GetParticipantByUserAndConversation(ctx context.Context, userId, conversationId string) (entity.ConversationParticipant, error) {
	filter := bson.M{
		"userId":         userId,
		"conversationId": conversationId,
	}

	var doc participantDocument
	err := r.db.Collection(participantsCollection).FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return entity.ConversationParticipant{}, repository.ErrParticipantNotFound
		}
		return entity.ConversationParticipant{}, err
	}

	users, err := r.users.summaries(ctx, []string{doc.UserId})
	if err != nil {
		return entity.ConversationParticipant{}, err
	}
	return doc.toEntity(users), nil
}

func (r *ConversationRepository) MarkParticipantAsRead(ctx context.Context, participantId string) error {
	update := bson.M{
		"$set": bson.M{
			"hasSeenLatestMessage": true,
			"updatedAt":            time.Now(),
		},
	}

	res, err := r.db.Collection(participantsCollection).UpdateOne(ctx, bson.M{"_id": participantId}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repository.ErrParticipantNotFound
	}
	return nil
}

// populate loads participants, latest messages and every referenced user
// for convs.
func (r *ConversationRepository) populate(ctx context.Context, convs []conversationDocument) ([]entity.Conversation, error) {
	if len(convs) == 0 {
		return []entity.Conversation{}, nil
	}

	convIds := make([]string, 0, len(convs))
	var messageIds []string
	for _, c := range convs {
		convIds = append(convIds, c.Id)
		if c.LatestMessageId != nil {
			messageIds = append(messageIds, *c.LatestMessageId)
		}
	}

	var participants []participantDocument
	if err := r.findAll(ctx, participantsCollection, bson.M{"conversationId": bson.M{"$in": convIds}}, &participants); err != nil {
		return nil, err
	}

	var messages []messageDocument
	if len(messageIds) > 0 {
		if err := r.findAll(ctx, messagesCollection, bson.M{"_id": bson.M{"$in": messageIds}}, &messages); err != nil {
			return nil, err
		}
	}

	seen := make(map[string]bool)
	var userIds []string
	addUser := func(id string) {
		if !seen[id] {
			seen[id] = true
			userIds = append(userIds, id)
		}
	}
	for _, p := range participants {
		addUser(p.UserId)
	}
	for _, m := range messages {
		addUser(m.SenderId)
	}

	users, err := r.users.summaries(ctx, userIds)
	if err != nil {
		return nil, err
	}

	return assemble(convs, participants, messages, users), nil
}

func (r *ConversationRepository) findAll(ctx context.Context, collection string, filter bson.M, out interface{}) error {
	cursor, err := r.db.Collection(collection).Find(ctx, filter)
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)
	return cursor.All(ctx, out)
}
