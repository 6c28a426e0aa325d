package repository

import (
	"context"
	"errors"
	"time"

	"pairtalk/internal/entity"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrConversationExists   = errors.New("conversation already exists for this pair")
)

type ConversationRepository interface {
	Get(ctx context.Context, conversationId string) (entity.Conversation, error)
	GetByPairKey(ctx context.Context, pairKey string) (entity.Conversation, error)
	Create(ctx context.Context, conversation entity.Conversation) (string, error)
	ListByParticipant(ctx context.Context, userId string) ([]entity.Conversation, error)
	ListUpdatedSince(ctx context.Context, userId string, since time.Time) ([]entity.Conversation, error)

	// ApplyMessage records a freshly appended message on the
	// conversation: last-message pointer, updatedAt and the receiver's
	// unread counter, all in a single atomic update.
	ApplyMessage(ctx context.Context, conversationId, messageId, receiverId string, at time.Time) error

	// ResetUnread zeroes one participant's unread counter and bumps
	// updatedAt so sidebar delta polling picks the change up.
	ResetUnread(ctx context.Context, conversationId, userId string, at time.Time) error

	// SetBlocked adds or removes userId from the conversation's
	// blockedBy set.
	SetBlocked(ctx context.Context, conversationId, userId string, blocked bool) error
}

type conversationRepository struct {
	db *mongo.Database
}

func NewConversationRepository(db *mongo.Database) ConversationRepository {
	return &conversationRepository{
		db: db,
	}
}

func (r *conversationRepository) Get(ctx context.Context, conversationId string) (entity.Conversation, error) {
	collection := r.db.Collection("conversations")
	filter := bson.M{"_id": conversationId}

	var conversation entity.Conversation
	err := collection.FindOne(ctx, filter).Decode(&conversation)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return entity.Conversation{}, ErrConversationNotFound
		}
		return entity.Conversation{}, err
	}

	return conversation, nil
}

func (r *conversationRepository) GetByPairKey(ctx context.Context, pairKey string) (entity.Conversation, error) {
	collection := r.db.Collection("conversations")
	filter := bson.M{"pairKey": pairKey}

	var conversation entity.Conversation
	err := collection.FindOne(ctx, filter).Decode(&conversation)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return entity.Conversation{}, ErrConversationNotFound
		}
		return entity.Conversation{}, err
	}

	return conversation, nil
}

// Create inserts a new conversation. The unique index on pairKey turns
// a concurrent insert for the same pair into ErrConversationExists, so
// callers can refetch and converge on the winner.
func (r *conversationRepository) Create(ctx context.Context, conversation entity.Conversation) (string, error) {
	collection := r.db.Collection("conversations")

	conversation.Id = uuid.New().String()
	conversation.PairKey = entity.PairKey(conversation.Participants[0], conversation.Participants[1])
	now := time.Now().UTC()
	conversation.CreatedAt = now
	conversation.UpdatedAt = now
	if conversation.UnreadCount == nil {
		conversation.UnreadCount = map[string]int{}
	}

	_, err := collection.InsertOne(ctx, conversation)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", ErrConversationExists
		}
		return "", err
	}

	return conversation.Id, nil
}

func (r *conversationRepository) ListByParticipant(ctx context.Context, userId string) ([]entity.Conversation, error) {
	collection := r.db.Collection("conversations")
	filter := bson.M{"participants": userId}

	opts := options.Find().SetSort(bson.D{{Key: "lastMessageAt", Value: -1}})

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}

	var conversations []entity.Conversation
	if err := cursor.All(ctx, &conversations); err != nil {
		return nil, err
	}

	return conversations, nil
}

func (r *conversationRepository) ListUpdatedSince(ctx context.Context, userId string, since time.Time) ([]entity.Conversation, error) {
	collection := r.db.Collection("conversations")
	filter := bson.M{
		"participants": userId,
		"updatedAt":    bson.M{"$gt": since},
	}

	opts := options.Find().SetSort(bson.D{{Key: "lastMessageAt", Value: -1}})

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}

	var conversations []entity.Conversation
	if err := cursor.All(ctx, &conversations); err != nil {
		return nil, err
	}

	return conversations, nil
}

func (r *conversationRepository) ApplyMessage(ctx context.Context, conversationId, messageId, receiverId string, at time.Time) error {
	collection := r.db.Collection("conversations")
	filter := bson.M{"_id": conversationId}

	// Single update document: $inc on the counter field, never
	// read-modify-write, so concurrent appends cannot lose increments.
	update := bson.M{
		"$set": bson.M{
			"lastMessageId": messageId,
			"lastMessageAt": at,
			"updatedAt":     at,
		},
		"$inc": bson.M{
			"unreadCount." + receiverId: 1,
		},
	}

	result, err := collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrConversationNotFound
	}

	return nil
}

func (r *conversationRepository) ResetUnread(ctx context.Context, conversationId, userId string, at time.Time) error {
	collection := r.db.Collection("conversations")
	filter := bson.M{"_id": conversationId}

	update := bson.M{
		"$set": bson.M{
			"unreadCount." + userId: 0,
			"updatedAt":             at,
		},
	}

	result, err := collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrConversationNotFound
	}

	return nil
}

func (r *conversationRepository) SetBlocked(ctx context.Context, conversationId, userId string, blocked bool) error {
	collection := r.db.Collection("conversations")
	filter := bson.M{"_id": conversationId}

	var update bson.M
	if blocked {
		update = bson.M{"$addToSet": bson.M{"blockedBy": userId}}
	} else {
		update = bson.M{"$pull": bson.M{"blockedBy": userId}}
	}

	result, err := collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrConversationNotFound
	}

	return nil
}
