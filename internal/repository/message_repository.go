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

var ErrMessageNotFound = errors.New("message not found")

type MessageRepository interface {
	Get(ctx context.Context, messageId string) (entity.Message, error)
	Create(ctx context.Context, message entity.Message) (string, error)

	// ListByConversation returns the page of most recent messages,
	// newest first.
	ListByConversation(ctx context.Context, conversationId string, limit, offset int) ([]entity.Message, error)

	// ListSince returns every message strictly after the cursor,
	// ordered (createdAt, _id) ascending.
	ListSince(ctx context.Context, conversationId string, cursor entity.MessageCursor) ([]entity.Message, error)

	// MarkAllRead flips isRead on every unread message addressed to
	// receiverId and returns how many were flipped.
	MarkAllRead(ctx context.Context, conversationId, receiverId string, at time.Time) (int64, error)

	// ListReadStatuses returns, for the given ids, those that are now
	// read.
	ListReadStatuses(ctx context.Context, conversationId string, messageIds []string) ([]entity.ReadStatusUpdate, error)

	// CountUnread re-derives a participant's unread count from the
	// ledger. Consistency check only; the live counter lives on the
	// conversation document.
	CountUnread(ctx context.Context, conversationId, receiverId string) (int64, error)
}

type messageRepository struct {
	db *mongo.Database
}

func NewMessageRepository(db *mongo.Database) MessageRepository {
	return &messageRepository{
		db: db,
	}
}

func (r *messageRepository) Get(ctx context.Context, messageId string) (entity.Message, error) {
	collection := r.db.Collection("messages")
	filter := bson.M{"_id": messageId}

	var message entity.Message
	err := collection.FindOne(ctx, filter).Decode(&message)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return entity.Message{}, ErrMessageNotFound
		}
		return entity.Message{}, err
	}

	return message, nil
}

func (r *messageRepository) Create(ctx context.Context, message entity.Message) (string, error) {
	collection := r.db.Collection("messages")

	// UUIDv7 is time-ordered, so ids assigned later sort later. That
	// makes (createdAt, _id) a total order even when two messages land
	// on the same timestamp.
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	message.Id = id.String()

	if _, err := collection.InsertOne(ctx, message); err != nil {
		return "", err
	}

	return message.Id, nil
}

func (r *messageRepository) ListByConversation(ctx context.Context, conversationId string, limit, offset int) ([]entity.Message, error) {
	collection := r.db.Collection("messages")
	filter := bson.M{"conversationId": conversationId}

	opts := options.Find()
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	if offset > 0 {
		opts.SetSkip(int64(offset))
	}
	opts.SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}

	var messages []entity.Message
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, err
	}

	return messages, nil
}

func (r *messageRepository) ListSince(ctx context.Context, conversationId string, since entity.MessageCursor) ([]entity.Message, error) {
	collection := r.db.Collection("messages")

	filter := bson.M{
		"conversationId": conversationId,
		"$or": bson.A{
			bson.M{"createdAt": bson.M{"$gt": since.CreatedAt}},
			bson.M{"createdAt": since.CreatedAt, "_id": bson.M{"$gt": since.Id}},
		},
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}

	var messages []entity.Message
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, err
	}

	return messages, nil
}

func (r *messageRepository) MarkAllRead(ctx context.Context, conversationId, receiverId string, at time.Time) (int64, error) {
	collection := r.db.Collection("messages")
	filter := bson.M{
		"conversationId": conversationId,
		"receiverId":     receiverId,
		"isRead":         false,
	}

	update := bson.M{
		"$set": bson.M{
			"isRead": true,
			"readAt": at,
		},
	}

	result, err := collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}

	return result.ModifiedCount, nil
}

func (r *messageRepository) ListReadStatuses(ctx context.Context, conversationId string, messageIds []string) ([]entity.ReadStatusUpdate, error) {
	if len(messageIds) == 0 {
		return nil, nil
	}

	collection := r.db.Collection("messages")
	filter := bson.M{
		"conversationId": conversationId,
		"_id":            bson.M{"$in": messageIds},
		"isRead":         true,
	}

	cursor, err := collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}

	var messages []entity.Message
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, err
	}

	updates := make([]entity.ReadStatusUpdate, 0, len(messages))
	for _, m := range messages {
		updates = append(updates, entity.ReadStatusUpdate{
			MessageId: m.Id,
			IsRead:    m.IsRead,
			ReadAt:    m.ReadAt,
		})
	}

	return updates, nil
}

func (r *messageRepository) CountUnread(ctx context.Context, conversationId, receiverId string) (int64, error) {
	collection := r.db.Collection("messages")
	filter := bson.M{
		"conversationId": conversationId,
		"receiverId":     receiverId,
		"isRead":         false,
	}

	return collection.CountDocuments(ctx, filter)
}
