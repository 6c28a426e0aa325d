package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"pairtalk/internal/entity"
	"pairtalk/internal/repository"
	"pairtalk/pkg/metrics"
)

var (
	ErrBlocked        = errors.New("conversation is blocked")
	ErrInvalidPayload = errors.New("message payload is invalid")
)

type MessageUsecase interface {
	// Send appends a message to the conversation ledger. The receiver
	// is always the other participant; the conversation's last-message
	// pointer and the receiver's unread counter are updated atomically.
	Send(ctx context.Context, conversationId, senderId string, payload entity.MessagePayload) (entity.Message, error)

	// List returns one page of the conversation's history in ascending
	// order for display. Reading a page never marks anything read.
	List(ctx context.Context, conversationId, userId string, page, pageSize int) ([]entity.Message, error)

	// GetSince returns every message after the cursor, ascending.
	// Feeding the last returned element back as the next cursor yields
	// the full sequence with no gaps and no duplicates.
	GetSince(ctx context.Context, conversationId, userId string, since entity.MessageCursor) ([]entity.Message, error)

	// MarkAsRead flips every unread message addressed to userId and
	// zeroes the unread counter. Idempotent.
	MarkAsRead(ctx context.Context, conversationId, userId string) error

	// GetReadStatusUpdates reports which of the given messages have
	// transitioned to read, so a sender can poll only its own pending
	// set.
	GetReadStatusUpdates(ctx context.Context, conversationId, userId string, messageIds []string) ([]entity.ReadStatusUpdate, error)
}

type messageUsecase struct {
	messageRepo      repository.MessageRepository
	conversationRepo repository.ConversationRepository
	maxContentLength int
}

func NewMessageUsecase(messageRepo repository.MessageRepository, conversationRepo repository.ConversationRepository, maxContentLength int) MessageUsecase {
	return &messageUsecase{
		messageRepo:      messageRepo,
		conversationRepo: conversationRepo,
		maxContentLength: maxContentLength,
	}
}

func (m *messageUsecase) Send(ctx context.Context, conversationId, senderId string, payload entity.MessagePayload) (entity.Message, error) {
	if err := m.validatePayload(payload); err != nil {
		return entity.Message{}, err
	}

	conversation, err := m.conversationRepo.Get(ctx, conversationId)
	if err != nil {
		return entity.Message{}, err
	}
	if !conversation.HasParticipant(senderId) {
		return entity.Message{}, ErrNotParticipant
	}
	if conversation.SendingBlocked() {
		return entity.Message{}, ErrBlocked
	}

	message := entity.Message{
		ConversationId: conversationId,
		SenderId:       senderId,
		ReceiverId:     conversation.OtherParticipant(senderId),
		Type:           payload.Type,
		Content:        payload.Content,
		ImageUrl:       payload.ImageUrl,
		CreatedAt:      time.Now().UTC(),
	}

	messageId, err := m.messageRepo.Create(ctx, message)
	if err != nil {
		return entity.Message{}, err
	}
	message.Id = messageId

	if err := m.conversationRepo.ApplyMessage(ctx, conversationId, message.Id, message.ReceiverId, message.CreatedAt); err != nil {
		return entity.Message{}, err
	}

	metrics.MessagesTotal.WithLabelValues(string(message.Type)).Inc()

	return message, nil
}

func (m *messageUsecase) List(ctx context.Context, conversationId, userId string, page, pageSize int) ([]entity.Message, error) {
	if err := m.requireParticipant(ctx, conversationId, userId); err != nil {
		return nil, err
	}

	if pageSize <= 0 {
		pageSize = 50
	}
	if page < 0 {
		page = 0
	}

	messages, err := m.messageRepo.ListByConversation(ctx, conversationId, pageSize, page*pageSize)
	if err != nil {
		return nil, err
	}

	// Storage order is newest first; flip for display.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

func (m *messageUsecase) GetSince(ctx context.Context, conversationId, userId string, since entity.MessageCursor) ([]entity.Message, error) {
	if err := m.requireParticipant(ctx, conversationId, userId); err != nil {
		return nil, err
	}

	return m.messageRepo.ListSince(ctx, conversationId, since)
}

func (m *messageUsecase) MarkAsRead(ctx context.Context, conversationId, userId string) error {
	if err := m.requireParticipant(ctx, conversationId, userId); err != nil {
		return err
	}

	now := time.Now().UTC()
	flipped, err := m.messageRepo.MarkAllRead(ctx, conversationId, userId, now)
	if err != nil {
		return err
	}

	if err := m.conversationRepo.ResetUnread(ctx, conversationId, userId, now); err != nil {
		return err
	}

	metrics.MessagesMarkedRead.Add(float64(flipped))

	return nil
}

func (m *messageUsecase) GetReadStatusUpdates(ctx context.Context, conversationId, userId string, messageIds []string) ([]entity.ReadStatusUpdate, error) {
	if err := m.requireParticipant(ctx, conversationId, userId); err != nil {
		return nil, err
	}

	return m.messageRepo.ListReadStatuses(ctx, conversationId, messageIds)
}

func (m *messageUsecase) requireParticipant(ctx context.Context, conversationId, userId string) error {
	conversation, err := m.conversationRepo.Get(ctx, conversationId)
	if err != nil {
		return err
	}
	if !conversation.HasParticipant(userId) {
		return ErrNotParticipant
	}
	return nil
}

func (m *messageUsecase) validatePayload(payload entity.MessagePayload) error {
	switch payload.Type {
	case entity.MessageTypeText:
		if strings.TrimSpace(payload.Content) == "" || payload.ImageUrl != "" {
			return ErrInvalidPayload
		}
		if m.maxContentLength > 0 && len(payload.Content) > m.maxContentLength {
			return ErrInvalidPayload
		}
	case entity.MessageTypeImage:
		if payload.ImageUrl == "" || payload.Content != "" {
			return ErrInvalidPayload
		}
	default:
		return ErrInvalidPayload
	}
	return nil
}
