package usecase

import (
	"context"
	"errors"
	"time"

	"pairtalk/internal/entity"
	"pairtalk/internal/repository"
	"pairtalk/pkg/metrics"
)

var (
	ErrInvalidParticipant = errors.New("participant does not exist")
	ErrSelfConversation   = errors.New("cannot start a conversation with yourself")
	ErrNotParticipant     = errors.New("you are not a participant of this conversation")
)

type ConversationUsecase interface {
	// GetOrCreate resolves the single conversation for the unordered
	// pair, creating it on first use. Concurrent calls for the same
	// pair converge on one conversation.
	GetOrCreate(ctx context.Context, userId, otherUserId string) (entity.Conversation, error)

	List(ctx context.Context, userId string) ([]entity.ConversationView, error)

	// ListUpdatedSince returns the conversations whose updatedAt is
	// newer than since. Includes conversations whose only change was
	// an unread-count reset.
	ListUpdatedSince(ctx context.Context, userId string, since time.Time) ([]entity.ConversationView, error)

	// ToggleBlock flips the acting user's membership in blockedBy and
	// returns the new state for that user.
	ToggleBlock(ctx context.Context, conversationId, userId string) (bool, error)
}

type conversationUsecase struct {
	conversationRepo repository.ConversationRepository
	userRepo         repository.UserRepository
}

func NewConversationUsecase(conversationRepo repository.ConversationRepository, userRepo repository.UserRepository) ConversationUsecase {
	return &conversationUsecase{
		conversationRepo: conversationRepo,
		userRepo:         userRepo,
	}
}

func (c *conversationUsecase) GetOrCreate(ctx context.Context, userId, otherUserId string) (entity.Conversation, error) {
	if userId == otherUserId {
		return entity.Conversation{}, ErrSelfConversation
	}

	for _, id := range []string{userId, otherUserId} {
		if _, err := c.userRepo.Get(ctx, id); err != nil {
			if err == repository.ErrUserNotFound {
				return entity.Conversation{}, ErrInvalidParticipant
			}
			return entity.Conversation{}, err
		}
	}

	pairKey := entity.PairKey(userId, otherUserId)

	conversation, err := c.conversationRepo.GetByPairKey(ctx, pairKey)
	if err == nil {
		return conversation, nil
	}
	if err != repository.ErrConversationNotFound {
		return entity.Conversation{}, err
	}

	conversation = entity.Conversation{
		Participants: []string{userId, otherUserId},
		UnreadCount:  map[string]int{},
	}

	_, err = c.conversationRepo.Create(ctx, conversation)
	if err == repository.ErrConversationExists {
		// Lost the insert race; the winner's document is authoritative.
		return c.conversationRepo.GetByPairKey(ctx, pairKey)
	}
	if err != nil {
		return entity.Conversation{}, err
	}

	metrics.ConversationsTotal.Inc()

	return c.conversationRepo.GetByPairKey(ctx, pairKey)
}

func (c *conversationUsecase) List(ctx context.Context, userId string) ([]entity.ConversationView, error) {
	conversations, err := c.conversationRepo.ListByParticipant(ctx, userId)
	if err != nil {
		return nil, err
	}

	return c.buildViews(ctx, userId, conversations)
}

func (c *conversationUsecase) ListUpdatedSince(ctx context.Context, userId string, since time.Time) ([]entity.ConversationView, error) {
	conversations, err := c.conversationRepo.ListUpdatedSince(ctx, userId, since)
	if err != nil {
		return nil, err
	}

	return c.buildViews(ctx, userId, conversations)
}

func (c *conversationUsecase) ToggleBlock(ctx context.Context, conversationId, userId string) (bool, error) {
	conversation, err := c.conversationRepo.Get(ctx, conversationId)
	if err != nil {
		return false, err
	}
	if !conversation.HasParticipant(userId) {
		return false, ErrNotParticipant
	}

	blocked := !conversation.IsBlockedBy(userId)
	if err := c.conversationRepo.SetBlocked(ctx, conversationId, userId, blocked); err != nil {
		return false, err
	}

	if blocked {
		metrics.BlockTogglesTotal.WithLabelValues("blocked").Inc()
	} else {
		metrics.BlockTogglesTotal.WithLabelValues("unblocked").Inc()
	}

	return blocked, nil
}

// buildViews annotates conversations for one participant, resolving
// the counterpart user summaries in a single batch.
func (c *conversationUsecase) buildViews(ctx context.Context, userId string, conversations []entity.Conversation) ([]entity.ConversationView, error) {
	otherIdSet := make(map[string]bool)
	for _, conversation := range conversations {
		if otherId := conversation.OtherParticipant(userId); otherId != "" {
			otherIdSet[otherId] = true
		}
	}

	userMap := make(map[string]entity.User)
	if len(otherIdSet) > 0 {
		otherIds := make([]string, 0, len(otherIdSet))
		for id := range otherIdSet {
			otherIds = append(otherIds, id)
		}

		users, err := c.userRepo.Index(ctx, entity.UserIndexFilter{Ids: otherIds})
		if err != nil {
			return nil, err
		}
		for _, user := range users {
			userMap[user.Id] = user
		}
	}

	views := make([]entity.ConversationView, 0, len(conversations))
	for _, conversation := range conversations {
		otherId := conversation.OtherParticipant(userId)
		views = append(views, entity.ConversationView{
			Id:               conversation.Id,
			OtherUser:        userMap[otherId].Summary(),
			LastMessageId:    conversation.LastMessageId,
			LastMessageAt:    conversation.LastMessageAt,
			UpdatedAt:        conversation.UpdatedAt,
			UnreadCount:      conversation.UnreadCount[userId],
			IsBlocked:        conversation.IsBlockedBy(userId),
			IsBlockedByOther: conversation.IsBlockedBy(otherId),
		})
	}

	return views, nil
}
