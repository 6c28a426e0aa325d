package usecase

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"sync"
	"time"

	"pairtalk/internal/entity"
	"pairtalk/internal/repository"

	"github.com/google/uuid"
)

// In-memory repository fakes. Mutations hold a single mutex per fake
// so the concurrency tests exercise the same converge-on-conflict
// behavior the Mongo unique index provides.

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]entity.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]entity.User)}
}

func (r *fakeUserRepo) Get(_ context.Context, userId string) (entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[userId]
	if !ok {
		return entity.User{}, repository.ErrUserNotFound
	}
	return user, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return entity.User{}, repository.ErrUserNotFound
}

func (r *fakeUserRepo) Index(_ context.Context, filter entity.UserIndexFilter) ([]entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var users []entity.User
	for _, id := range filter.Ids {
		if user, ok := r.users[id]; ok {
			users = append(users, user)
		}
	}
	return users, nil
}

func (r *fakeUserRepo) Create(_ context.Context, user entity.User) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user.Id == "" {
		user.Id = uuid.New().String()
	}
	r.users[user.Id] = user
	return user.Id, nil
}

func (r *fakeUserRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	_, err := r.GetByEmail(ctx, email)
	if err == repository.ErrUserNotFound {
		return false, nil
	}
	return err == nil, err
}

func (r *fakeUserRepo) UsernameExists(_ context.Context, username string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeUserRepo) Search(_ context.Context, query string, limit int) ([]entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pattern := regexp.MustCompile("(?i)" + regexp.QuoteMeta(query))
	var users []entity.User
	for _, user := range r.users {
		if pattern.MatchString(user.Username) || pattern.MatchString(user.Name) {
			users = append(users, user)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	if limit > 0 && len(users) > limit {
		users = users[:limit]
	}
	return users, nil
}

func (r *fakeUserRepo) add(id, username string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[id] = entity.User{
		Id:       id,
		Username: username,
		Email:    username + "@example.com",
		Name:     "User " + username,
	}
}

type fakeConversationRepo struct {
	mu     sync.Mutex
	byId   map[string]entity.Conversation
	byPair map[string]string
}

func newFakeConversationRepo() *fakeConversationRepo {
	return &fakeConversationRepo{
		byId:   make(map[string]entity.Conversation),
		byPair: make(map[string]string),
	}
}

func (r *fakeConversationRepo) Get(_ context.Context, conversationId string) (entity.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conversation, ok := r.byId[conversationId]
	if !ok {
		return entity.Conversation{}, repository.ErrConversationNotFound
	}
	return cloneConversation(conversation), nil
}

func (r *fakeConversationRepo) GetByPairKey(_ context.Context, pairKey string) (entity.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byPair[pairKey]
	if !ok {
		return entity.Conversation{}, repository.ErrConversationNotFound
	}
	return cloneConversation(r.byId[id]), nil
}

func (r *fakeConversationRepo) Create(_ context.Context, conversation entity.Conversation) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pairKey := entity.PairKey(conversation.Participants[0], conversation.Participants[1])
	if _, exists := r.byPair[pairKey]; exists {
		return "", repository.ErrConversationExists
	}

	conversation.Id = uuid.New().String()
	conversation.PairKey = pairKey
	now := time.Now().UTC()
	conversation.CreatedAt = now
	conversation.UpdatedAt = now
	if conversation.UnreadCount == nil {
		conversation.UnreadCount = map[string]int{}
	}

	r.byId[conversation.Id] = conversation
	r.byPair[pairKey] = conversation.Id
	return conversation.Id, nil
}

func (r *fakeConversationRepo) ListByParticipant(_ context.Context, userId string) ([]entity.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var conversations []entity.Conversation
	for _, conversation := range r.byId {
		if conversation.HasParticipant(userId) {
			conversations = append(conversations, cloneConversation(conversation))
		}
	}
	sort.Slice(conversations, func(i, j int) bool {
		return conversations[i].LastMessageAt.After(conversations[j].LastMessageAt)
	})
	return conversations, nil
}

func (r *fakeConversationRepo) ListUpdatedSince(_ context.Context, userId string, since time.Time) ([]entity.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var conversations []entity.Conversation
	for _, conversation := range r.byId {
		if conversation.HasParticipant(userId) && conversation.UpdatedAt.After(since) {
			conversations = append(conversations, cloneConversation(conversation))
		}
	}
	sort.Slice(conversations, func(i, j int) bool {
		return conversations[i].LastMessageAt.After(conversations[j].LastMessageAt)
	})
	return conversations, nil
}

func (r *fakeConversationRepo) ApplyMessage(_ context.Context, conversationId, messageId, receiverId string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	conversation, ok := r.byId[conversationId]
	if !ok {
		return repository.ErrConversationNotFound
	}
	conversation = cloneConversation(conversation)
	conversation.LastMessageId = messageId
	conversation.LastMessageAt = at
	conversation.UpdatedAt = at
	conversation.UnreadCount[receiverId]++
	r.byId[conversationId] = conversation
	return nil
}

func (r *fakeConversationRepo) ResetUnread(_ context.Context, conversationId, userId string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	conversation, ok := r.byId[conversationId]
	if !ok {
		return repository.ErrConversationNotFound
	}
	conversation = cloneConversation(conversation)
	conversation.UnreadCount[userId] = 0
	conversation.UpdatedAt = at
	r.byId[conversationId] = conversation
	return nil
}

func (r *fakeConversationRepo) SetBlocked(_ context.Context, conversationId, userId string, blocked bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	conversation, ok := r.byId[conversationId]
	if !ok {
		return repository.ErrConversationNotFound
	}
	conversation = cloneConversation(conversation)
	var blockedBy []string
	for _, b := range conversation.BlockedBy {
		if b != userId {
			blockedBy = append(blockedBy, b)
		}
	}
	if blocked {
		blockedBy = append(blockedBy, userId)
	}
	conversation.BlockedBy = blockedBy
	r.byId[conversationId] = conversation
	return nil
}

func cloneConversation(c entity.Conversation) entity.Conversation {
	out := c
	out.Participants = append([]string(nil), c.Participants...)
	out.BlockedBy = append([]string(nil), c.BlockedBy...)
	out.UnreadCount = make(map[string]int, len(c.UnreadCount))
	for k, v := range c.UnreadCount {
		out.UnreadCount[k] = v
	}
	return out
}

type fakeMessageRepo struct {
	mu       sync.Mutex
	messages []entity.Message
	seq      int
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{}
}

func (r *fakeMessageRepo) Get(_ context.Context, messageId string) (entity.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.messages {
		if m.Id == messageId {
			return m, nil
		}
	}
	return entity.Message{}, repository.ErrMessageNotFound
}

func (r *fakeMessageRepo) Create(_ context.Context, message entity.Message) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	// Zero-padded sequence mirrors the time-ordered UUIDv7 property:
	// later ids sort later as strings.
	message.Id = fmt.Sprintf("msg-%06d", r.seq)
	r.messages = append(r.messages, message)
	return message.Id, nil
}

func (r *fakeMessageRepo) ListByConversation(_ context.Context, conversationId string, limit, offset int) ([]entity.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	messages := r.filter(conversationId, func(entity.Message) bool { return true })
	sort.Slice(messages, func(i, j int) bool {
		if !messages[i].CreatedAt.Equal(messages[j].CreatedAt) {
			return messages[i].CreatedAt.After(messages[j].CreatedAt)
		}
		return messages[i].Id > messages[j].Id
	})
	if offset >= len(messages) {
		return nil, nil
	}
	messages = messages[offset:]
	if limit > 0 && len(messages) > limit {
		messages = messages[:limit]
	}
	return messages, nil
}

func (r *fakeMessageRepo) ListSince(_ context.Context, conversationId string, since entity.MessageCursor) ([]entity.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	messages := r.filter(conversationId, since.Before)
	sort.Slice(messages, func(i, j int) bool {
		if !messages[i].CreatedAt.Equal(messages[j].CreatedAt) {
			return messages[i].CreatedAt.Before(messages[j].CreatedAt)
		}
		return messages[i].Id < messages[j].Id
	})
	return messages, nil
}

func (r *fakeMessageRepo) MarkAllRead(_ context.Context, conversationId, receiverId string, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var flipped int64
	for i := range r.messages {
		m := &r.messages[i]
		if m.ConversationId == conversationId && m.ReceiverId == receiverId && !m.IsRead {
			readAt := at
			m.IsRead = true
			m.ReadAt = &readAt
			flipped++
		}
	}
	return flipped, nil
}

func (r *fakeMessageRepo) ListReadStatuses(_ context.Context, conversationId string, messageIds []string) ([]entity.ReadStatusUpdate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wanted := make(map[string]bool, len(messageIds))
	for _, id := range messageIds {
		wanted[id] = true
	}
	var updates []entity.ReadStatusUpdate
	for _, m := range r.messages {
		if m.ConversationId == conversationId && wanted[m.Id] && m.IsRead {
			updates = append(updates, entity.ReadStatusUpdate{
				MessageId: m.Id,
				IsRead:    true,
				ReadAt:    m.ReadAt,
			})
		}
	}
	return updates, nil
}

func (r *fakeMessageRepo) CountUnread(_ context.Context, conversationId, receiverId string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, m := range r.messages {
		if m.ConversationId == conversationId && m.ReceiverId == receiverId && !m.IsRead {
			count++
		}
	}
	return count, nil
}

func (r *fakeMessageRepo) filter(conversationId string, keep func(entity.Message) bool) []entity.Message {
	var out []entity.Message
	for _, m := range r.messages {
		if m.ConversationId == conversationId && keep(m) {
			out = append(out, m)
		}
	}
	return out
}
