package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"pairtalk/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	userRepo *fakeUserRepo
	convRepo *fakeConversationRepo
	msgRepo  *fakeMessageRepo
	convUc   ConversationUsecase
	msgUc    MessageUsecase
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	userRepo := newFakeUserRepo()
	userRepo.add("alice", "alice")
	userRepo.add("bob", "bob")
	userRepo.add("carol", "carol")

	convRepo := newFakeConversationRepo()
	msgRepo := newFakeMessageRepo()

	return &testEnv{
		userRepo: userRepo,
		convRepo: convRepo,
		msgRepo:  msgRepo,
		convUc:   NewConversationUsecase(convRepo, userRepo),
		msgUc:    NewMessageUsecase(msgRepo, convRepo, 5000),
	}
}

func (e *testEnv) conversation(t *testing.T, a, b string) entity.Conversation {
	t.Helper()
	conversation, err := e.convUc.GetOrCreate(context.Background(), a, b)
	require.NoError(t, err)
	return conversation
}

func TestGetOrCreateRejectsSelf(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.convUc.GetOrCreate(context.Background(), "alice", "alice")
	assert.ErrorIs(t, err, ErrSelfConversation)
}

func TestGetOrCreateRejectsUnknownUser(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.convUc.GetOrCreate(context.Background(), "alice", "nobody")
	assert.ErrorIs(t, err, ErrInvalidParticipant)

	_, err = env.convUc.GetOrCreate(context.Background(), "nobody", "alice")
	assert.ErrorIs(t, err, ErrInvalidParticipant)
}

func TestGetOrCreateIsIdempotentAcrossOrder(t *testing.T) {
	env := newTestEnv(t)

	first := env.conversation(t, "alice", "bob")
	second := env.conversation(t, "bob", "alice")

	assert.Equal(t, first.Id, second.Id)
	assert.Empty(t, first.UnreadCount)
}

func TestGetOrCreateConvergesUnderConcurrency(t *testing.T) {
	env := newTestEnv(t)

	const callers = 16
	ids := make([]string, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			a, b := "alice", "bob"
			if n%2 == 1 {
				a, b = b, a
			}
			conversation, err := env.convUc.GetOrCreate(context.Background(), a, b)
			if assert.NoError(t, err) {
				ids[n] = conversation.Id
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestListAnnotatesForCaller(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	conversation := env.conversation(t, "alice", "bob")

	_, err := env.msgUc.Send(ctx, conversation.Id, "alice", entity.MessagePayload{
		Type:    entity.MessageTypeText,
		Content: "hi bob",
	})
	require.NoError(t, err)

	_, err = env.convUc.ToggleBlock(ctx, conversation.Id, "bob")
	require.NoError(t, err)

	bobViews, err := env.convUc.List(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, bobViews, 1)

	view := bobViews[0]
	assert.Equal(t, conversation.Id, view.Id)
	assert.Equal(t, "alice", view.OtherUser.Id)
	assert.Equal(t, 1, view.UnreadCount)
	assert.True(t, view.IsBlocked)
	assert.False(t, view.IsBlockedByOther)

	aliceViews, err := env.convUc.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, aliceViews, 1)

	view = aliceViews[0]
	assert.Equal(t, "bob", view.OtherUser.Id)
	assert.Equal(t, 0, view.UnreadCount)
	assert.False(t, view.IsBlocked)
	assert.True(t, view.IsBlockedByOther)
}

func TestListSortsByLastMessage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	withBob := env.conversation(t, "alice", "bob")
	withCarol := env.conversation(t, "alice", "carol")

	_, err := env.msgUc.Send(ctx, withBob.Id, "bob", entity.MessagePayload{Type: entity.MessageTypeText, Content: "first"})
	require.NoError(t, err)
	time.Sleep(time.Millisecond)
	_, err = env.msgUc.Send(ctx, withCarol.Id, "carol", entity.MessagePayload{Type: entity.MessageTypeText, Content: "second"})
	require.NoError(t, err)

	views, err := env.convUc.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, withCarol.Id, views[0].Id)
	assert.Equal(t, withBob.Id, views[1].Id)
}

func TestListUpdatedSinceIncludesUnreadReset(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	conversation := env.conversation(t, "alice", "bob")

	_, err := env.msgUc.Send(ctx, conversation.Id, "alice", entity.MessagePayload{Type: entity.MessageTypeText, Content: "hello"})
	require.NoError(t, err)

	time.Sleep(time.Millisecond)
	cutoff := time.Now().UTC()

	// Nothing changed since the cutoff yet.
	views, err := env.convUc.ListUpdatedSince(ctx, "bob", cutoff)
	require.NoError(t, err)
	assert.Empty(t, views)

	// A read reset does not touch lastMessageAt, but it must still
	// surface in the delta.
	require.NoError(t, env.msgUc.MarkAsRead(ctx, conversation.Id, "bob"))

	views, err = env.convUc.ListUpdatedSince(ctx, "bob", cutoff)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, 0, views[0].UnreadCount)
}

func TestToggleBlockFlipsPerUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	conversation := env.conversation(t, "alice", "bob")

	blocked, err := env.convUc.ToggleBlock(ctx, conversation.Id, "bob")
	require.NoError(t, err)
	assert.True(t, blocked)

	// Both participants can hold a block at once.
	blocked, err = env.convUc.ToggleBlock(ctx, conversation.Id, "alice")
	require.NoError(t, err)
	assert.True(t, blocked)

	stored, err := env.convRepo.Get(ctx, conversation.Id)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alice", "bob"}, stored.BlockedBy)

	blocked, err = env.convUc.ToggleBlock(ctx, conversation.Id, "bob")
	require.NoError(t, err)
	assert.False(t, blocked)

	stored, err = env.convRepo.Get(ctx, conversation.Id)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, stored.BlockedBy)
}

func TestToggleBlockRequiresParticipant(t *testing.T) {
	env := newTestEnv(t)

	conversation := env.conversation(t, "alice", "bob")

	_, err := env.convUc.ToggleBlock(context.Background(), conversation.Id, "carol")
	assert.ErrorIs(t, err, ErrNotParticipant)
}
