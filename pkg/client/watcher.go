package client

import (
	"context"
	"sync"
	"time"

	"pairtalk/internal/entity"
	"pairtalk/pkg/logger"
	"pairtalk/pkg/poller"
)

// ThreadWatcher keeps one open conversation fresh: a new-message loop
// on a (createdAt, id) cursor, and a read-status loop that polls only
// the watcher's outstanding sent-but-unread message ids. Both loops
// stop when Close is called, so navigating away from a conversation
// leaves no background requests behind.
type ThreadWatcher struct {
	client         *Client
	conversationId string

	mu      sync.Mutex
	cursor  entity.MessageCursor
	pending map[string]bool

	onMessages    func([]entity.Message)
	onReadUpdates func([]entity.ReadStatusUpdate)

	stopMessages func()
	stopReads    func()
	closeOnce    sync.Once
}

// ThreadWatcherOptions configures a ThreadWatcher. Cursor may be
// pre-seeded from an initial ListMessages page so history is not
// re-delivered.
type ThreadWatcherOptions struct {
	Interval      time.Duration
	Cursor        entity.MessageCursor
	OnMessages    func([]entity.Message)
	OnReadUpdates func([]entity.ReadStatusUpdate)
}

// WatchThread starts the two per-conversation polling loops.
func (c *Client) WatchThread(ctx context.Context, conversationId string, log *logger.Logger, opts ThreadWatcherOptions) *ThreadWatcher {
	if opts.Interval <= 0 {
		opts.Interval = 3 * time.Second
	}

	w := &ThreadWatcher{
		client:         c,
		conversationId: conversationId,
		cursor:         opts.Cursor,
		pending:        make(map[string]bool),
		onMessages:     opts.OnMessages,
		onReadUpdates:  opts.OnReadUpdates,
	}

	messageLoop := poller.New("messages", opts.Interval, log, w.pollMessages)
	readLoop := poller.New("read-status", opts.Interval, log, w.pollReadStatus)

	w.stopMessages = messageLoop.Start(ctx)
	w.stopReads = readLoop.Start(ctx)

	return w
}

// TrackSent registers a message this side sent, so the read-status
// loop polls for its receipt until it is reported read.
func (w *ThreadWatcher) TrackSent(message entity.Message) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending[message.Id] = true
}

// Cursor returns the current position of the new-message loop.
func (w *ThreadWatcher) Cursor() entity.MessageCursor {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cursor
}

// Close cancels both loops and waits for in-flight polls.
func (w *ThreadWatcher) Close() {
	w.closeOnce.Do(func() {
		w.stopMessages()
		w.stopReads()
	})
}

func (w *ThreadWatcher) pollMessages(ctx context.Context) error {
	w.mu.Lock()
	cursor := w.cursor
	w.mu.Unlock()

	messages, err := w.client.GetNewMessages(ctx, w.conversationId, cursor)
	if err != nil {
		return err
	}
	if len(messages) == 0 {
		return nil
	}

	w.mu.Lock()
	// Only advance past the previous position: a slow response racing
	// a newer one must not rewind the cursor.
	last := messages[len(messages)-1]
	if w.cursor.Before(last) {
		w.cursor.Advance(last)
	}
	w.mu.Unlock()

	if w.onMessages != nil {
		w.onMessages(messages)
	}
	return nil
}

func (w *ThreadWatcher) pollReadStatus(ctx context.Context) error {
	w.mu.Lock()
	if len(w.pending) == 0 {
		w.mu.Unlock()
		return nil
	}
	ids := make([]string, 0, len(w.pending))
	for id := range w.pending {
		ids = append(ids, id)
	}
	w.mu.Unlock()

	updates, err := w.client.GetReadStatusUpdates(ctx, w.conversationId, ids)
	if err != nil {
		return err
	}
	if len(updates) == 0 {
		return nil
	}

	w.mu.Lock()
	for _, update := range updates {
		if update.IsRead {
			delete(w.pending, update.MessageId)
		}
	}
	w.mu.Unlock()

	if w.onReadUpdates != nil {
		w.onReadUpdates(updates)
	}
	return nil
}

// ListWatcher keeps the conversation list fresh while the list view is
// shown. Its cursor is the highest updatedAt seen, so a conversation
// whose only change was an unread reset still shows up in the next
// delta.
type ListWatcher struct {
	client *Client

	mu    sync.Mutex
	since time.Time

	onConversations func([]entity.ConversationView)

	stop      func()
	closeOnce sync.Once
}

type ListWatcherOptions struct {
	Interval        time.Duration
	OnConversations func([]entity.ConversationView)
}

// WatchList starts the conversation-list polling loop. The first poll
// fetches the full list (zero cursor); later polls fetch deltas.
func (c *Client) WatchList(ctx context.Context, log *logger.Logger, opts ListWatcherOptions) *ListWatcher {
	if opts.Interval <= 0 {
		opts.Interval = 10 * time.Second
	}

	w := &ListWatcher{
		client:          c,
		onConversations: opts.OnConversations,
	}

	loop := poller.New("conversation-list", opts.Interval, log, w.poll)
	w.stop = loop.Start(ctx)

	return w
}

func (w *ListWatcher) Close() {
	w.closeOnce.Do(w.stop)
}

func (w *ListWatcher) poll(ctx context.Context) error {
	w.mu.Lock()
	since := w.since
	w.mu.Unlock()

	var (
		views []entity.ConversationView
		err   error
	)
	if since.IsZero() {
		views, err = w.client.ListConversations(ctx)
	} else {
		views, err = w.client.ListConversationsUpdatedSince(ctx, since)
	}
	if err != nil {
		return err
	}
	if len(views) == 0 {
		return nil
	}

	w.mu.Lock()
	for _, view := range views {
		if view.UpdatedAt.After(w.since) {
			w.since = view.UpdatedAt
		}
	}
	w.mu.Unlock()

	if w.onConversations != nil {
		w.onConversations(views)
	}
	return nil
}
