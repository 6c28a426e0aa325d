package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"pairtalk/internal/entity"
	"pairtalk/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// threadServer is a minimal in-memory sync backend for watcher tests:
// it serves the cursor endpoint from a message slice and the
// read-status endpoint from a set of read ids.
type threadServer struct {
	mu       sync.Mutex
	messages []entity.Message
	readIds  map[string]bool
}

func newThreadServer() *threadServer {
	return &threadServer{readIds: make(map[string]bool)}
}

func (s *threadServer) append(id string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, entity.Message{
		Id:             id,
		ConversationId: "c1",
		SenderId:       "alice",
		ReceiverId:     "bob",
		Type:           entity.MessageTypeText,
		Content:        "m",
		CreatedAt:      at,
	})
}

func (s *threadServer) markRead(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readIds[id] = true
}

func (s *threadServer) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/conversations/c1/messages/sync":
			var cursor entity.MessageCursor
			if v := r.URL.Query().Get("since"); v != "" {
				at, err := time.Parse(time.RFC3339Nano, v)
				require.NoError(t, err)
				cursor.CreatedAt = at
			}
			cursor.Id = r.URL.Query().Get("sinceId")

			s.mu.Lock()
			batch := []entity.Message{}
			for _, m := range s.messages {
				if cursor.Before(m) {
					batch = append(batch, m)
				}
			}
			s.mu.Unlock()
			respond(t, w, http.StatusOK, "success", batch)

		case "/conversations/c1/read-status":
			var body struct {
				MessageIds []string `json:"messageIds"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

			s.mu.Lock()
			updates := []entity.ReadStatusUpdate{}
			for _, id := range body.MessageIds {
				if s.readIds[id] {
					now := time.Now().UTC()
					updates = append(updates, entity.ReadStatusUpdate{
						MessageId: id,
						IsRead:    true,
						ReadAt:    &now,
					})
				}
			}
			s.mu.Unlock()
			respond(t, w, http.StatusOK, "success", updates)

		default:
			respond(t, w, http.StatusNotFound, "not found", nil)
		}
	})
}

func TestThreadWatcherAdvancesCursor(t *testing.T) {
	server := newThreadServer()
	base := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	server.append("m1", base)
	server.append("m2", base.Add(time.Second))

	srv := httptest.NewServer(server.handler(t))
	defer srv.Close()

	received := make(chan entity.Message, 16)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watcher := New(srv.URL, "t").WatchThread(ctx, "c1", logger.NewNop(), ThreadWatcherOptions{
		Interval: 10 * time.Millisecond,
		OnMessages: func(messages []entity.Message) {
			for _, m := range messages {
				received <- m
			}
		},
	})
	defer watcher.Close()

	expect := func(id string) {
		t.Helper()
		select {
		case m := <-received:
			assert.Equal(t, id, m.Id)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %s", id)
		}
	}

	expect("m1")
	expect("m2")

	// Messages arriving after the initial backlog are picked up, and
	// already-delivered ones are not repeated.
	server.append("m3", base.Add(2*time.Second))
	expect("m3")

	select {
	case m := <-received:
		t.Fatalf("unexpected duplicate delivery of %s", m.Id)
	case <-time.After(50 * time.Millisecond):
	}

	cursor := watcher.Cursor()
	assert.Equal(t, "m3", cursor.Id)
	assert.True(t, cursor.CreatedAt.Equal(base.Add(2*time.Second)))
}

func TestThreadWatcherDrainsPendingReads(t *testing.T) {
	server := newThreadServer()
	srv := httptest.NewServer(server.handler(t))
	defer srv.Close()

	updates := make(chan entity.ReadStatusUpdate, 16)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watcher := New(srv.URL, "t").WatchThread(ctx, "c1", logger.NewNop(), ThreadWatcherOptions{
		Interval: 10 * time.Millisecond,
		OnReadUpdates: func(batch []entity.ReadStatusUpdate) {
			for _, u := range batch {
				updates <- u
			}
		},
	})
	defer watcher.Close()

	watcher.TrackSent(entity.Message{Id: "m1"})
	watcher.TrackSent(entity.Message{Id: "m2"})

	// Nothing is read yet, so no updates arrive.
	select {
	case u := <-updates:
		t.Fatalf("unexpected read update for %s", u.MessageId)
	case <-time.After(50 * time.Millisecond):
	}

	server.markRead("m1")

	select {
	case u := <-updates:
		assert.Equal(t, "m1", u.MessageId)
		assert.True(t, u.IsRead)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for read update")
	}

	// m1 is dropped from the pending set, so it is not reported again;
	// m2 stays pending until it is read.
	select {
	case u := <-updates:
		t.Fatalf("unexpected repeat update for %s", u.MessageId)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestListWatcherUsesDeltaCursor(t *testing.T) {
	base := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)

	var mu sync.Mutex
	views := []entity.ConversationView{
		{Id: "c1", UnreadCount: 1, UpdatedAt: base},
	}
	var fullListCalls, deltaCalls int

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/conversations", r.URL.Path)
		mu.Lock()
		defer mu.Unlock()

		raw := r.URL.Query().Get("updatedSince")
		if raw == "" {
			fullListCalls++
			respond(t, w, http.StatusOK, "success", views)
			return
		}
		deltaCalls++
		since, err := time.Parse(time.RFC3339Nano, raw)
		require.NoError(t, err)
		delta := []entity.ConversationView{}
		for _, v := range views {
			if v.UpdatedAt.After(since) {
				delta = append(delta, v)
			}
		}
		respond(t, w, http.StatusOK, "success", delta)
	}))
	defer srv.Close()

	received := make(chan entity.ConversationView, 16)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watcher := New(srv.URL, "t").WatchList(ctx, logger.NewNop(), ListWatcherOptions{
		Interval: 10 * time.Millisecond,
		OnConversations: func(batch []entity.ConversationView) {
			for _, v := range batch {
				received <- v
			}
		},
	})
	defer watcher.Close()

	select {
	case v := <-received:
		assert.Equal(t, "c1", v.Id)
		assert.Equal(t, 1, v.UnreadCount)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for initial list")
	}

	// The conversation changes again, e.g. its unread counter was
	// reset; the delta picks it up even though no message was sent.
	mu.Lock()
	views[0].UnreadCount = 0
	views[0].UpdatedAt = base.Add(time.Second)
	mu.Unlock()

	select {
	case v := <-received:
		assert.Equal(t, "c1", v.Id)
		assert.Equal(t, 0, v.UnreadCount)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for delta")
	}

	mu.Lock()
	assert.Equal(t, 1, fullListCalls)
	assert.Positive(t, deltaCalls)
	mu.Unlock()
}
