// Package client is a Go client for the pairtalk HTTP API, including
// the polling loops that keep an open conversation and the
// conversation list fresh without any push channel.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"pairtalk/internal/entity"
)

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New creates a client. token is the bearer access token for every
// request.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type envelope struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(encoded)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode, Message: env.Message}
	}

	if out != nil && len(env.Data) > 0 {
		return json.Unmarshal(env.Data, out)
	}
	return nil
}

func (c *Client) ListConversations(ctx context.Context) ([]entity.ConversationView, error) {
	var views []entity.ConversationView
	err := c.do(ctx, http.MethodGet, "/conversations", nil, nil, &views)
	return views, err
}

func (c *Client) ListConversationsUpdatedSince(ctx context.Context, since time.Time) ([]entity.ConversationView, error) {
	query := url.Values{"updatedSince": {since.Format(time.RFC3339Nano)}}
	var views []entity.ConversationView
	err := c.do(ctx, http.MethodGet, "/conversations", query, nil, &views)
	return views, err
}

func (c *Client) GetOrCreateConversation(ctx context.Context, otherUserId string) (entity.Conversation, error) {
	body := map[string]string{"userId": otherUserId}
	var conversation entity.Conversation
	err := c.do(ctx, http.MethodPost, "/conversations", nil, body, &conversation)
	return conversation, err
}

func (c *Client) ListMessages(ctx context.Context, conversationId string, page, pageSize int) ([]entity.Message, error) {
	query := url.Values{
		"page":     {fmt.Sprint(page)},
		"pageSize": {fmt.Sprint(pageSize)},
	}
	var messages []entity.Message
	err := c.do(ctx, http.MethodGet, "/conversations/"+conversationId+"/messages", query, nil, &messages)
	return messages, err
}

func (c *Client) SendMessage(ctx context.Context, conversationId string, payload entity.MessagePayload) (entity.Message, error) {
	var message entity.Message
	err := c.do(ctx, http.MethodPost, "/conversations/"+conversationId+"/messages", nil, payload, &message)
	return message, err
}

func (c *Client) SendText(ctx context.Context, conversationId, content string) (entity.Message, error) {
	return c.SendMessage(ctx, conversationId, entity.MessagePayload{
		Type:    entity.MessageTypeText,
		Content: content,
	})
}

func (c *Client) SendImage(ctx context.Context, conversationId, imageUrl string) (entity.Message, error) {
	return c.SendMessage(ctx, conversationId, entity.MessagePayload{
		Type:     entity.MessageTypeImage,
		ImageUrl: imageUrl,
	})
}

func (c *Client) GetNewMessages(ctx context.Context, conversationId string, cursor entity.MessageCursor) ([]entity.Message, error) {
	query := url.Values{}
	if !cursor.CreatedAt.IsZero() {
		query.Set("since", cursor.CreatedAt.Format(time.RFC3339Nano))
	}
	if cursor.Id != "" {
		query.Set("sinceId", cursor.Id)
	}
	var messages []entity.Message
	err := c.do(ctx, http.MethodGet, "/conversations/"+conversationId+"/messages/sync", query, nil, &messages)
	return messages, err
}

func (c *Client) MarkAsRead(ctx context.Context, conversationId string) error {
	return c.do(ctx, http.MethodPost, "/conversations/"+conversationId+"/read", nil, nil, nil)
}

func (c *Client) GetReadStatusUpdates(ctx context.Context, conversationId string, messageIds []string) ([]entity.ReadStatusUpdate, error) {
	body := map[string][]string{"messageIds": messageIds}
	var updates []entity.ReadStatusUpdate
	err := c.do(ctx, http.MethodPost, "/conversations/"+conversationId+"/read-status", nil, body, &updates)
	return updates, err
}

func (c *Client) ToggleBlock(ctx context.Context, conversationId string) (bool, error) {
	var result struct {
		IsBlocked bool `json:"isBlocked"`
	}
	err := c.do(ctx, http.MethodPost, "/conversations/"+conversationId+"/block", nil, nil, &result)
	return result.IsBlocked, err
}

func (c *Client) SearchUsers(ctx context.Context, query string) ([]entity.UserSummary, error) {
	values := url.Values{"q": {query}}
	var users []entity.UserSummary
	err := c.do(ctx, http.MethodGet, "/users/search", values, nil, &users)
	return users, err
}
