package entity

import "time"

type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeImage MessageType = "image"
)

// Message is an immutable ledger entry, except for the IsRead/ReadAt
// pair which flips once when the receiver marks the conversation read.
// CreatedAt is the ordering key within a conversation; Id is a UUIDv7
// so it breaks CreatedAt ties in assignment order.
type Message struct {
	Id             string      `bson:"_id" json:"id"`
	ConversationId string      `bson:"conversationId" json:"conversationId"`
	SenderId       string      `bson:"senderId" json:"senderId"`
	ReceiverId     string      `bson:"receiverId" json:"receiverId"`
	Type           MessageType `bson:"type" json:"type"`
	Content        string      `bson:"content,omitempty" json:"content,omitempty"`
	ImageUrl       string      `bson:"imageUrl,omitempty" json:"imageUrl,omitempty"`
	IsRead         bool        `bson:"isRead" json:"isRead"`
	ReadAt         *time.Time  `bson:"readAt,omitempty" json:"readAt,omitempty"`
	CreatedAt      time.Time   `bson:"createdAt" json:"createdAt"`
}

// MessagePayload is the tagged send request: Content is meaningful only
// for text messages, ImageUrl only for image messages. The pairing is
// validated in the usecase before anything is persisted.
type MessagePayload struct {
	Type     MessageType `json:"type"`
	Content  string      `json:"content,omitempty"`
	ImageUrl string      `json:"imageUrl,omitempty"`
}

// MessageCursor marks the last message a poller has seen. The zero
// cursor means "from the beginning". Comparison is (CreatedAt, Id)
// lexicographic so two messages sharing a timestamp are still fetched
// exactly once.
type MessageCursor struct {
	CreatedAt time.Time `json:"createdAt"`
	Id        string    `json:"id"`
}

// Before reports whether m sorts strictly after the cursor, i.e. the
// cursor has not seen m yet.
func (c MessageCursor) Before(m Message) bool {
	if m.CreatedAt.After(c.CreatedAt) {
		return true
	}
	return m.CreatedAt.Equal(c.CreatedAt) && m.Id > c.Id
}

// Advance moves the cursor to m.
func (c *MessageCursor) Advance(m Message) {
	c.CreatedAt = m.CreatedAt
	c.Id = m.Id
}

// ReadStatusUpdate reports a message's transition to read, delivered to
// the sender through polling only.
type ReadStatusUpdate struct {
	MessageId string     `json:"messageId"`
	IsRead    bool       `json:"isRead"`
	ReadAt    *time.Time `json:"readAt,omitempty"`
}
