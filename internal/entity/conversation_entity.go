package entity

import (
	"strings"
	"time"
)

// Conversation is the durable channel between exactly two users. The
// unordered participant pair is the identity key: PairKey carries the
// sorted pair and a unique index on it guarantees at most one
// conversation per pair.
//
// UnreadCount and the lastMessage fields are denormalized from the
// message ledger. They are mutated only through the two atomic paths
// in ConversationRepository (ApplyMessage, ResetUnread); no other
// write path may touch them.
type Conversation struct {
	Id            string         `bson:"_id" json:"id"`
	Participants  []string       `bson:"participants" json:"participants"`
	PairKey       string         `bson:"pairKey" json:"-"`
	LastMessageId string         `bson:"lastMessageId,omitempty" json:"lastMessageId,omitempty"`
	LastMessageAt time.Time      `bson:"lastMessageAt,omitempty" json:"lastMessageAt,omitempty"`
	UnreadCount   map[string]int `bson:"unreadCount" json:"unreadCount"`
	BlockedBy     []string       `bson:"blockedBy,omitempty" json:"blockedBy,omitempty"`
	CreatedAt     time.Time      `bson:"createdAt" json:"createdAt"`
	// UpdatedAt advances on append and on read-state resets, while
	// LastMessageAt advances on append only. Sidebar delta polling
	// filters on UpdatedAt so an unread-count reset is never missed.
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// PairKey builds the identity key for an unordered user pair.
func PairKey(userA, userB string) string {
	if userA > userB {
		userA, userB = userB, userA
	}
	return userA + "|" + userB
}

func (c Conversation) HasParticipant(userId string) bool {
	for _, p := range c.Participants {
		if p == userId {
			return true
		}
	}
	return false
}

// OtherParticipant returns the counterpart of userId, or "" when
// userId is not a member.
func (c Conversation) OtherParticipant(userId string) string {
	for _, p := range c.Participants {
		if p != userId {
			return p
		}
	}
	return ""
}

func (c Conversation) IsBlockedBy(userId string) bool {
	for _, b := range c.BlockedBy {
		if b == userId {
			return true
		}
	}
	return false
}

// SendingBlocked reports whether sends are disabled. A block recorded
// by either participant stops sending in both directions.
func (c Conversation) SendingBlocked() bool {
	return len(c.BlockedBy) > 0
}

func (c Conversation) String() string {
	return c.Id + " [" + strings.Join(c.Participants, ", ") + "]"
}

// ConversationView is a conversation annotated for one participant.
type ConversationView struct {
	Id               string      `json:"id"`
	OtherUser        UserSummary `json:"otherUser"`
	LastMessageId    string      `json:"lastMessageId,omitempty"`
	LastMessageAt    time.Time   `json:"lastMessageAt,omitempty"`
	UpdatedAt        time.Time   `json:"updatedAt"`
	UnreadCount      int         `json:"unreadCount"`
	IsBlocked        bool        `json:"isBlocked"`
	IsBlockedByOther bool        `json:"isBlockedByOther"`
}
