package models

import "time"

// Conversation is a two-party thread. Participants are stored as an ordered
// pair (UserAID < UserBID) so the same two users always map to one row.
// Deletion is per participant; the row and its messages are removed for real
// only once both sides deleted it.
type Conversation struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserAID     uint      `gorm:"not null;index:ux_conversations_pair,unique,priority:1" json:"user_a_id"`
	UserBID     uint      `gorm:"not null;index:ux_conversations_pair,unique,priority:2" json:"user_b_id"`
	DeletedForA bool      `gorm:"default:false" json:"-"`
	DeletedForB bool      `gorm:"default:false" json:"-"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime;index" json:"updated_at"`
}

// OrderConversationPair returns the two user ids in storage order.
func OrderConversationPair(a, b uint) (uint, uint) {
	if a > b {
		return b, a
	}
	return a, b
}

// HasParticipant reports whether the user is one of the two parties.
func (c *Conversation) HasParticipant(userID uint) bool {
	return c.UserAID == userID || c.UserBID == userID
}

// DeletedFor reports whether the conversation is hidden for the user.
func (c *Conversation) DeletedFor(userID uint) bool {
	if userID == c.UserAID {
		return c.DeletedForA
	}
	if userID == c.UserBID {
		return c.DeletedForB
	}
	return false
}

// Message is a single chat message. Paid media messages carry ImageURL and
// Price and stay IsLocked until the matching transaction succeeds; the
// webhook reconciler is the only writer that clears the lock.
type Message struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	ConversationID   uint      `gorm:"not null;index:idx_messages_conversation_created,priority:1" json:"conversation_id"`
	SenderID         uint      `gorm:"not null;index" json:"sender_id"`
	ReceiverID       uint      `gorm:"not null;index:idx_messages_receiver_read,priority:1" json:"receiver_id"`
	Body             string    `gorm:"type:text" json:"body"`
	ImageURL         string    `gorm:"type:varchar(255);default:''" json:"image_url,omitempty"`
	Price            float64   `gorm:"type:decimal(10,2);default:0" json:"price,omitempty"`
	IsPaidContent    bool      `gorm:"default:false" json:"is_paid_content"`
	IsLocked         bool      `gorm:"default:false;index" json:"is_locked"`
	IsRead           bool      `gorm:"default:false;index:idx_messages_receiver_read,priority:2" json:"is_read"`
	DeletedForSender bool      `gorm:"default:false" json:"-"`
	DeletedForRecv   bool      `gorm:"default:false" json:"-"`
	CreatedAt        time.Time `gorm:"autoCreateTime;index:idx_messages_conversation_created,priority:2" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// DeletedFor reports whether the message is hidden for the user.
func (m *Message) DeletedFor(userID uint) bool {
	if userID == m.SenderID {
		return m.DeletedForSender
	}
	if userID == m.ReceiverID {
		return m.DeletedForRecv
	}
	return false
}
