package models

import "time"

const (
	NotificationTypeFollow      = "follow"
	NotificationTypeLike        = "like"
	NotificationTypeComment     = "comment"
	NotificationTypeMessage     = "message"
	NotificationTypeMediaUnlock = "media_unlock"
	NotificationTypePayment     = "payment"
)

// Notification is delivered to a recipient; Actor is the user whose
// action produced it. ReferenceID points into the table named by Type
// (post, message, transaction).
type Notification struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	RecipientID uint      `gorm:"index:idx_notification_recipient" json:"recipient_id"`
	Recipient   User      `gorm:"foreignKey:RecipientID" json:"-"`
	ActorID     uint      `json:"actor_id"`
	Actor       User      `gorm:"foreignKey:ActorID" json:"actor,omitempty"`
	Type        string    `gorm:"type:varchar(32)" json:"type"`
	Message     string    `gorm:"type:varchar(255)" json:"message"`
	ReferenceID *uint     `json:"reference_id,omitempty"`
	IsRead      bool      `gorm:"default:false;index:idx_notification_recipient" json:"is_read"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}
