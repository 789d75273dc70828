package models

import "time"

const (
	SubscriptionStatusActive            = "active"
	SubscriptionStatusIncomplete        = "incomplete"
	SubscriptionStatusIncompleteExpired = "incomplete_expired"
	SubscriptionStatusTrialing          = "trialing"
	SubscriptionStatusPastDue           = "past_due"
	SubscriptionStatusCanceled          = "canceled"
	SubscriptionStatusUnpaid            = "unpaid"
)

// Subscription mirrors a Stripe subscription object. It is a durable local
// copy, not the source of truth: the provider is authoritative and webhook
// reconciliation overwrites whatever the orchestration layer wrote
// optimistically. Rows are never hard-deleted, only moved to canceled.
type Subscription struct {
	ID                   uint       `gorm:"primaryKey" json:"id"`
	UserID               uint       `gorm:"not null;index" json:"user_id"`
	StripeCustomerID     string     `gorm:"type:varchar(191);not null;index" json:"stripe_customer_id"`
	StripeSubscriptionID string     `gorm:"type:varchar(191);not null;uniqueIndex" json:"stripe_subscription_id"`
	PriceID              string     `gorm:"type:varchar(191);not null" json:"price_id"`
	Status               string     `gorm:"type:varchar(32);not null;index" json:"status"`
	CurrentPeriodStart   *time.Time `gorm:"type:timestamp;default:null" json:"current_period_start,omitempty"`
	CurrentPeriodEnd     *time.Time `gorm:"type:timestamp;default:null" json:"current_period_end,omitempty"`
	CancelAtPeriodEnd    bool       `gorm:"default:false" json:"cancel_at_period_end"`
	LatestInvoiceID      string     `gorm:"type:varchar(191);default:''" json:"latest_invoice_id"`
	CreatedAt            time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// OccupiesUserSlot reports whether this row counts against the
// one-subscription-per-user invariant.
func (s *Subscription) OccupiesUserSlot() bool {
	switch s.Status {
	case SubscriptionStatusActive, SubscriptionStatusTrialing, SubscriptionStatusIncomplete:
		return true
	default:
		return false
	}
}
