package models

import "time"

const (
	TransactionTypeOneTime      = "one_time"
	TransactionTypeSubscription = "subscription"

	TransactionStatusPending   = "pending"
	TransactionStatusSucceeded = "succeeded"
	TransactionStatusFailed    = "failed"
)

// Transaction is one ledger row per payment attempt: a one-off paid-media
// unlock or a subscription invoice. Status is only moved to a terminal state
// by webhook reconciliation; rows are immutable once succeeded or failed.
type Transaction struct {
	ID                    uint      `gorm:"primaryKey" json:"id"`
	Type                  string    `gorm:"type:varchar(20);not null;default:'one_time'" json:"type"`
	MessageID             *uint     `gorm:"index" json:"message_id,omitempty"`
	SenderID              uint      `gorm:"not null;index" json:"sender_id"`
	ReceiverID            *uint     `gorm:"index" json:"receiver_id,omitempty"`
	StripePaymentIntentID string    `gorm:"type:varchar(191);default:'';index" json:"stripe_payment_intent_id"`
	StripeSubscriptionID  string    `gorm:"type:varchar(191);default:''" json:"stripe_subscription_id"`
	StripeInvoiceID       string    `gorm:"type:varchar(191);default:'';index" json:"stripe_invoice_id"`
	Amount                float64   `gorm:"type:decimal(10,2);not null" json:"amount"`
	Currency              string    `gorm:"type:varchar(8);not null;default:'usd'" json:"currency"`
	Status                string    `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`
	Description           string    `gorm:"type:varchar(255);default:''" json:"description"`
	CreatedAt             time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt             time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsTerminal reports whether the ledger row may no longer change.
func (t *Transaction) IsTerminal() bool {
	return t.Status == TransactionStatusSucceeded || t.Status == TransactionStatusFailed
}
