package repository

import (
	"time"

	"github.com/fanlink/fanlink/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// paymentRepository implements the PaymentRepository interface
type paymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates a new payment repository instance
func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

// UpsertSubscription writes a subscription mirror row keyed on the provider
// subscription id. Re-applying the same provider state is a no-op, which is
// what makes webhook re-delivery safe.
func (r *paymentRepository) UpsertSubscription(sub *models.Subscription) error {
	if err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "stripe_subscription_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"user_id",
			"stripe_customer_id",
			"price_id",
			"status",
			"current_period_start",
			"current_period_end",
			"cancel_at_period_end",
			"latest_invoice_id",
			"updated_at",
		}),
	}).Create(sub).Error; err != nil {
		return err
	}

	// Ensure ID is populated after upsert.
	return r.db.Where("stripe_subscription_id = ?", sub.StripeSubscriptionID).
		First(sub).Error
}

// GetSubscriptionByProviderID retrieves the mirror row for a provider subscription id
func (r *paymentRepository) GetSubscriptionByProviderID(providerID string) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.Where("stripe_subscription_id = ?", providerID).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// GetSubscriptionsByUserID returns all of a user's subscription rows, newest first
func (r *paymentRepository) GetSubscriptionsByUserID(userID uint) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&subs).Error
	return subs, err
}

// GetSlotSubscriptionForUser returns the subscription occupying the user's
// single slot (active, trialing or incomplete), or ErrRecordNotFound.
func (r *paymentRepository) GetSlotSubscriptionForUser(userID uint) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.Where("user_id = ? AND status IN ?", userID, []string{
		models.SubscriptionStatusActive,
		models.SubscriptionStatusTrialing,
		models.SubscriptionStatusIncomplete,
	}).Order("created_at DESC").First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// HasActiveSubscription reports whether the user has a subscription in a
// paying state (active or trialing).
func (r *paymentRepository) HasActiveSubscription(userID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.Subscription{}).
		Where("user_id = ? AND status IN ?", userID, []string{
			models.SubscriptionStatusActive,
			models.SubscriptionStatusTrialing,
		}).Count(&count).Error
	return count > 0, err
}

// CreateTransaction creates a new ledger row
func (r *paymentRepository) CreateTransaction(tx *models.Transaction) error {
	return r.db.Create(tx).Error
}

// GetTransactionByID retrieves a ledger row by its ID
func (r *paymentRepository) GetTransactionByID(id uint) (*models.Transaction, error) {
	var tx models.Transaction
	err := r.db.First(&tx, id).Error
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// GetTransactionByPaymentIntentID retrieves a ledger row by its provider payment intent id
func (r *paymentRepository) GetTransactionByPaymentIntentID(intentID string) (*models.Transaction, error) {
	var tx models.Transaction
	err := r.db.Where("stripe_payment_intent_id = ?", intentID).First(&tx).Error
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// GetPendingTransactionForMessage returns the pending ledger row for a paid
// message, or ErrRecordNotFound. Used to enforce one pending payment per message.
func (r *paymentRepository) GetPendingTransactionForMessage(messageID uint) (*models.Transaction, error) {
	var tx models.Transaction
	err := r.db.Where("message_id = ? AND status = ?", messageID, models.TransactionStatusPending).
		First(&tx).Error
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// UpdateTransactionStatus moves the ledger row for a payment intent to the
// given status. An absolute overwrite keyed on the intent id: applying the
// same terminal status twice leaves the row unchanged.
func (r *paymentRepository) UpdateTransactionStatus(intentID, status string) error {
	return r.db.Model(&models.Transaction{}).
		Where("stripe_payment_intent_id = ?", intentID).
		Update("status", status).Error
}

// GetTransactionsForUser returns ledger rows where the user is sender or
// receiver, newest first.
func (r *paymentRepository) GetTransactionsForUser(userID uint, offset, limit int) ([]models.Transaction, error) {
	var txs []models.Transaction
	err := r.db.Where("sender_id = ? OR receiver_id = ?", userID, userID).
		Order("created_at DESC").Offset(offset).Limit(limit).Find(&txs).Error
	return txs, err
}

// RecordWebhookEvent inserts the event row unless one with the same
// (provider, provider_event_id) already exists. Returns created=false for
// re-deliveries so the caller can skip processing.
func (r *paymentRepository) RecordWebhookEvent(event *models.WebhookEvent) (bool, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, tx.Error
	}

	created := tx.RowsAffected > 0
	if err := r.db.Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(event).Error; err != nil {
		return false, err
	}
	return created, nil
}

// MarkWebhookEventProcessed stamps the event row with the processing outcome
func (r *paymentRepository) MarkWebhookEventProcessed(provider, providerEventID string, processingErr error) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": "",
	}
	if processingErr != nil {
		updates["processing_error"] = processingErr.Error()
	}
	return r.db.Model(&models.WebhookEvent{}).
		Where("provider = ? AND provider_event_id = ?", provider, providerEventID).
		Updates(updates).Error
}
