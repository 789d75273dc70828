package payment

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/fanlink/fanlink/app/models"
	"github.com/fanlink/fanlink/app/repository"
	"github.com/fanlink/fanlink/internal/pkg/apperror"
)

const providerName = "stripe"

// Notifier receives billing side effects worth telling users about.
// Implementations must be best-effort: a notifier failure never fails
// reconciliation.
type Notifier interface {
	PaymentSucceeded(tx *models.Transaction)
	SubscriptionCanceled(userID uint)
}

// Reconciler applies provider webhook events to local billing state. It is
// the only writer of terminal transaction statuses and authoritative
// subscription statuses. Every handler is idempotent under re-delivery;
// out-of-order delivery of period bounds is last-writer-wins by arrival,
// there is no event-timestamp fencing.
type Reconciler struct {
	provider Provider
	payments repository.PaymentRepository
	users    repository.UserRepository
	chat     repository.ChatRepository
	notifier Notifier
}

// NewReconciler wires the reconciler's dependencies. notifier may be nil.
func NewReconciler(provider Provider, payments repository.PaymentRepository, users repository.UserRepository, chat repository.ChatRepository, notifier Notifier) *Reconciler {
	return &Reconciler{
		provider: provider,
		payments: payments,
		users:    users,
		chat:     chat,
		notifier: notifier,
	}
}

// HandleEvent is the single webhook entry point. Signature verification
// runs before any state is touched; a duplicate event id that already
// processed cleanly is acknowledged without reprocessing. Processing errors
// are recorded on the event row and returned so the provider retries.
func (r *Reconciler) HandleEvent(rawBody []byte, signature string) error {
	event, err := r.provider.VerifyAndParseWebhook(rawBody, signature)
	if err != nil {
		return apperror.Wrap(fiber.StatusUnauthorized, "webhook", "invalid webhook signature", err)
	}

	row := &models.WebhookEvent{
		Provider:        providerName,
		ProviderEventID: event.ID,
		EventType:       event.Type,
		PayloadJSON:     string(rawBody),
		SignatureValid:  true,
	}
	created, err := r.payments.RecordWebhookEvent(row)
	if err != nil {
		return fmt.Errorf("record webhook event: %w", err)
	}
	if !created && row.ProcessedAt != nil && row.ProcessingError == "" {
		log.Printf("[webhook] skipping duplicate event %s (%s)", event.ID, event.Type)
		return nil
	}

	procErr := r.apply(event)
	if markErr := r.payments.MarkWebhookEventProcessed(providerName, event.ID, procErr); markErr != nil {
		log.Printf("[webhook] failed to mark event %s processed: %v", event.ID, markErr)
	}
	if procErr != nil {
		return apperror.Wrap(fiber.StatusInternalServerError, "webhook",
			fmt.Sprintf("processing %s failed", event.Type), procErr)
	}
	return nil
}

// apply dispatches one verified event. The switch is the closed set of
// event kinds we act on; anything else is logged and acknowledged.
func (r *Reconciler) apply(event *Event) error {
	switch event.Type {
	case "payment_intent.succeeded":
		return r.onPaymentIntentOutcome(event.Data, models.TransactionStatusSucceeded)
	case "payment_intent.payment_failed":
		return r.onPaymentIntentOutcome(event.Data, models.TransactionStatusFailed)
	case "customer.subscription.created", "customer.subscription.updated":
		return r.onSubscriptionUpserted(event.Data)
	case "customer.subscription.deleted":
		return r.onSubscriptionDeleted(event.Data)
	case "invoice.payment_succeeded":
		return r.onInvoicePaymentSucceeded(event.Data)
	case "invoice.payment_failed":
		return r.onSubscriptionStatusFromInvoice(event.Data, models.SubscriptionStatusPastDue)
	case "invoice.payment_action_required":
		return r.onSubscriptionStatusFromInvoice(event.Data, models.SubscriptionStatusIncomplete)
	default:
		log.Printf("[webhook] ignoring event type %s", event.Type)
		return nil
	}
}

type eventPaymentIntent struct {
	ID string `json:"id"`
}

type eventSubscription struct {
	ID                 string `json:"id"`
	Customer           string `json:"customer"`
	Status             string `json:"status"`
	CurrentPeriodStart int64  `json:"current_period_start"`
	CurrentPeriodEnd   int64  `json:"current_period_end"`
	CancelAtPeriodEnd  bool   `json:"cancel_at_period_end"`
	LatestInvoice      string `json:"latest_invoice"`
	Items              struct {
		Data []struct {
			Price struct {
				ID string `json:"id"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
}

type eventInvoice struct {
	ID            string `json:"id"`
	Customer      string `json:"customer"`
	Subscription  string `json:"subscription"`
	PaymentIntent string `json:"payment_intent"`
	AmountPaid    int64  `json:"amount_paid"`
	Currency      string `json:"currency"`
	PeriodStart   int64  `json:"period_start"`
	PeriodEnd     int64  `json:"period_end"`
}

// onPaymentIntentOutcome moves the matching ledger row to a terminal state.
// On success the paid message, if any, is unlocked. Both writes are
// absolute-state overwrites, so re-applying the same outcome is a no-op.
func (r *Reconciler) onPaymentIntentOutcome(data json.RawMessage, status string) error {
	var pi eventPaymentIntent
	if err := json.Unmarshal(data, &pi); err != nil {
		return fmt.Errorf("parse payment intent: %w", err)
	}

	tx, err := r.payments.GetTransactionByPaymentIntentID(pi.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("[webhook] no transaction for payment intent %s", pi.ID)
			return nil
		}
		return err
	}

	if err := r.payments.UpdateTransactionStatus(pi.ID, status); err != nil {
		return err
	}

	if status == models.TransactionStatusSucceeded {
		if tx.MessageID != nil {
			if err := r.chat.UnlockMessage(*tx.MessageID); err != nil {
				return err
			}
		}
		if r.notifier != nil {
			tx.Status = status
			r.notifier.PaymentSucceeded(tx)
		}
	}
	return nil
}

// onSubscriptionUpserted mirrors the provider subscription object. The
// upsert is keyed on the provider subscription id so redelivery and
// created/updated races collapse onto one row.
func (r *Reconciler) onSubscriptionUpserted(data json.RawMessage) error {
	var es eventSubscription
	if err := json.Unmarshal(data, &es); err != nil {
		return fmt.Errorf("parse subscription: %w", err)
	}

	userID, err := r.resolveSubscriptionUser(es.ID, es.Customer)
	if err != nil {
		return err
	}

	row := &models.Subscription{
		UserID:               userID,
		StripeCustomerID:     es.Customer,
		StripeSubscriptionID: es.ID,
		Status:               es.Status,
		CancelAtPeriodEnd:    es.CancelAtPeriodEnd,
		LatestInvoiceID:      es.LatestInvoice,
	}
	if len(es.Items.Data) > 0 {
		row.PriceID = es.Items.Data[0].Price.ID
	}
	if es.CurrentPeriodStart > 0 {
		t := time.Unix(es.CurrentPeriodStart, 0)
		row.CurrentPeriodStart = &t
	}
	if es.CurrentPeriodEnd > 0 {
		t := time.Unix(es.CurrentPeriodEnd, 0)
		row.CurrentPeriodEnd = &t
	}
	return r.payments.UpsertSubscription(row)
}

// onSubscriptionDeleted finalizes a cancellation, whether it came from a
// deferred cancel reaching period end or a provider-side termination.
func (r *Reconciler) onSubscriptionDeleted(data json.RawMessage) error {
	var es eventSubscription
	if err := json.Unmarshal(data, &es); err != nil {
		return fmt.Errorf("parse subscription: %w", err)
	}

	sub, err := r.payments.GetSubscriptionByProviderID(es.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("[webhook] deletion for unknown subscription %s", es.ID)
			return nil
		}
		return err
	}

	sub.Status = models.SubscriptionStatusCanceled
	sub.CancelAtPeriodEnd = true
	if err := r.payments.UpsertSubscription(sub); err != nil {
		return err
	}
	if r.notifier != nil {
		r.notifier.SubscriptionCanceled(sub.UserID)
	}
	return nil
}

// onInvoicePaymentSucceeded appends a ledger row for the paid invoice and
// confirms the subscription as active with fresh period bounds.
func (r *Reconciler) onInvoicePaymentSucceeded(data json.RawMessage) error {
	var inv eventInvoice
	if err := json.Unmarshal(data, &inv); err != nil {
		return fmt.Errorf("parse invoice: %w", err)
	}
	if inv.Subscription == "" {
		// One-off invoices are covered by payment_intent events.
		return nil
	}

	sub, err := r.payments.GetSubscriptionByProviderID(inv.Subscription)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("[webhook] invoice for unknown subscription %s", inv.Subscription)
			return nil
		}
		return err
	}

	tx := &models.Transaction{
		Type:                 models.TransactionTypeSubscription,
		SenderID:             sub.UserID,
		StripeSubscriptionID: inv.Subscription,
		StripeInvoiceID:      inv.ID,
		Amount:               float64(inv.AmountPaid) / 100,
		Currency:             inv.Currency,
		Status:               models.TransactionStatusSucceeded,
		Description:          "subscription invoice",
	}
	if tx.Currency == "" {
		tx.Currency = "usd"
	}
	if err := r.payments.CreateTransaction(tx); err != nil {
		return err
	}

	sub.Status = models.SubscriptionStatusActive
	sub.LatestInvoiceID = inv.ID
	if inv.PeriodStart > 0 {
		t := time.Unix(inv.PeriodStart, 0)
		sub.CurrentPeriodStart = &t
	}
	if inv.PeriodEnd > 0 {
		t := time.Unix(inv.PeriodEnd, 0)
		sub.CurrentPeriodEnd = &t
	}
	return r.payments.UpsertSubscription(sub)
}

// onSubscriptionStatusFromInvoice overwrites the subscription status based
// on an invoice outcome. Idempotent by construction.
func (r *Reconciler) onSubscriptionStatusFromInvoice(data json.RawMessage, status string) error {
	var inv eventInvoice
	if err := json.Unmarshal(data, &inv); err != nil {
		return fmt.Errorf("parse invoice: %w", err)
	}
	if inv.Subscription == "" {
		return nil
	}

	sub, err := r.payments.GetSubscriptionByProviderID(inv.Subscription)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("[webhook] invoice for unknown subscription %s", inv.Subscription)
			return nil
		}
		return err
	}

	sub.Status = status
	return r.payments.UpsertSubscription(sub)
}

// resolveSubscriptionUser maps a provider subscription to a local user,
// preferring the existing mirror row and falling back to the cached
// customer id on the user record.
func (r *Reconciler) resolveSubscriptionUser(subscriptionID, customerID string) (uint, error) {
	if existing, err := r.payments.GetSubscriptionByProviderID(subscriptionID); err == nil {
		return existing.UserID, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}

	user, err := r.users.GetByStripeCustomerID(customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, fmt.Errorf("no user for customer %s", customerID)
		}
		return 0, err
	}
	return user.ID, nil
}
