package payment

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fanlink/fanlink/app/models"
	"github.com/fanlink/fanlink/internal/pkg/apperror"
)

func newTestReconciler(provider *fakeProvider, payments *fakePaymentRepo, users *fakeUserRepo, chat *fakeChatRepo) *Reconciler {
	return NewReconciler(provider, payments, users, chat, nil)
}

func subscriptionEventJSON(subID, customerID, status string, cancelAtPeriodEnd bool) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{
		"id": %q,
		"customer": %q,
		"status": %q,
		"current_period_start": 1700000000,
		"current_period_end": 1702592000,
		"cancel_at_period_end": %t,
		"latest_invoice": "in_100",
		"items": {"data": [{"price": {"id": "price_basic"}}]}
	}`, subID, customerID, status, cancelAtPeriodEnd))
}

func TestHandleEventRejectsInvalidSignature(t *testing.T) {
	payments := newFakePaymentRepo()
	provider := &fakeProvider{signatureOK: false}
	r := newTestReconciler(provider, payments, newFakeUserRepo(), newFakeChatRepo())

	err := r.HandleEvent([]byte(`{}`), "bad-signature")
	require.Error(t, err)
	assert.Equal(t, 401, apperror.StatusOf(err))

	// No state was touched before the signature check failed.
	assert.Empty(t, payments.events)
	assert.Empty(t, payments.transactions)
	assert.Empty(t, payments.subscriptions)
}

func TestPaymentIntentSucceededUnlocksMessageIdempotently(t *testing.T) {
	payments := newFakePaymentRepo()
	msgID := uint(10)
	chat := newFakeChatRepo(&models.Message{ID: msgID, SenderID: 1, ReceiverID: 2, IsLocked: true})
	receiverID := uint(1)
	require.NoError(t, payments.CreateTransaction(&models.Transaction{
		Type:                  models.TransactionTypeOneTime,
		MessageID:             &msgID,
		SenderID:              2,
		ReceiverID:            &receiverID,
		StripePaymentIntentID: "pi_1",
		Status:                models.TransactionStatusPending,
	}))

	provider := &fakeProvider{signatureOK: true, event: &Event{
		ID:   "evt_1",
		Type: "payment_intent.succeeded",
		Data: json.RawMessage(`{"id": "pi_1"}`),
	}}
	r := newTestReconciler(provider, payments, newFakeUserRepo(), chat)

	require.NoError(t, r.HandleEvent([]byte(`{}`), "sig"))

	tx, err := payments.GetTransactionByPaymentIntentID("pi_1")
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusSucceeded, tx.Status)
	assert.False(t, chat.messages[msgID].IsLocked)

	// Same event id again: deduped, no error, state unchanged.
	require.NoError(t, r.HandleEvent([]byte(`{}`), "sig"))
	tx, err = payments.GetTransactionByPaymentIntentID("pi_1")
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusSucceeded, tx.Status)
	assert.False(t, chat.messages[msgID].IsLocked)
	assert.Len(t, payments.transactions, 1)

	// A re-delivery under a fresh event id re-applies the same terminal
	// state without side effects.
	provider.event = &Event{ID: "evt_2", Type: "payment_intent.succeeded", Data: json.RawMessage(`{"id": "pi_1"}`)}
	require.NoError(t, r.HandleEvent([]byte(`{}`), "sig"))
	assert.Len(t, payments.transactions, 1)
	assert.False(t, chat.messages[msgID].IsLocked)
}

func TestPaymentIntentFailedMarksTransactionFailed(t *testing.T) {
	payments := newFakePaymentRepo()
	require.NoError(t, payments.CreateTransaction(&models.Transaction{
		StripePaymentIntentID: "pi_2",
		Status:                models.TransactionStatusPending,
	}))

	provider := &fakeProvider{signatureOK: true, event: &Event{
		ID:   "evt_3",
		Type: "payment_intent.payment_failed",
		Data: json.RawMessage(`{"id": "pi_2"}`),
	}}
	r := newTestReconciler(provider, payments, newFakeUserRepo(), newFakeChatRepo())

	require.NoError(t, r.HandleEvent([]byte(`{}`), "sig"))
	tx, err := payments.GetTransactionByPaymentIntentID("pi_2")
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusFailed, tx.Status)
}

func TestSubscriptionUpsertIsKeyedOnProviderID(t *testing.T) {
	payments := newFakePaymentRepo()
	users := newFakeUserRepo(&models.User{ID: 7, StripeCustomerID: "cus_7"})
	provider := &fakeProvider{signatureOK: true}
	r := newTestReconciler(provider, payments, users, newFakeChatRepo())

	provider.event = &Event{
		ID:   "evt_10",
		Type: "customer.subscription.updated",
		Data: subscriptionEventJSON("sub_abc", "cus_7", "active", false),
	}
	require.NoError(t, r.HandleEvent([]byte(`{}`), "sig"))

	sub, err := payments.GetSubscriptionByProviderID("sub_abc")
	require.NoError(t, err)
	assert.Equal(t, uint(7), sub.UserID)
	assert.Equal(t, models.SubscriptionStatusActive, sub.Status)
	assert.Equal(t, "price_basic", sub.PriceID)
	require.NotNil(t, sub.CurrentPeriodEnd)

	// Second delivery with a new event id updates the same row.
	provider.event = &Event{
		ID:   "evt_11",
		Type: "customer.subscription.updated",
		Data: subscriptionEventJSON("sub_abc", "cus_7", "past_due", false),
	}
	require.NoError(t, r.HandleEvent([]byte(`{}`), "sig"))

	assert.Len(t, payments.subscriptions, 1)
	sub, err = payments.GetSubscriptionByProviderID("sub_abc")
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionStatusPastDue, sub.Status)
}

func TestSubscriptionDeletedFinalizesCancellation(t *testing.T) {
	payments := newFakePaymentRepo()
	require.NoError(t, payments.UpsertSubscription(&models.Subscription{
		UserID:               3,
		StripeCustomerID:     "cus_3",
		StripeSubscriptionID: "sub_del",
		Status:               models.SubscriptionStatusActive,
	}))

	provider := &fakeProvider{signatureOK: true, event: &Event{
		ID:   "evt_20",
		Type: "customer.subscription.deleted",
		Data: subscriptionEventJSON("sub_del", "cus_3", "canceled", true),
	}}
	r := newTestReconciler(provider, payments, newFakeUserRepo(), newFakeChatRepo())

	require.NoError(t, r.HandleEvent([]byte(`{}`), "sig"))

	sub, err := payments.GetSubscriptionByProviderID("sub_del")
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionStatusCanceled, sub.Status)
	assert.True(t, sub.CancelAtPeriodEnd)
}

func TestInvoicePaymentSucceededWritesLedgerAndActivates(t *testing.T) {
	payments := newFakePaymentRepo()
	require.NoError(t, payments.UpsertSubscription(&models.Subscription{
		UserID:               4,
		StripeCustomerID:     "cus_4",
		StripeSubscriptionID: "sub_inv",
		Status:               models.SubscriptionStatusIncomplete,
	}))

	provider := &fakeProvider{signatureOK: true, event: &Event{
		ID:   "evt_30",
		Type: "invoice.payment_succeeded",
		Data: json.RawMessage(`{
			"id": "in_42",
			"customer": "cus_4",
			"subscription": "sub_inv",
			"amount_paid": 999,
			"currency": "usd",
			"period_start": 1700000000,
			"period_end": 1702592000
		}`),
	}}
	r := newTestReconciler(provider, payments, newFakeUserRepo(), newFakeChatRepo())

	require.NoError(t, r.HandleEvent([]byte(`{}`), "sig"))

	sub, err := payments.GetSubscriptionByProviderID("sub_inv")
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionStatusActive, sub.Status)
	assert.Equal(t, "in_42", sub.LatestInvoiceID)

	require.Len(t, payments.transactions, 1)
	tx := payments.transactions[0]
	assert.Equal(t, models.TransactionTypeSubscription, tx.Type)
	assert.Equal(t, uint(4), tx.SenderID)
	assert.InEpsilon(t, 9.99, tx.Amount, 0.0001)
	assert.Equal(t, models.TransactionStatusSucceeded, tx.Status)
}

func TestInvoiceFailureStatuses(t *testing.T) {
	tests := []struct {
		eventType  string
		wantStatus string
	}{
		{"invoice.payment_failed", models.SubscriptionStatusPastDue},
		{"invoice.payment_action_required", models.SubscriptionStatusIncomplete},
	}
	for _, tt := range tests {
		t.Run(tt.eventType, func(t *testing.T) {
			payments := newFakePaymentRepo()
			require.NoError(t, payments.UpsertSubscription(&models.Subscription{
				UserID:               5,
				StripeSubscriptionID: "sub_x",
				Status:               models.SubscriptionStatusActive,
			}))

			provider := &fakeProvider{signatureOK: true, event: &Event{
				ID:   "evt_" + tt.eventType,
				Type: tt.eventType,
				Data: json.RawMessage(`{"id": "in_9", "subscription": "sub_x"}`),
			}}
			r := newTestReconciler(provider, payments, newFakeUserRepo(), newFakeChatRepo())

			require.NoError(t, r.HandleEvent([]byte(`{}`), "sig"))
			sub, err := payments.GetSubscriptionByProviderID("sub_x")
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, sub.Status)
		})
	}
}

func TestUnknownEventTypeIsAcknowledged(t *testing.T) {
	payments := newFakePaymentRepo()
	provider := &fakeProvider{signatureOK: true, event: &Event{
		ID:   "evt_40",
		Type: "charge.refunded",
		Data: json.RawMessage(`{"id": "ch_1"}`),
	}}
	r := newTestReconciler(provider, payments, newFakeUserRepo(), newFakeChatRepo())

	require.NoError(t, r.HandleEvent([]byte(`{}`), "sig"))
	assert.Empty(t, payments.transactions)
	assert.Empty(t, payments.subscriptions)
	// Event row recorded and marked processed.
	require.Len(t, payments.events, 1)
	for _, ev := range payments.events {
		assert.NotNil(t, ev.ProcessedAt)
		assert.Empty(t, ev.ProcessingError)
	}
}

func TestUnknownPaymentIntentIsIgnored(t *testing.T) {
	payments := newFakePaymentRepo()
	provider := &fakeProvider{signatureOK: true, event: &Event{
		ID:   "evt_50",
		Type: "payment_intent.succeeded",
		Data: json.RawMessage(`{"id": "pi_missing"}`),
	}}
	r := newTestReconciler(provider, payments, newFakeUserRepo(), newFakeChatRepo())

	require.NoError(t, r.HandleEvent([]byte(`{}`), "sig"))
	assert.Empty(t, payments.transactions)
}
