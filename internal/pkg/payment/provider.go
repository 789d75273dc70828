package payment

import (
	"encoding/json"
	"errors"
	"time"
)

// ErrSignatureInvalid is returned when a webhook payload fails signature
// verification. No state is touched before this check passes.
var ErrSignatureInvalid = errors.New("webhook signature invalid")

// Event is a provider webhook event after signature verification. Data is
// the raw JSON of the event's primary object, untouched by the SDK.
type Event struct {
	ID   string
	Type string
	Data json.RawMessage
}

// SubscriptionResult is the provider's response to creating or updating a
// subscription. ClientSecret is empty when no client-side confirmation is
// needed.
type SubscriptionResult struct {
	SubscriptionID     string
	ClientSecret       string
	Status             string
	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time
	LatestInvoiceID    string
}

// PaymentIntentResult is the provider's response to creating a payment
// intent for a one-off charge.
type PaymentIntentResult struct {
	PaymentIntentID string
	ClientSecret    string
}

// Provider abstracts the payment SaaS. The orchestration service and the
// webhook reconciler depend on this interface only, never on the SDK.
type Provider interface {
	CreateCustomer(email string) (customerID string, err error)
	AttachPaymentMethod(customerID, methodID string) error
	CreateSubscription(customerID, methodID, priceID string) (*SubscriptionResult, error)
	UpdateSubscription(subscriptionID, newPriceID string) (*SubscriptionResult, error)
	CancelSubscription(subscriptionID string, immediately bool) error
	CreatePaymentIntent(customerID string, amount float64, currency, destinationAccountID string) (*PaymentIntentResult, error)
	VerifyAndParseWebhook(rawBody []byte, signature string) (*Event, error)
}
