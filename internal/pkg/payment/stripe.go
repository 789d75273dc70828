package payment

import (
	"errors"
	"math"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/customer"
	"github.com/stripe/stripe-go/v76/paymentintent"
	"github.com/stripe/stripe-go/v76/paymentmethod"
	sub "github.com/stripe/stripe-go/v76/subscription"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/fanlink/fanlink/internal/pkg/env"
)

// StripeProvider implements Provider with the Stripe SDK.
type StripeProvider struct {
	webhookSecret string
}

// NewStripeProvider sets the global Stripe API key and returns the provider.
// Keys come from STRIPE_SECRET_KEY and STRIPE_WEBHOOK_SECRET.
func NewStripeProvider() *StripeProvider {
	stripe.Key = env.GetEnv("STRIPE_SECRET_KEY", "")
	return &StripeProvider{
		webhookSecret: env.GetEnv("STRIPE_WEBHOOK_SECRET", ""),
	}
}

// CreateCustomer creates a Stripe customer for the given email.
func (p *StripeProvider) CreateCustomer(email string) (string, error) {
	c, err := customer.New(&stripe.CustomerParams{
		Email: stripe.String(email),
	})
	if err != nil {
		return "", err
	}
	return c.ID, nil
}

// AttachPaymentMethod attaches a payment method to a customer and makes it
// the invoice default. Attaching a method that is already attached to this
// customer is treated as success.
func (p *StripeProvider) AttachPaymentMethod(customerID, methodID string) error {
	_, err := paymentmethod.Attach(methodID, &stripe.PaymentMethodAttachParams{
		Customer: stripe.String(customerID),
	})
	if err != nil && !isAlreadyAttached(err, customerID, methodID) {
		return err
	}

	_, err = customer.Update(customerID, &stripe.CustomerParams{
		InvoiceSettings: &stripe.CustomerInvoiceSettingsParams{
			DefaultPaymentMethod: stripe.String(methodID),
		},
	})
	return err
}

func isAlreadyAttached(err error, customerID, methodID string) bool {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return false
	}
	if stripeErr.Code == stripe.ErrorCodeResourceAlreadyExists {
		return true
	}
	// Stripe reports re-attachment as invalid_request_error in some API
	// versions; confirm against the method's actual owner.
	pm, getErr := paymentmethod.Get(methodID, nil)
	if getErr != nil || pm.Customer == nil {
		return false
	}
	return pm.Customer.ID == customerID
}

// CreateSubscription creates a subscription that collects its first invoice
// off-session when possible. The expanded latest invoice's payment intent
// tells us whether the client still has to confirm.
func (p *StripeProvider) CreateSubscription(customerID, methodID, priceID string) (*SubscriptionResult, error) {
	params := &stripe.SubscriptionParams{
		Customer: stripe.String(customerID),
		Items: []*stripe.SubscriptionItemsParams{
			{Price: stripe.String(priceID)},
		},
		DefaultPaymentMethod: stripe.String(methodID),
		PaymentBehavior:      stripe.String("default_incomplete"),
		PaymentSettings: &stripe.SubscriptionPaymentSettingsParams{
			SaveDefaultPaymentMethod: stripe.String("on_subscription"),
		},
	}
	params.AddExpand("latest_invoice.payment_intent")

	s, err := sub.New(params)
	if err != nil {
		return nil, err
	}
	return buildSubscriptionResult(s), nil
}

// UpdateSubscription swaps the subscription's single line item to a new
// price with prorations.
func (p *StripeProvider) UpdateSubscription(subscriptionID, newPriceID string) (*SubscriptionResult, error) {
	current, err := sub.Get(subscriptionID, nil)
	if err != nil {
		return nil, err
	}
	if len(current.Items.Data) == 0 {
		return nil, errors.New("subscription has no line items")
	}

	params := &stripe.SubscriptionParams{
		Items: []*stripe.SubscriptionItemsParams{
			{
				ID:    stripe.String(current.Items.Data[0].ID),
				Price: stripe.String(newPriceID),
			},
		},
		ProrationBehavior: stripe.String("create_prorations"),
	}
	params.AddExpand("latest_invoice.payment_intent")

	updated, err := sub.Update(subscriptionID, params)
	if err != nil {
		return nil, err
	}
	return buildSubscriptionResult(updated), nil
}

// CancelSubscription ends a subscription. Immediate cancel terminates
// billing now; deferred only flags cancel-at-period-end and keeps access
// until the provider's deletion webhook arrives.
func (p *StripeProvider) CancelSubscription(subscriptionID string, immediately bool) error {
	if immediately {
		_, err := sub.Cancel(subscriptionID, nil)
		return err
	}
	_, err := sub.Update(subscriptionID, &stripe.SubscriptionParams{
		CancelAtPeriodEnd: stripe.Bool(true),
	})
	return err
}

// CreatePaymentIntent creates a one-off payment intent. Amount is in
// currency major units and is rounded to cents. A destination account
// routes the funds to a connected account after the platform fee.
func (p *StripeProvider) CreatePaymentIntent(customerID string, amount float64, currency, destinationAccountID string) (*PaymentIntentResult, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(MajorUnitsToCents(amount)),
		Currency: stripe.String(strings.ToLower(currency)),
		Customer: stripe.String(customerID),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	if destinationAccountID != "" {
		params.TransferData = &stripe.PaymentIntentTransferDataParams{
			Destination: stripe.String(destinationAccountID),
		}
	}

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, err
	}
	return &PaymentIntentResult{
		PaymentIntentID: pi.ID,
		ClientSecret:    pi.ClientSecret,
	}, nil
}

// VerifyAndParseWebhook checks the payload signature against the webhook
// secret and returns the parsed event. The body must be the raw request
// bytes; a reserialized JSON object will not verify.
func (p *StripeProvider) VerifyAndParseWebhook(rawBody []byte, signature string) (*Event, error) {
	event, err := webhook.ConstructEvent(rawBody, signature, p.webhookSecret)
	if err != nil {
		return nil, ErrSignatureInvalid
	}
	return &Event{
		ID:   event.ID,
		Type: string(event.Type),
		Data: event.Data.Raw,
	}, nil
}

// MajorUnitsToCents converts a currency-major-unit amount to minor units by
// rounding, so 9.999 charges 1000 cents and 9.994 charges 999.
func MajorUnitsToCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func buildSubscriptionResult(s *stripe.Subscription) *SubscriptionResult {
	res := &SubscriptionResult{
		SubscriptionID: s.ID,
		Status:         string(s.Status),
	}
	if s.CurrentPeriodStart > 0 {
		t := time.Unix(s.CurrentPeriodStart, 0)
		res.CurrentPeriodStart = &t
	}
	if s.CurrentPeriodEnd > 0 {
		t := time.Unix(s.CurrentPeriodEnd, 0)
		res.CurrentPeriodEnd = &t
	}
	if s.LatestInvoice != nil {
		res.LatestInvoiceID = s.LatestInvoice.ID
		if pi := s.LatestInvoice.PaymentIntent; pi != nil {
			switch pi.Status {
			case stripe.PaymentIntentStatusRequiresPaymentMethod,
				stripe.PaymentIntentStatusRequiresConfirmation:
				res.ClientSecret = pi.ClientSecret
			}
		}
	}
	return res
}
