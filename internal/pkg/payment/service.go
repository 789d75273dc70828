package payment

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/fanlink/fanlink/app/models"
	"github.com/fanlink/fanlink/app/repository"
	"github.com/fanlink/fanlink/internal/pkg/apperror"
	"github.com/fanlink/fanlink/internal/pkg/env"
)

// SubscribeResponse is returned to the client after a subscription create
// or update. An empty ClientSecret means no further client action is
// needed; the webhook will confirm asynchronously either way.
type SubscribeResponse struct {
	SubscriptionID string `json:"subscription_id"`
	ClientSecret   string `json:"client_secret,omitempty"`
	Status         string `json:"status"`
}

// IntentResponse is returned for one-off paid media charges.
type IntentResponse struct {
	PaymentIntentID string  `json:"payment_intent_id"`
	ClientSecret    string  `json:"client_secret"`
	Amount          float64 `json:"amount"`
	Currency        string  `json:"currency"`
}

// Service orchestrates subscription and one-off payment flows. It writes
// only provisional local state; confirmed statuses come from the
// reconciler.
type Service struct {
	provider Provider
	payments repository.PaymentRepository
	users    repository.UserRepository
	chat     repository.ChatRepository
	priceID  string
	currency string
}

// NewService wires the orchestration service. The subscription price is the
// single-tier env price STRIPE_PRICE_ID unless the caller threads another
// one through UpdateSubscription.
func NewService(provider Provider, payments repository.PaymentRepository, users repository.UserRepository, chat repository.ChatRepository) *Service {
	return &Service{
		provider: provider,
		payments: payments,
		users:    users,
		chat:     chat,
		priceID:  env.GetEnv("STRIPE_PRICE_ID", ""),
		currency: env.GetEnv("PAYMENT_CURRENCY", "usd"),
	}
}

// ensureCustomer returns the user's provider customer id, creating and
// caching it on the user row the first time. The cached id is re-derivable
// from the provider, so the two writes need no shared transaction.
func (s *Service) ensureCustomer(user *models.User) (string, error) {
	if user.StripeCustomerID != "" {
		return user.StripeCustomerID, nil
	}
	customerID, err := s.provider.CreateCustomer(user.Email)
	if err != nil {
		return "", fmt.Errorf("create customer: %w", err)
	}
	user.StripeCustomerID = customerID
	if err := s.users.Update(user); err != nil {
		return "", err
	}
	return customerID, nil
}

// AttachPaymentMethod attaches a payment method to the user's customer,
// creating the customer first when needed.
func (s *Service) AttachPaymentMethod(userID uint, methodID string) error {
	user, err := s.getUser(userID)
	if err != nil {
		return err
	}
	customerID, err := s.ensureCustomer(user)
	if err != nil {
		return err
	}
	return s.provider.AttachPaymentMethod(customerID, methodID)
}

// CreateSubscription subscribes the user to the configured price. A user
// holds at most one subscription slot (active, trialing or incomplete); a
// second create while one exists is a conflict. The local mirror row keeps
// the provider-reported status; only the reconciler may promote it later.
func (s *Service) CreateSubscription(userID uint, paymentMethodID string) (*SubscribeResponse, error) {
	user, err := s.getUser(userID)
	if err != nil {
		return nil, err
	}

	if _, err := s.payments.GetSlotSubscriptionForUser(userID); err == nil {
		return nil, apperror.New(fiber.StatusConflict, "subscription", "user already has a subscription")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	customerID, err := s.ensureCustomer(user)
	if err != nil {
		return nil, err
	}
	if err := s.provider.AttachPaymentMethod(customerID, paymentMethodID); err != nil {
		return nil, fmt.Errorf("attach payment method: %w", err)
	}

	res, err := s.provider.CreateSubscription(customerID, paymentMethodID, s.priceID)
	if err != nil {
		return nil, fmt.Errorf("create subscription: %w", err)
	}

	row := &models.Subscription{
		UserID:               userID,
		StripeCustomerID:     customerID,
		StripeSubscriptionID: res.SubscriptionID,
		PriceID:              s.priceID,
		Status:               res.Status,
		CurrentPeriodStart:   res.CurrentPeriodStart,
		CurrentPeriodEnd:     res.CurrentPeriodEnd,
		LatestInvoiceID:      res.LatestInvoiceID,
	}
	if err := s.payments.UpsertSubscription(row); err != nil {
		return nil, err
	}

	return &SubscribeResponse{
		SubscriptionID: res.SubscriptionID,
		ClientSecret:   res.ClientSecret,
		Status:         res.Status,
	}, nil
}

// UpdateSubscription moves the user's active subscription to a new price.
// The local status is only flipped to incomplete when the provider asks for
// another confirmation; otherwise the webhook settles it.
func (s *Service) UpdateSubscription(userID uint, newPriceID string) (*SubscribeResponse, error) {
	sub, err := s.requireActiveSubscription(userID)
	if err != nil {
		return nil, err
	}
	if newPriceID == "" {
		newPriceID = s.priceID
	}

	res, err := s.provider.UpdateSubscription(sub.StripeSubscriptionID, newPriceID)
	if err != nil {
		return nil, fmt.Errorf("update subscription: %w", err)
	}

	sub.PriceID = newPriceID
	if res.ClientSecret != "" {
		sub.Status = models.SubscriptionStatusIncomplete
	}
	if err := s.payments.UpsertSubscription(sub); err != nil {
		return nil, err
	}

	return &SubscribeResponse{
		SubscriptionID: sub.StripeSubscriptionID,
		ClientSecret:   res.ClientSecret,
		Status:         sub.Status,
	}, nil
}

// CancelSubscription cancels the user's active subscription. Immediate
// cancel terminates at the provider synchronously and mirrors canceled
// locally at once; deferred cancel only sets the period-end flag and waits
// for the deletion webhook.
func (s *Service) CancelSubscription(userID uint, immediately bool) error {
	sub, err := s.requireActiveSubscription(userID)
	if err != nil {
		return err
	}

	if err := s.provider.CancelSubscription(sub.StripeSubscriptionID, immediately); err != nil {
		return fmt.Errorf("cancel subscription: %w", err)
	}

	if immediately {
		sub.Status = models.SubscriptionStatusCanceled
	}
	sub.CancelAtPeriodEnd = true
	return s.payments.UpsertSubscription(sub)
}

// GetSubscription returns the user's slot subscription, or 404.
func (s *Service) GetSubscription(userID uint) (*models.Subscription, error) {
	sub, err := s.payments.GetSlotSubscriptionForUser(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.New(fiber.StatusNotFound, "subscription", "no subscription found")
		}
		return nil, err
	}
	return sub, nil
}

// CreateMediaPaymentIntent starts a one-off charge unlocking a paid chat
// message. The payer must be the message's receiver, the message must still
// be locked, and at most one pending charge may exist per message. Funds
// are routed to the content sender's connected account when present.
func (s *Service) CreateMediaPaymentIntent(payerID, messageID uint) (*IntentResponse, error) {
	payer, err := s.getUser(payerID)
	if err != nil {
		return nil, err
	}

	msg, err := s.chat.GetMessageByID(messageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.New(fiber.StatusNotFound, "payment", "message not found")
		}
		return nil, err
	}
	if msg.ReceiverID != payerID {
		return nil, apperror.New(fiber.StatusForbidden, "payment", "message is not addressed to you")
	}
	if !msg.IsLocked {
		return nil, apperror.New(fiber.StatusConflict, "payment", "message is not locked")
	}

	if _, err := s.payments.GetPendingTransactionForMessage(messageID); err == nil {
		return nil, apperror.New(fiber.StatusConflict, "payment", "a payment for this message is already pending")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	payee, err := s.getUser(msg.SenderID)
	if err != nil {
		return nil, err
	}

	customerID, err := s.ensureCustomer(payer)
	if err != nil {
		return nil, err
	}

	res, err := s.provider.CreatePaymentIntent(customerID, msg.Price, s.currency, payee.StripeAccountID)
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}

	tx := &models.Transaction{
		Type:                  models.TransactionTypeOneTime,
		MessageID:             &msg.ID,
		SenderID:              payerID,
		ReceiverID:            &payee.ID,
		StripePaymentIntentID: res.PaymentIntentID,
		Amount:                msg.Price,
		Currency:              s.currency,
		Status:                models.TransactionStatusPending,
		Description:           "paid media unlock",
	}
	if err := s.payments.CreateTransaction(tx); err != nil {
		return nil, err
	}

	return &IntentResponse{
		PaymentIntentID: res.PaymentIntentID,
		ClientSecret:    res.ClientSecret,
		Amount:          msg.Price,
		Currency:        s.currency,
	}, nil
}

// GetTransactions returns the user's ledger rows, newest first.
func (s *Service) GetTransactions(userID uint, offset, limit int) ([]models.Transaction, error) {
	return s.payments.GetTransactionsForUser(userID, offset, limit)
}

func (s *Service) getUser(userID uint) (*models.User, error) {
	user, err := s.users.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.New(fiber.StatusNotFound, "payment", "user not found")
		}
		return nil, err
	}
	return user, nil
}

func (s *Service) requireActiveSubscription(userID uint) (*models.Subscription, error) {
	sub, err := s.payments.GetSlotSubscriptionForUser(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.New(fiber.StatusNotFound, "subscription", "no active subscription")
		}
		return nil, err
	}
	if sub.Status != models.SubscriptionStatusActive {
		return nil, apperror.New(fiber.StatusConflict, "subscription", "subscription is not active")
	}
	return sub, nil
}
