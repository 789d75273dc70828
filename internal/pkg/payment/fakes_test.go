package payment

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/fanlink/fanlink/app/models"
	"github.com/fanlink/fanlink/app/repository"
)

// fakeProvider scripts provider responses and records calls.
type fakeProvider struct {
	customerSeq     int
	subSeq          int
	intentSeq       int
	attachErr       error
	subscribeResult *SubscriptionResult
	updateResult    *SubscriptionResult
	intentResult    *PaymentIntentResult
	signatureOK     bool
	event           *Event

	attachCalls []string
	cancelCalls []struct {
		ID          string
		Immediately bool
	}
}

func (f *fakeProvider) CreateCustomer(email string) (string, error) {
	f.customerSeq++
	return fmt.Sprintf("cus_%d", f.customerSeq), nil
}

func (f *fakeProvider) AttachPaymentMethod(customerID, methodID string) error {
	f.attachCalls = append(f.attachCalls, customerID+"/"+methodID)
	return f.attachErr
}

func (f *fakeProvider) CreateSubscription(customerID, methodID, priceID string) (*SubscriptionResult, error) {
	if f.subscribeResult != nil {
		return f.subscribeResult, nil
	}
	f.subSeq++
	start := time.Now()
	end := start.Add(30 * 24 * time.Hour)
	return &SubscriptionResult{
		SubscriptionID:     fmt.Sprintf("sub_%d", f.subSeq),
		Status:             models.SubscriptionStatusIncomplete,
		ClientSecret:       "pi_secret_new",
		CurrentPeriodStart: &start,
		CurrentPeriodEnd:   &end,
		LatestInvoiceID:    "in_1",
	}, nil
}

func (f *fakeProvider) UpdateSubscription(subscriptionID, newPriceID string) (*SubscriptionResult, error) {
	if f.updateResult != nil {
		return f.updateResult, nil
	}
	return &SubscriptionResult{SubscriptionID: subscriptionID}, nil
}

func (f *fakeProvider) CancelSubscription(subscriptionID string, immediately bool) error {
	f.cancelCalls = append(f.cancelCalls, struct {
		ID          string
		Immediately bool
	}{subscriptionID, immediately})
	return nil
}

func (f *fakeProvider) CreatePaymentIntent(customerID string, amount float64, currency, destinationAccountID string) (*PaymentIntentResult, error) {
	if f.intentResult != nil {
		return f.intentResult, nil
	}
	f.intentSeq++
	return &PaymentIntentResult{
		PaymentIntentID: fmt.Sprintf("pi_%d", f.intentSeq),
		ClientSecret:    fmt.Sprintf("pi_%d_secret", f.intentSeq),
	}, nil
}

func (f *fakeProvider) VerifyAndParseWebhook(rawBody []byte, signature string) (*Event, error) {
	if !f.signatureOK {
		return nil, ErrSignatureInvalid
	}
	return f.event, nil
}

// fakeUserRepo is an in-memory UserRepository. Methods the payment code
// never touches come from the embedded nil interface and panic if called.
type fakeUserRepo struct {
	repository.UserRepository
	users map[uint]*models.User
}

func newFakeUserRepo(users ...*models.User) *fakeUserRepo {
	m := make(map[uint]*models.User)
	for _, u := range users {
		m[u.ID] = u
	}
	return &fakeUserRepo{users: m}
}

func (f *fakeUserRepo) GetByID(id uint) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (f *fakeUserRepo) GetByStripeCustomerID(customerID string) (*models.User, error) {
	for _, u := range f.users {
		if u.StripeCustomerID == customerID {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) Update(user *models.User) error {
	f.users[user.ID] = user
	return nil
}

// fakeChatRepo holds messages by id.
type fakeChatRepo struct {
	repository.ChatRepository
	messages map[uint]*models.Message
}

func newFakeChatRepo(messages ...*models.Message) *fakeChatRepo {
	m := make(map[uint]*models.Message)
	for _, msg := range messages {
		m[msg.ID] = msg
	}
	return &fakeChatRepo{messages: m}
}

func (f *fakeChatRepo) GetMessageByID(id uint) (*models.Message, error) {
	msg, ok := f.messages[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return msg, nil
}

func (f *fakeChatRepo) UnlockMessage(messageID uint) error {
	if msg, ok := f.messages[messageID]; ok {
		msg.IsLocked = false
	}
	return nil
}

// fakePaymentRepo is an in-memory PaymentRepository mirroring the GORM
// implementation's semantics: upserts keyed on provider ids, event dedupe
// on (provider, provider_event_id).
type fakePaymentRepo struct {
	nextID        uint
	subscriptions map[string]*models.Subscription
	transactions  []*models.Transaction
	events        map[string]*models.WebhookEvent
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{
		subscriptions: make(map[string]*models.Subscription),
		events:        make(map[string]*models.WebhookEvent),
	}
}

func (f *fakePaymentRepo) UpsertSubscription(sub *models.Subscription) error {
	if existing, ok := f.subscriptions[sub.StripeSubscriptionID]; ok {
		sub.ID = existing.ID
	} else {
		f.nextID++
		sub.ID = f.nextID
	}
	copied := *sub
	f.subscriptions[sub.StripeSubscriptionID] = &copied
	return nil
}

func (f *fakePaymentRepo) GetSubscriptionByProviderID(providerID string) (*models.Subscription, error) {
	sub, ok := f.subscriptions[providerID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *sub
	return &copied, nil
}

func (f *fakePaymentRepo) GetSubscriptionsByUserID(userID uint) ([]models.Subscription, error) {
	var subs []models.Subscription
	for _, sub := range f.subscriptions {
		if sub.UserID == userID {
			subs = append(subs, *sub)
		}
	}
	return subs, nil
}

func (f *fakePaymentRepo) GetSlotSubscriptionForUser(userID uint) (*models.Subscription, error) {
	for _, sub := range f.subscriptions {
		if sub.UserID == userID && sub.OccupiesUserSlot() {
			copied := *sub
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakePaymentRepo) HasActiveSubscription(userID uint) (bool, error) {
	for _, sub := range f.subscriptions {
		if sub.UserID == userID &&
			(sub.Status == models.SubscriptionStatusActive || sub.Status == models.SubscriptionStatusTrialing) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakePaymentRepo) CreateTransaction(tx *models.Transaction) error {
	f.nextID++
	tx.ID = f.nextID
	copied := *tx
	f.transactions = append(f.transactions, &copied)
	return nil
}

func (f *fakePaymentRepo) GetTransactionByID(id uint) (*models.Transaction, error) {
	for _, tx := range f.transactions {
		if tx.ID == id {
			copied := *tx
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakePaymentRepo) GetTransactionByPaymentIntentID(intentID string) (*models.Transaction, error) {
	for _, tx := range f.transactions {
		if tx.StripePaymentIntentID == intentID {
			copied := *tx
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakePaymentRepo) GetPendingTransactionForMessage(messageID uint) (*models.Transaction, error) {
	for _, tx := range f.transactions {
		if tx.MessageID != nil && *tx.MessageID == messageID && tx.Status == models.TransactionStatusPending {
			copied := *tx
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakePaymentRepo) UpdateTransactionStatus(intentID, status string) error {
	for _, tx := range f.transactions {
		if tx.StripePaymentIntentID == intentID {
			tx.Status = status
		}
	}
	return nil
}

func (f *fakePaymentRepo) GetTransactionsForUser(userID uint, offset, limit int) ([]models.Transaction, error) {
	var txs []models.Transaction
	for i := len(f.transactions) - 1; i >= 0; i-- {
		tx := f.transactions[i]
		if tx.SenderID == userID || (tx.ReceiverID != nil && *tx.ReceiverID == userID) {
			txs = append(txs, *tx)
		}
	}
	return txs, nil
}

func (f *fakePaymentRepo) RecordWebhookEvent(event *models.WebhookEvent) (bool, error) {
	key := event.Provider + "/" + event.ProviderEventID
	if stored, ok := f.events[key]; ok {
		*event = *stored
		return false, nil
	}
	f.nextID++
	event.ID = f.nextID
	copied := *event
	f.events[key] = &copied
	return true, nil
}

func (f *fakePaymentRepo) MarkWebhookEventProcessed(provider, providerEventID string, processingErr error) error {
	key := provider + "/" + providerEventID
	if stored, ok := f.events[key]; ok {
		now := time.Now()
		stored.ProcessedAt = &now
		stored.ProcessingError = ""
		if processingErr != nil {
			stored.ProcessingError = processingErr.Error()
		}
	}
	return nil
}
