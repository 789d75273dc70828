package controllers

import (
	"log"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/fanlink/fanlink/app/models"
	"github.com/fanlink/fanlink/app/repository"
	"github.com/fanlink/fanlink/internal/pkg/jobqueue"
	"github.com/fanlink/fanlink/internal/pkg/payment"
	"github.com/fanlink/fanlink/internal/pkg/usercontext"
)

type createSubscriptionRequest struct {
	PaymentMethodID string `json:"payment_method_id" validate:"required"`
}

type updateSubscriptionRequest struct {
	PriceID string `json:"price_id" validate:"required"`
}

type cancelSubscriptionRequest struct {
	Immediately bool `json:"immediately"`
}

type attachPaymentMethodRequest struct {
	PaymentMethodID string `json:"payment_method_id" validate:"required"`
}

func paymentService() *payment.Service {
	repos := repository.GetGlobalRepositories()
	return payment.NewService(payment.NewStripeProvider(), repos.Payment, repos.User, repos.Chat)
}

func paymentReconciler() *payment.Reconciler {
	repos := repository.GetGlobalRepositories()
	return payment.NewReconciler(payment.NewStripeProvider(), repos.Payment, repos.User, repos.Chat, jobNotifier{})
}

// jobNotifier feeds billing side effects into the notification fan-out
// and email queues. Failures are logged and never propagate.
type jobNotifier struct{}

func (jobNotifier) PaymentSucceeded(tx *models.Transaction) {
	enqueueNotification(tx.SenderID, tx.SenderID, models.NotificationTypePayment, "Your payment succeeded", tx.ID)
	if tx.MessageID != nil && tx.ReceiverID != nil {
		enqueueNotification(*tx.ReceiverID, tx.SenderID, models.NotificationTypeMediaUnlock, "Your paid content was unlocked", *tx.MessageID)
	}
	if payer, err := repository.GetGlobalRepositories().User.GetByID(tx.SenderID); err == nil {
		enqueueBillingEmail(paymentReceiptEmail(payer, tx))
	} else {
		log.Printf("payment receipt lookup failed for user %d: %v", tx.SenderID, err)
	}
}

func (jobNotifier) SubscriptionCanceled(userID uint) {
	enqueueNotification(userID, userID, models.NotificationTypePayment, "Your subscription was canceled", 0)
	if user, err := repository.GetGlobalRepositories().User.GetByID(userID); err == nil {
		enqueueBillingEmail(subscriptionCanceledEmail(user))
	} else {
		log.Printf("cancel email lookup failed for user %d: %v", userID, err)
	}
}

// paymentReceiptEmail builds the payment_succeeded mail for the payer.
func paymentReceiptEmail(user *models.User, tx *models.Transaction) jobqueue.EmailJobPayload {
	return jobqueue.EmailJobPayload{
		To:       user.Email,
		Template: models.EmailTemplatePaymentDone,
		Data: map[string]string{
			"Name":     user.Name,
			"Amount":   strconv.FormatFloat(tx.Amount, 'f', 2, 64),
			"Currency": strings.ToUpper(tx.Currency),
		},
	}
}

// subscriptionCanceledEmail builds the subscription_canceled mail.
func subscriptionCanceledEmail(user *models.User) jobqueue.EmailJobPayload {
	return jobqueue.EmailJobPayload{
		To:       user.Email,
		Template: models.EmailTemplateSubCanceled,
		Data:     map[string]string{"Name": user.Name},
	}
}

func enqueueBillingEmail(payload jobqueue.EmailJobPayload) {
	if err := jobqueue.EnqueueEmail(payload); err != nil {
		log.Printf("billing email enqueue failed for %s: %v", payload.To, err)
	}
}

// HandleCreateSubscription starts a subscription for the viewer using the
// given payment method. 409 when a subscription already occupies the slot.
func HandleCreateSubscription(c *fiber.Ctx) error {
	var req createSubscriptionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return badRequest(c, "Validation failed: "+err.Error())
	}

	resp, err := paymentService().CreateSubscription(usercontext.GetUserID(c), req.PaymentMethodID)
	if err != nil {
		return jsonError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// HandleUpdateSubscription switches the viewer's subscription to another
// price with proration.
func HandleUpdateSubscription(c *fiber.Ctx) error {
	var req updateSubscriptionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return badRequest(c, "Validation failed: "+err.Error())
	}

	resp, err := paymentService().UpdateSubscription(usercontext.GetUserID(c), req.PriceID)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(resp)
}

// HandleCancelSubscription cancels the viewer's subscription, immediately
// or at period end.
func HandleCancelSubscription(c *fiber.Ctx) error {
	// Body is optional; default is cancel at period end.
	var req cancelSubscriptionRequest
	_ = c.BodyParser(&req)

	if err := paymentService().CancelSubscription(usercontext.GetUserID(c), req.Immediately); err != nil {
		return jsonError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Subscription canceled"})
}

// HandleGetSubscription returns the viewer's subscription mirror row.
func HandleGetSubscription(c *fiber.Ctx) error {
	sub, err := paymentService().GetSubscription(usercontext.GetUserID(c))
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(sub)
}

// HandleGetSubscriptionHistory lists every subscription row the viewer
// ever had, canceled ones included.
func HandleGetSubscriptionHistory(c *fiber.Ctx) error {
	subs, err := repository.GetGlobalRepositories().Payment.GetSubscriptionsByUserID(usercontext.GetUserID(c))
	if err != nil {
		return internalError(c, "Failed to load subscriptions")
	}
	return c.JSON(fiber.Map{"subscriptions": subs})
}

// HandleAttachPaymentMethod attaches a payment method to the viewer's
// provider customer and makes it the invoice default.
func HandleAttachPaymentMethod(c *fiber.Ctx) error {
	var req attachPaymentMethodRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return badRequest(c, "Validation failed: "+err.Error())
	}

	if err := paymentService().AttachPaymentMethod(usercontext.GetUserID(c), req.PaymentMethodID); err != nil {
		return jsonError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Payment method attached"})
}

// HandleStripeWebhook receives provider events. The raw body goes to the
// reconciler untouched; signature failures are 401 and happen before any
// state is written.
func HandleStripeWebhook(c *fiber.Ctx) error {
	signature := c.Get("Stripe-Signature")
	if err := paymentReconciler().HandleEvent(c.BodyRaw(), signature); err != nil {
		return jsonError(c, err)
	}
	return c.JSON(fiber.Map{"received": true})
}
