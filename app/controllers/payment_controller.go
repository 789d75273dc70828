package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fanlink/fanlink/app/models"
	"github.com/fanlink/fanlink/app/repository"
	"github.com/fanlink/fanlink/internal/pkg/usercontext"
)

type createIntentRequest struct {
	MessageID uint `json:"message_id" validate:"required"`
}

// HandleCreatePaymentIntent creates a one-off payment intent to unlock a
// paid media message. Only the message receiver may pay, and only while
// the message is still locked.
func HandleCreatePaymentIntent(c *fiber.Ctx) error {
	var req createIntentRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return badRequest(c, "Validation failed: "+err.Error())
	}

	resp, err := paymentService().CreateMediaPaymentIntent(usercontext.GetUserID(c), req.MessageID)
	if err != nil {
		return jsonError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// HandleGetTransaction returns a single ledger row. Only the payer and the
// paid party may read it; everyone else gets 404 so row ids do not leak.
func HandleGetTransaction(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return jsonError(c, err)
	}

	tx, err := repository.GetGlobalRepositories().Payment.GetTransactionByID(id)
	if err != nil {
		return notFound(c, "Transaction not found")
	}
	viewerID := usercontext.GetUserID(c)
	if !transactionVisibleTo(tx, viewerID) {
		return notFound(c, "Transaction not found")
	}
	return c.JSON(tx)
}

func transactionVisibleTo(tx *models.Transaction, viewerID uint) bool {
	if tx.SenderID == viewerID {
		return true
	}
	return tx.ReceiverID != nil && *tx.ReceiverID == viewerID
}

// HandleGetTransactions lists the viewer's ledger rows newest first.
func HandleGetTransactions(c *fiber.Ctx) error {
	offset, limit := parsePagination(c)
	transactions, err := paymentService().GetTransactions(usercontext.GetUserID(c), offset, limit)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(fiber.Map{"transactions": transactions, "skip": offset, "limit": limit})
}
