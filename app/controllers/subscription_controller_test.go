package controllers

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fanlink/fanlink/app/models"
)

func TestPaymentReceiptEmail(t *testing.T) {
	user := &models.User{Name: "Alice", Email: "alice@example.com"}
	tx := &models.Transaction{Amount: 4.9, Currency: "eur"}

	payload := paymentReceiptEmail(user, tx)

	assert.Equal(t, "alice@example.com", payload.To)
	assert.Equal(t, models.EmailTemplatePaymentDone, payload.Template)
	assert.Equal(t, "Alice", payload.Data["Name"])
	assert.Equal(t, "4.90", payload.Data["Amount"])
	assert.Equal(t, "EUR", payload.Data["Currency"])
}

func TestSubscriptionCanceledEmail(t *testing.T) {
	user := &models.User{Name: "Bob", Email: "bob@example.com"}

	payload := subscriptionCanceledEmail(user)

	assert.Equal(t, "bob@example.com", payload.To)
	assert.Equal(t, models.EmailTemplateSubCanceled, payload.Template)
	assert.Equal(t, "Bob", payload.Data["Name"])
}
