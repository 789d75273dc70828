package controllers

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fanlink/fanlink/app/models"
)

func TestTransactionVisibleTo(t *testing.T) {
	receiver := uint(2)

	tests := []struct {
		name     string
		tx       models.Transaction
		viewerID uint
		visible  bool
	}{
		{"Payer sees own row", models.Transaction{SenderID: 1, ReceiverID: &receiver}, 1, true},
		{"Paid party sees the row", models.Transaction{SenderID: 1, ReceiverID: &receiver}, 2, true},
		{"Stranger does not", models.Transaction{SenderID: 1, ReceiverID: &receiver}, 3, false},
		{"No receiver set", models.Transaction{SenderID: 1}, 2, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.visible, transactionVisibleTo(&tt.tx, tt.viewerID))
		})
	}
}
