package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUserHashesPassword(t *testing.T) {
	t.Parallel()

	user, err := CreateUser("alice", "alice@example.com", "secret123")
	require.NoError(t, err)

	assert.NotEqual(t, "secret123", user.Password)
	assert.True(t, user.CheckPassword("secret123"))
	assert.False(t, user.CheckPassword("wrong"))
	assert.Equal(t, ROLE_USER, user.Role)
	assert.Equal(t, STATUS_ACTIVE, user.Status)
}

func TestCreateUserValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		username string
		email    string
		password string
	}{
		{"short name", "ab", "alice@example.com", "secret123"},
		{"bad email", "alice", "not-an-email", "secret123"},
		{"short password", "alice", "alice@example.com", "123"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := CreateUser(tc.username, tc.email, tc.password)
			assert.Error(t, err)
		})
	}
}

func TestResetPasswordToken(t *testing.T) {
	t.Parallel()

	user := &User{}
	plain := user.GenerateResetPasswordToken()

	require.NotEmpty(t, plain)
	assert.NotEqual(t, plain, user.ResetPasswordToken, "stored token must be a hash")
	assert.True(t, user.IsResetTokenValid(plain))
	assert.False(t, user.IsResetTokenValid("some-other-token"))

	expired := time.Now().Add(-time.Minute)
	user.ResetPasswordExpiresAt = &expired
	assert.False(t, user.IsResetTokenValid(plain))

	user.ClearResetToken()
	assert.False(t, user.IsResetTokenValid(plain))
	assert.Empty(t, user.ResetPasswordToken)
}

func TestSessionIsLive(t *testing.T) {
	t.Parallel()

	live := &Session{Valid: true, ExpiresAt: time.Now().Add(time.Hour)}
	assert.True(t, live.IsLive())

	invalidated := &Session{Valid: false, ExpiresAt: time.Now().Add(time.Hour)}
	assert.False(t, invalidated.IsLive())

	expired := &Session{Valid: true, ExpiresAt: time.Now().Add(-time.Second)}
	assert.False(t, expired.IsLive(), "expired rows count as absent before deletion")
}

func TestConversationPairOrdering(t *testing.T) {
	t.Parallel()

	a, b := OrderConversationPair(9, 4)
	assert.Equal(t, uint(4), a)
	assert.Equal(t, uint(9), b)

	a, b = OrderConversationPair(4, 9)
	assert.Equal(t, uint(4), a)
	assert.Equal(t, uint(9), b)

	conv := &Conversation{UserAID: 4, UserBID: 9, DeletedForB: true}
	assert.True(t, conv.HasParticipant(4))
	assert.True(t, conv.HasParticipant(9))
	assert.False(t, conv.HasParticipant(5))
	assert.False(t, conv.DeletedFor(4))
	assert.True(t, conv.DeletedFor(9))
}

func TestSubscriptionOccupiesUserSlot(t *testing.T) {
	t.Parallel()

	occupying := []string{SubscriptionStatusActive, SubscriptionStatusTrialing, SubscriptionStatusIncomplete}
	for _, status := range occupying {
		assert.True(t, (&Subscription{Status: status}).OccupiesUserSlot(), status)
	}

	free := []string{SubscriptionStatusCanceled, SubscriptionStatusUnpaid, SubscriptionStatusPastDue, SubscriptionStatusIncompleteExpired}
	for _, status := range free {
		assert.False(t, (&Subscription{Status: status}).OccupiesUserSlot(), status)
	}
}

func TestTransactionIsTerminal(t *testing.T) {
	t.Parallel()

	assert.False(t, (&Transaction{Status: TransactionStatusPending}).IsTerminal())
	assert.True(t, (&Transaction{Status: TransactionStatusSucceeded}).IsTerminal())
	assert.True(t, (&Transaction{Status: TransactionStatusFailed}).IsTerminal())
}
