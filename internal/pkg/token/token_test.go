package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(accessTTL, refreshTTL time.Duration) *Manager {
	return NewManager([]byte("test-access"), []byte("test-refresh"), accessTTL, refreshTTL)
}

func TestIssuePairRoundTrip(t *testing.T) {
	m := newTestManager(time.Minute, time.Hour)

	access, refresh, err := m.IssuePair(42, "user@example.com", "jti-1")
	require.NoError(t, err)
	require.NotEmpty(t, access)
	require.NotEmpty(t, refresh)
	assert.NotEqual(t, access, refresh)

	claims, err := m.Verify(KindAccess, access)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "user@example.com", claims.Email)
	assert.Equal(t, "jti-1", claims.ID)

	claims, err = m.Verify(KindRefresh, refresh)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "jti-1", claims.ID)
}

func TestVerifyRejectsCrossKindTokens(t *testing.T) {
	m := newTestManager(time.Minute, time.Hour)

	access, refresh, err := m.IssuePair(1, "a@b.c", "jti-2")
	require.NoError(t, err)

	_, err = m.Verify(KindRefresh, access)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = m.Verify(KindAccess, refresh)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerifyExpiredToken(t *testing.T) {
	m := newTestManager(-time.Minute, time.Hour)

	access, _, err := m.IssuePair(7, "a@b.c", "jti-3")
	require.NoError(t, err)

	_, err = m.Verify(KindAccess, access)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerifyGarbage(t *testing.T) {
	m := newTestManager(time.Minute, time.Hour)

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"not a jwt", "hello world"},
		{"truncated", "eyJhbGciOiJIUzI1NiJ9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Verify(KindAccess, tt.token)
			assert.ErrorIs(t, err, ErrTokenInvalid)
		})
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	m1 := newTestManager(time.Minute, time.Hour)
	m2 := NewManager([]byte("other-access"), []byte("other-refresh"), time.Minute, time.Hour)

	access, _, err := m1.IssuePair(5, "a@b.c", "jti-4")
	require.NoError(t, err)

	_, err = m2.Verify(KindAccess, access)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}
