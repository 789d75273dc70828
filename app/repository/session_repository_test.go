package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fanlink/fanlink/app/models"
)

func sessionsWithIDs(ids ...uint) []models.Session {
	sessions := make([]models.Session, 0, len(ids))
	for _, id := range ids {
		sessions = append(sessions, models.Session{ID: id})
	}
	return sessions
}

// TestEvictableSessionIDs pins down the cap semantics: logging in at the
// cap evicts exactly the single oldest session and nothing else.
func TestEvictableSessionIDs(t *testing.T) {
	tests := []struct {
		name     string
		sessions []models.Session
		keep     int
		expected []uint
	}{
		{
			"Below cap evicts nothing",
			sessionsWithIDs(1, 2),
			3,
			nil,
		},
		{
			"At cap evicts only the oldest",
			sessionsWithIDs(1, 2, 3),
			3,
			[]uint{1},
		},
		{
			"Over cap evicts down to keep minus one",
			sessionsWithIDs(1, 2, 3, 4, 5),
			3,
			[]uint{1, 2, 3},
		},
		{
			"Keep of one evicts everything",
			sessionsWithIDs(1, 2, 3),
			1,
			[]uint{1, 2, 3},
		},
		{
			"Zero keep is clamped to one",
			sessionsWithIDs(1, 2),
			0,
			[]uint{1, 2},
		},
		{
			"No sessions",
			nil,
			3,
			nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, EvictableSessionIDs(tt.sessions, tt.keep))
		})
	}
}
