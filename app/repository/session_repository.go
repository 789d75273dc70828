package repository

import (
	"time"

	"github.com/fanlink/fanlink/app/models"
	"gorm.io/gorm"
)

// sessionRepository implements the SessionRepository interface
type sessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository creates a new session repository instance
func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

// Create creates a new session row
func (r *sessionRepository) Create(session *models.Session) error {
	return r.db.Create(session).Error
}

// GetByJTI retrieves a session by its token identifier. Expired rows are
// filtered out here so callers never see a stale session as live.
func (r *sessionRepository) GetByJTI(jti string) (*models.Session, error) {
	var session models.Session
	err := r.db.Where("jti = ? AND valid = ? AND expires_at > ?", jti, true, time.Now()).
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// GetLiveByUserID returns all live sessions for a user, oldest first
func (r *sessionRepository) GetLiveByUserID(userID uint) ([]models.Session, error) {
	var sessions []models.Session
	err := r.db.Where("user_id = ? AND valid = ? AND expires_at > ?", userID, true, time.Now()).
		Order("created_at ASC").Find(&sessions).Error
	return sessions, err
}

// CountLiveByUserID counts the live sessions of a user
func (r *sessionRepository) CountLiveByUserID(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Session{}).
		Where("user_id = ? AND valid = ? AND expires_at > ?", userID, true, time.Now()).
		Count(&count).Error
	return count, err
}

// Rotate replaces the JTI and expiry of an existing session in place.
// The old JTI stops resolving the moment this commits, which is what
// makes refresh tokens single-use.
func (r *sessionRepository) Rotate(sessionID uint, newJTI string, newExpiry time.Time) error {
	return r.db.Model(&models.Session{}).Where("id = ?", sessionID).
		Updates(map[string]interface{}{
			"jti":        newJTI,
			"expires_at": newExpiry,
		}).Error
}

// Invalidate marks the session with the given JTI as no longer valid
func (r *sessionRepository) Invalidate(jti string) error {
	return r.db.Model(&models.Session{}).Where("jti = ?", jti).
		Update("valid", false).Error
}

// InvalidateAllForUser marks every session of a user as invalid
func (r *sessionRepository) InvalidateAllForUser(userID uint) error {
	return r.db.Model(&models.Session{}).Where("user_id = ? AND valid = ?", userID, true).
		Update("valid", false).Error
}

// EvictOldestForUser invalidates live sessions beyond the newest keep-1,
// making room for one new session under the cap.
func (r *sessionRepository) EvictOldestForUser(userID uint, keep int) error {
	sessions, err := r.GetLiveByUserID(userID)
	if err != nil {
		return err
	}
	ids := EvictableSessionIDs(sessions, keep)
	if len(ids) == 0 {
		return nil
	}
	return r.db.Model(&models.Session{}).Where("id IN ?", ids).
		Update("valid", false).Error
}

// EvictableSessionIDs selects the sessions to invalidate so that at most
// keep-1 remain, leaving room for exactly one new session under the cap.
// Sessions must be ordered oldest first.
func EvictableSessionIDs(sessions []models.Session, keep int) []uint {
	if keep < 1 {
		keep = 1
	}
	overflow := len(sessions) - (keep - 1)
	if overflow <= 0 {
		return nil
	}
	ids := make([]uint, 0, overflow)
	for _, s := range sessions[:overflow] {
		ids = append(ids, s.ID)
	}
	return ids
}

// DeleteExpired hard-deletes rows whose expiry has passed. Called from the
// background sweeper; liveness checks already exclude these rows.
func (r *sessionRepository) DeleteExpired() (int64, error) {
	res := r.db.Where("expires_at <= ?", time.Now()).Delete(&models.Session{})
	return res.RowsAffected, res.Error
}
