package models

import "time"

// Session binds one logged-in device to a revocable token identifier. The
// access/refresh tokens carry the JTI; the row here decides whether they are
// still honored. Deleting the row revokes every token minted for it.
type Session struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	JTI       string    `gorm:"type:varchar(64);not null;uniqueIndex" json:"jti"`
	Device    string    `gorm:"type:varchar(255)" json:"device"`
	Valid     bool      `gorm:"default:true" json:"valid"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsLive reports whether the session still authenticates requests. Rows past
// their expiry are treated as absent even before physical deletion.
func (s *Session) IsLive() bool {
	return s.Valid && time.Now().Before(s.ExpiresAt)
}
