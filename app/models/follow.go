package models

import "time"

// Follow records that FollowerID follows FolloweeID. The unique pair
// index prevents duplicate edges; self-follows are rejected in the
// service layer.
type Follow struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	FollowerID uint      `gorm:"uniqueIndex:idx_follow_pair" json:"follower_id"`
	Follower   User      `gorm:"foreignKey:FollowerID" json:"follower,omitempty"`
	FolloweeID uint      `gorm:"uniqueIndex:idx_follow_pair" json:"followee_id"`
	Followee   User      `gorm:"foreignKey:FolloweeID" json:"followee,omitempty"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}
