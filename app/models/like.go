package models

import (
	"time"

	"gorm.io/gorm"
)

// Like is a unique user/post pair. The uniqueness constraint makes
// double-liking a no-op at the database level.
type Like struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex:idx_like_user_post" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	PostID    uint      `gorm:"uniqueIndex:idx_like_user_post" json:"post_id"`
	Post      Post      `gorm:"foreignKey:PostID" json:"post,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// ToggleLike creates the like when absent and removes it when present.
// Returns true when the post ends up liked.
func ToggleLike(db *gorm.DB, userID, postID uint) (bool, error) {
	var like Like
	err := db.Where("user_id = ? AND post_id = ?", userID, postID).First(&like).Error
	if err == nil {
		if err := db.Delete(&like).Error; err != nil {
			return true, err
		}
		return false, nil
	}
	if err != gorm.ErrRecordNotFound {
		return false, err
	}
	like = Like{UserID: userID, PostID: postID}
	if err := db.Create(&like).Error; err != nil {
		return false, err
	}
	return true, nil
}
