package repository

import (
	"github.com/fanlink/fanlink/app/models"
	"gorm.io/gorm"
)

// notificationRepository implements the NotificationRepository interface
type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a new notification repository instance
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

// Create creates a new notification
func (r *notificationRepository) Create(notification *models.Notification) error {
	return r.db.Create(notification).Error
}

// GetByRecipient returns a recipient's notifications, newest first
func (r *notificationRepository) GetByRecipient(recipientID uint, offset, limit int) ([]models.Notification, error) {
	var notifications []models.Notification
	err := r.db.Preload("Actor").Where("recipient_id = ?", recipientID).
		Order("created_at DESC").Offset(offset).Limit(limit).
		Find(&notifications).Error
	return notifications, err
}

// CountUnread counts a recipient's unread notifications
func (r *notificationRepository) CountUnread(recipientID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Count(&count).Error
	return count, err
}

// MarkRead flags one notification as read, scoped to its recipient
func (r *notificationRepository) MarkRead(id, recipientID uint) error {
	res := r.db.Model(&models.Notification{}).
		Where("id = ? AND recipient_id = ?", id, recipientID).
		Update("is_read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// MarkAllRead flags every unread notification of a recipient as read
func (r *notificationRepository) MarkAllRead(recipientID uint) error {
	return r.db.Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Update("is_read", true).Error
}
