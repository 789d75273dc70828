package repository

import (
	"github.com/fanlink/fanlink/app/models"
	"gorm.io/gorm"
)

// chatRepository implements the ChatRepository interface
type chatRepository struct {
	db *gorm.DB
}

// NewChatRepository creates a new chat repository instance
func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

// GetOrCreateConversation resolves the conversation between two users,
// creating it when absent. Sending a message also clears any per-user
// delete flag so the thread reappears for both sides.
func (r *chatRepository) GetOrCreateConversation(userA, userB uint) (*models.Conversation, error) {
	a, b := models.OrderConversationPair(userA, userB)
	var conv models.Conversation
	err := r.db.Where("user_a_id = ? AND user_b_id = ?", a, b).First(&conv).Error
	if err == nil {
		if conv.DeletedForA || conv.DeletedForB {
			conv.DeletedForA = false
			conv.DeletedForB = false
			if err := r.db.Model(&conv).Updates(map[string]interface{}{
				"deleted_for_a": false,
				"deleted_for_b": false,
			}).Error; err != nil {
				return nil, err
			}
		}
		return &conv, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}
	conv = models.Conversation{UserAID: a, UserBID: b}
	if err := r.db.Create(&conv).Error; err != nil {
		return nil, err
	}
	return &conv, nil
}

// GetConversationByID retrieves a conversation by its ID
func (r *chatRepository) GetConversationByID(id uint) (*models.Conversation, error) {
	var conv models.Conversation
	err := r.db.First(&conv, id).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// GetConversationsForUser returns the user's visible conversations,
// most recent activity first.
func (r *chatRepository) GetConversationsForUser(userID uint) ([]models.Conversation, error) {
	var convs []models.Conversation
	err := r.db.
		Where("(user_a_id = ? AND deleted_for_a = ?) OR (user_b_id = ? AND deleted_for_b = ?)",
			userID, false, userID, false).
		Order("updated_at DESC").
		Find(&convs).Error
	return convs, err
}

// TouchConversation bumps updated_at so the thread sorts to the top
func (r *chatRepository) TouchConversation(id uint) error {
	return r.db.Model(&models.Conversation{}).Where("id = ?", id).
		Update("updated_at", gorm.Expr("CURRENT_TIMESTAMP")).Error
}

// DeleteConversationForUser soft-deletes the thread for one participant.
// Once both sides deleted it the row and its messages are removed for real.
func (r *chatRepository) DeleteConversationForUser(conversationID, userID uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var conv models.Conversation
		if err := tx.First(&conv, conversationID).Error; err != nil {
			return err
		}
		switch userID {
		case conv.UserAID:
			conv.DeletedForA = true
		case conv.UserBID:
			conv.DeletedForB = true
		default:
			return gorm.ErrRecordNotFound
		}
		if conv.DeletedForA && conv.DeletedForB {
			if err := tx.Where("conversation_id = ?", conv.ID).
				Delete(&models.Message{}).Error; err != nil {
				return err
			}
			return tx.Delete(&conv).Error
		}
		return tx.Model(&conv).Updates(map[string]interface{}{
			"deleted_for_a": conv.DeletedForA,
			"deleted_for_b": conv.DeletedForB,
		}).Error
	})
}

// CreateMessage creates a new message
func (r *chatRepository) CreateMessage(message *models.Message) error {
	return r.db.Create(message).Error
}

// GetMessageByID retrieves a message by its ID
func (r *chatRepository) GetMessageByID(id uint) (*models.Message, error) {
	var message models.Message
	err := r.db.First(&message, id).Error
	if err != nil {
		return nil, err
	}
	return &message, nil
}

// GetMessages returns the messages of a conversation visible to the viewer,
// oldest first.
func (r *chatRepository) GetMessages(conversationID, viewerID uint, offset, limit int) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.
		Where("conversation_id = ?", conversationID).
		Where("(sender_id = ? AND deleted_for_sender = ?) OR (receiver_id = ? AND deleted_for_recv = ?)",
			viewerID, false, viewerID, false).
		Order("created_at ASC").
		Offset(offset).Limit(limit).
		Find(&messages).Error
	return messages, err
}

// MarkConversationRead flags every unread message addressed to the reader
// in one statement and returns the number of rows touched.
func (r *chatRepository) MarkConversationRead(conversationID, readerID uint) (int64, error) {
	res := r.db.Model(&models.Message{}).
		Where("conversation_id = ? AND receiver_id = ? AND is_read = ?", conversationID, readerID, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

// GetUnreadMessages returns all unread messages addressed to the user
func (r *chatRepository) GetUnreadMessages(userID uint) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.
		Where("receiver_id = ? AND is_read = ? AND deleted_for_recv = ?", userID, false, false).
		Order("created_at DESC").
		Find(&messages).Error
	return messages, err
}

// CountUnread counts unread messages addressed to the user
func (r *chatRepository) CountUnread(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Message{}).
		Where("receiver_id = ? AND is_read = ? AND deleted_for_recv = ?", userID, false, false).
		Count(&count).Error
	return count, err
}

// UnlockMessage clears the paid-media lock. The write is an absolute state
// overwrite so webhook re-delivery stays a no-op.
func (r *chatRepository) UnlockMessage(messageID uint) error {
	return r.db.Model(&models.Message{}).Where("id = ?", messageID).
		Update("is_locked", false).Error
}

// DeleteMessageForUser soft-deletes a message for one side; the row goes
// away for real once both sides deleted it.
func (r *chatRepository) DeleteMessageForUser(messageID, userID uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var msg models.Message
		if err := tx.First(&msg, messageID).Error; err != nil {
			return err
		}
		switch userID {
		case msg.SenderID:
			msg.DeletedForSender = true
		case msg.ReceiverID:
			msg.DeletedForRecv = true
		default:
			return gorm.ErrRecordNotFound
		}
		if msg.DeletedForSender && msg.DeletedForRecv {
			return tx.Delete(&msg).Error
		}
		return tx.Model(&msg).Updates(map[string]interface{}{
			"deleted_for_sender": msg.DeletedForSender,
			"deleted_for_recv":   msg.DeletedForRecv,
		}).Error
	})
}
