package repository

import (
	"time"

	"github.com/fanlink/fanlink/app/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByResetTokenHash(hash string) (*models.User, error)
	GetByStripeCustomerID(customerID string) (*models.User, error)
	Update(user *models.User) error
	Delete(id uint) error
	List(offset, limit int) ([]models.User, error)
	Count() (int64, error)
	Search(query string) ([]models.User, error)
}

// SessionRepository defines the interface for session-related database operations
type SessionRepository interface {
	Create(session *models.Session) error
	GetByJTI(jti string) (*models.Session, error)
	GetLiveByUserID(userID uint) ([]models.Session, error)
	CountLiveByUserID(userID uint) (int64, error)
	Rotate(sessionID uint, newJTI string, newExpiry time.Time) error
	Invalidate(jti string) error
	InvalidateAllForUser(userID uint) error
	EvictOldestForUser(userID uint, keep int) error
	DeleteExpired() (int64, error)
}

// PostRepository defines the interface for post-related database operations
type PostRepository interface {
	Create(post *models.Post) error
	GetByID(id uint) (*models.Post, error)
	GetByUserID(userID uint, offset, limit int) ([]models.Post, error)
	List(offset, limit int) ([]models.Post, error)
	ListForFeed(viewerID uint, offset, limit int) ([]models.Post, error)
	Update(post *models.Post) error
	Delete(id uint) error
	Count() (int64, error)
	CountByUserID(userID uint) (int64, error)
	AddViewCounts(counts map[uint]int64) error

	ToggleLike(userID, postID uint) (bool, error)
	IsLikedBy(userID, postID uint) (bool, error)

	CreateComment(comment *models.Comment) error
	GetCommentByID(id uint) (*models.Comment, error)
	GetComments(postID uint, offset, limit int) ([]models.Comment, error)
	UpdateComment(comment *models.Comment) error
	DeleteComment(id uint) error
}

// FollowRepository defines the interface for follow-graph operations
type FollowRepository interface {
	Create(follow *models.Follow) error
	Delete(followerID, followeeID uint) error
	Exists(followerID, followeeID uint) (bool, error)
	GetFollowers(userID uint, offset, limit int) ([]models.User, error)
	GetFollowing(userID uint, offset, limit int) ([]models.User, error)
	CountFollowers(userID uint) (int64, error)
	CountFollowing(userID uint) (int64, error)
}

// ChatRepository defines the interface for conversation and message operations
type ChatRepository interface {
	GetOrCreateConversation(userA, userB uint) (*models.Conversation, error)
	GetConversationByID(id uint) (*models.Conversation, error)
	GetConversationsForUser(userID uint) ([]models.Conversation, error)
	TouchConversation(id uint) error
	DeleteConversationForUser(conversationID, userID uint) error

	CreateMessage(message *models.Message) error
	GetMessageByID(id uint) (*models.Message, error)
	GetMessages(conversationID, viewerID uint, offset, limit int) ([]models.Message, error)
	MarkConversationRead(conversationID, readerID uint) (int64, error)
	GetUnreadMessages(userID uint) ([]models.Message, error)
	CountUnread(userID uint) (int64, error)
	UnlockMessage(messageID uint) error
	DeleteMessageForUser(messageID, userID uint) error
}

// NotificationRepository defines the interface for notification operations
type NotificationRepository interface {
	Create(notification *models.Notification) error
	GetByRecipient(recipientID uint, offset, limit int) ([]models.Notification, error)
	CountUnread(recipientID uint) (int64, error)
	MarkRead(id, recipientID uint) error
	MarkAllRead(recipientID uint) error
}

// EmailTemplateRepository defines the interface for email template operations
type EmailTemplateRepository interface {
	Create(template *models.EmailTemplate) error
	GetByID(id uint) (*models.EmailTemplate, error)
	GetByName(name string) (*models.EmailTemplate, error)
	GetAll() ([]models.EmailTemplate, error)
	Update(template *models.EmailTemplate) error
	Delete(id uint) error
	NameExists(name string) (bool, error)
	NameExistsExceptID(name string, id uint) (bool, error)
}

// PaymentRepository defines the interface for billing state: subscription
// mirrors, the transaction ledger and the webhook event dedupe table.
type PaymentRepository interface {
	UpsertSubscription(sub *models.Subscription) error
	GetSubscriptionByProviderID(providerID string) (*models.Subscription, error)
	GetSubscriptionsByUserID(userID uint) ([]models.Subscription, error)
	GetSlotSubscriptionForUser(userID uint) (*models.Subscription, error)
	HasActiveSubscription(userID uint) (bool, error)

	CreateTransaction(tx *models.Transaction) error
	GetTransactionByID(id uint) (*models.Transaction, error)
	GetTransactionByPaymentIntentID(intentID string) (*models.Transaction, error)
	GetPendingTransactionForMessage(messageID uint) (*models.Transaction, error)
	UpdateTransactionStatus(intentID, status string) error
	GetTransactionsForUser(userID uint, offset, limit int) ([]models.Transaction, error)

	RecordWebhookEvent(event *models.WebhookEvent) (created bool, err error)
	MarkWebhookEventProcessed(provider, providerEventID string, processingErr error) error
}

// Repositories struct holds all repository instances
type Repositories struct {
	User          UserRepository
	Session       SessionRepository
	Post          PostRepository
	Follow        FollowRepository
	Chat          ChatRepository
	Notification  NotificationRepository
	EmailTemplate EmailTemplateRepository
	Payment       PaymentRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:          NewUserRepository(db),
		Session:       NewSessionRepository(db),
		Post:          NewPostRepository(db),
		Follow:        NewFollowRepository(db),
		Chat:          NewChatRepository(db),
		Notification:  NewNotificationRepository(db),
		EmailTemplate: NewEmailTemplateRepository(db),
		Payment:       NewPaymentRepository(db),
	}
}
