package controllers

import (
	"errors"
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/fanlink/fanlink/app/models"
	"github.com/fanlink/fanlink/app/repository"
	"github.com/fanlink/fanlink/internal/pkg/usercontext"
)

type sendMessageRequest struct {
	ReceiverID uint   `json:"receiver_id" validate:"required"`
	Body       string `json:"body" validate:"required,min=1,max=5000"`
}

type sendImageMessageRequest struct {
	ReceiverID uint    `json:"receiver_id" validate:"required"`
	Body       string  `json:"body" validate:"max=5000"`
	ImageURL   string  `json:"image_url" validate:"required,max=255"`
	Price      float64 `json:"price" validate:"gte=0"`
}

// HandleSendMessage sends a plain text message.
func HandleSendMessage(c *fiber.Ctx) error {
	var req sendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return badRequest(c, "Validation failed: "+err.Error())
	}
	return sendMessage(c, req.ReceiverID, req.Body, "", 0)
}

// HandleSendImageMessage sends an image message. A price above zero makes
// it paid content: it is stored locked and the receiver sees a placeholder
// until the payment succeeds.
func HandleSendImageMessage(c *fiber.Ctx) error {
	var req sendImageMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return badRequest(c, "Validation failed: "+err.Error())
	}
	return sendMessage(c, req.ReceiverID, req.Body, req.ImageURL, req.Price)
}

func sendMessage(c *fiber.Ctx, receiverID uint, body, imageURL string, price float64) error {
	senderID := usercontext.GetUserID(c)
	if receiverID == senderID {
		return badRequest(c, "Cannot message yourself")
	}

	repos := repository.GetGlobalRepositories()
	if _, err := repos.User.GetByID(receiverID); err != nil {
		return notFound(c, "Receiver not found")
	}

	conv, err := repos.Chat.GetOrCreateConversation(senderID, receiverID)
	if err != nil {
		return internalError(c, "Failed to open conversation")
	}

	paid := imageURL != "" && price > 0
	msg := &models.Message{
		ConversationID: conv.ID,
		SenderID:       senderID,
		ReceiverID:     receiverID,
		Body:           body,
		ImageURL:       imageURL,
		Price:          price,
		IsPaidContent:  paid,
		IsLocked:       paid,
	}
	if err := repos.Chat.CreateMessage(msg); err != nil {
		return internalError(c, "Failed to send message")
	}
	if err := repos.Chat.TouchConversation(conv.ID); err != nil {
		log.Printf("conversation touch failed for %d: %v", conv.ID, err)
	}

	enqueueNotification(receiverID, senderID, models.NotificationTypeMessage,
		fmt.Sprintf("New message from %s", usercontext.GetUsername(c)), msg.ID)

	return c.Status(fiber.StatusCreated).JSON(presentMessage(*msg, senderID))
}

// HandleGetConversations lists the viewer's conversations, most recent
// activity first. Conversations the viewer deleted are hidden.
func HandleGetConversations(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)
	convs, err := repository.GetGlobalRepositories().Chat.GetConversationsForUser(userID)
	if err != nil {
		return internalError(c, "Failed to load conversations")
	}
	return c.JSON(fiber.Map{"conversations": convs})
}

// HandleGetMessages lists a conversation's messages for the viewer. Paid
// messages still locked for the viewer come back as placeholders without
// the image URL.
func HandleGetMessages(c *fiber.Ctx) error {
	convID, err := parseIDParam(c, "id")
	if err != nil {
		return jsonError(c, err)
	}
	viewerID := usercontext.GetUserID(c)

	repos := repository.GetGlobalRepositories()
	conv, err := repos.Chat.GetConversationByID(convID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound(c, "Conversation not found")
		}
		return internalError(c, "Failed to load conversation")
	}
	if !conv.HasParticipant(viewerID) {
		return notFound(c, "Conversation not found")
	}

	offset, limit := parsePagination(c)
	messages, err := repos.Chat.GetMessages(convID, viewerID, offset, limit)
	if err != nil {
		return internalError(c, "Failed to load messages")
	}

	views := make([]fiber.Map, 0, len(messages))
	for _, m := range messages {
		views = append(views, presentMessage(m, viewerID))
	}
	return c.JSON(fiber.Map{"messages": views, "skip": offset, "limit": limit})
}

// HandleMarkConversationRead marks every message addressed to the viewer
// in the conversation as read.
func HandleMarkConversationRead(c *fiber.Ctx) error {
	convID, err := parseIDParam(c, "id")
	if err != nil {
		return jsonError(c, err)
	}
	viewerID := usercontext.GetUserID(c)

	repos := repository.GetGlobalRepositories()
	conv, err := repos.Chat.GetConversationByID(convID)
	if err != nil || !conv.HasParticipant(viewerID) {
		return notFound(c, "Conversation not found")
	}

	updated, err := repos.Chat.MarkConversationRead(convID, viewerID)
	if err != nil {
		return internalError(c, "Failed to mark read")
	}
	return c.JSON(fiber.Map{"marked_read": updated})
}

// HandleGetUnread returns the viewer's unread messages and their count.
func HandleGetUnread(c *fiber.Ctx) error {
	viewerID := usercontext.GetUserID(c)
	repos := repository.GetGlobalRepositories()

	messages, err := repos.Chat.GetUnreadMessages(viewerID)
	if err != nil {
		return internalError(c, "Failed to load unread messages")
	}
	count, err := repos.Chat.CountUnread(viewerID)
	if err != nil {
		return internalError(c, "Failed to load unread messages")
	}

	views := make([]fiber.Map, 0, len(messages))
	for _, m := range messages {
		views = append(views, presentMessage(m, viewerID))
	}
	return c.JSON(fiber.Map{"messages": views, "count": count})
}

// HandleDeleteMessage hides a message for the viewer only.
func HandleDeleteMessage(c *fiber.Ctx) error {
	msgID, err := parseIDParam(c, "id")
	if err != nil {
		return jsonError(c, err)
	}
	viewerID := usercontext.GetUserID(c)

	repos := repository.GetGlobalRepositories()
	msg, err := repos.Chat.GetMessageByID(msgID)
	if err != nil {
		return notFound(c, "Message not found")
	}
	if msg.SenderID != viewerID && msg.ReceiverID != viewerID {
		return notFound(c, "Message not found")
	}

	if err := repos.Chat.DeleteMessageForUser(msgID, viewerID); err != nil {
		return internalError(c, "Failed to delete message")
	}
	return c.JSON(fiber.Map{"message": "Message deleted"})
}

// HandleDeleteConversation hides a conversation for the viewer. Once both
// participants deleted it, the thread and its messages are removed for
// real.
func HandleDeleteConversation(c *fiber.Ctx) error {
	convID, err := parseIDParam(c, "id")
	if err != nil {
		return jsonError(c, err)
	}
	viewerID := usercontext.GetUserID(c)

	repos := repository.GetGlobalRepositories()
	conv, err := repos.Chat.GetConversationByID(convID)
	if err != nil || !conv.HasParticipant(viewerID) {
		return notFound(c, "Conversation not found")
	}

	if err := repos.Chat.DeleteConversationForUser(convID, viewerID); err != nil {
		return internalError(c, "Failed to delete conversation")
	}
	return c.JSON(fiber.Map{"message": "Conversation deleted"})
}

// presentMessage shapes a message for one viewer. A locked paid message is
// delivered to its receiver as a placeholder: no image URL, just the price
// to unlock. The sender always sees the full message.
func presentMessage(m models.Message, viewerID uint) fiber.Map {
	view := fiber.Map{
		"id":              m.ID,
		"conversation_id": m.ConversationID,
		"sender_id":       m.SenderID,
		"receiver_id":     m.ReceiverID,
		"body":            m.Body,
		"is_paid_content": m.IsPaidContent,
		"is_locked":       m.IsLocked,
		"is_read":         m.IsRead,
		"created_at":      m.CreatedAt,
	}
	if m.ImageURL == "" {
		return view
	}
	if m.IsLocked && viewerID == m.ReceiverID {
		view["price"] = m.Price
		view["locked_placeholder"] = true
		return view
	}
	view["image_url"] = m.ImageURL
	if m.IsPaidContent {
		view["price"] = m.Price
	}
	return view
}
