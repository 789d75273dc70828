package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fanlink/fanlink/app/repository"
	"github.com/fanlink/fanlink/internal/pkg/usercontext"
)

// HandleGetNotifications lists the viewer's notifications newest first.
func HandleGetNotifications(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)
	offset, limit := parsePagination(c)

	repos := repository.GetGlobalRepositories()
	notifications, err := repos.Notification.GetByRecipient(userID, offset, limit)
	if err != nil {
		return internalError(c, "Failed to load notifications")
	}
	unread, err := repos.Notification.CountUnread(userID)
	if err != nil {
		return internalError(c, "Failed to load notifications")
	}
	return c.JSON(fiber.Map{"notifications": notifications, "unread": unread, "skip": offset, "limit": limit})
}

// HandleMarkNotificationRead marks one of the viewer's notifications read.
func HandleMarkNotificationRead(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return jsonError(c, err)
	}
	if err := repository.GetGlobalRepositories().Notification.MarkRead(id, usercontext.GetUserID(c)); err != nil {
		return notFound(c, "Notification not found")
	}
	return c.JSON(fiber.Map{"message": "Notification read"})
}

// HandleMarkAllNotificationsRead marks every notification of the viewer read.
func HandleMarkAllNotificationsRead(c *fiber.Ctx) error {
	if err := repository.GetGlobalRepositories().Notification.MarkAllRead(usercontext.GetUserID(c)); err != nil {
		return internalError(c, "Failed to mark notifications read")
	}
	return c.JSON(fiber.Map{"message": "All notifications read"})
}
