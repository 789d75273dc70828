package controllers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/fanlink/fanlink/app/models"
	"github.com/fanlink/fanlink/app/repository"
	"github.com/fanlink/fanlink/internal/pkg/usercontext"
)

// HandleFollow creates a follow edge from the viewer to the target user.
func HandleFollow(c *fiber.Ctx) error {
	targetID, err := parseIDParam(c, "id")
	if err != nil {
		return jsonError(c, err)
	}
	userID := usercontext.GetUserID(c)
	if targetID == userID {
		return badRequest(c, "Cannot follow yourself")
	}

	repos := repository.GetGlobalRepositories()
	if _, err := repos.User.GetByID(targetID); err != nil {
		return notFound(c, "User not found")
	}

	exists, err := repos.Follow.Exists(userID, targetID)
	if err != nil {
		return internalError(c, "Failed to follow")
	}
	if exists {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "conflict", "message": "Already following"})
	}

	if err := repos.Follow.Create(&models.Follow{FollowerID: userID, FolloweeID: targetID}); err != nil {
		return internalError(c, "Failed to follow")
	}

	enqueueNotification(targetID, userID, models.NotificationTypeFollow,
		fmt.Sprintf("%s started following you", usercontext.GetUsername(c)), userID)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Following"})
}

// HandleUnfollow removes the follow edge. Unfollowing someone you do not
// follow is a no-op.
func HandleUnfollow(c *fiber.Ctx) error {
	targetID, err := parseIDParam(c, "id")
	if err != nil {
		return jsonError(c, err)
	}
	if err := repository.GetGlobalRepositories().Follow.Delete(usercontext.GetUserID(c), targetID); err != nil {
		return internalError(c, "Failed to unfollow")
	}
	return c.JSON(fiber.Map{"message": "Unfollowed"})
}

// HandleGetFollowers lists the users following the given user.
func HandleGetFollowers(c *fiber.Ctx) error {
	userID, err := parseIDParam(c, "id")
	if err != nil {
		return jsonError(c, err)
	}
	offset, limit := parsePagination(c)

	repos := repository.GetGlobalRepositories()
	followers, err := repos.Follow.GetFollowers(userID, offset, limit)
	if err != nil {
		return internalError(c, "Failed to load followers")
	}
	count, err := repos.Follow.CountFollowers(userID)
	if err != nil {
		return internalError(c, "Failed to load followers")
	}
	return c.JSON(fiber.Map{"followers": followers, "total": count, "skip": offset, "limit": limit})
}

// HandleGetFollowing lists the users the given user follows.
func HandleGetFollowing(c *fiber.Ctx) error {
	userID, err := parseIDParam(c, "id")
	if err != nil {
		return jsonError(c, err)
	}
	offset, limit := parsePagination(c)

	repos := repository.GetGlobalRepositories()
	following, err := repos.Follow.GetFollowing(userID, offset, limit)
	if err != nil {
		return internalError(c, "Failed to load following")
	}
	count, err := repos.Follow.CountFollowing(userID)
	if err != nil {
		return internalError(c, "Failed to load following")
	}
	return c.JSON(fiber.Map{"following": following, "total": count, "skip": offset, "limit": limit})
}
