package controllers

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/fanlink/fanlink/app/repository"
	"github.com/fanlink/fanlink/internal/pkg/usercontext"
)

// HandleSearchUsers finds users by name or email fragment. Open to every
// authenticated user so creators can be found and followed.
func HandleSearchUsers(c *fiber.Ctx) error {
	query := strings.TrimSpace(c.Query("q"))
	if len(query) < 2 {
		return badRequest(c, "Search query must be at least 2 characters")
	}

	users, err := repository.GetGlobalRepositories().User.Search(query)
	if err != nil {
		return internalError(c, "Search failed")
	}
	return c.JSON(fiber.Map{"users": users})
}

// HandleListUsers returns the paginated account list for admins.
func HandleListUsers(c *fiber.Ctx) error {
	offset, limit := parsePagination(c)
	repos := repository.GetGlobalRepositories()

	users, err := repos.User.List(offset, limit)
	if err != nil {
		return internalError(c, "Failed to list users")
	}
	total, err := repos.User.Count()
	if err != nil {
		return internalError(c, "Failed to list users")
	}
	return c.JSON(fiber.Map{"users": users, "total": total, "skip": offset, "limit": limit})
}

// HandleDeleteUser removes an account and kills its open sessions. Admins
// cannot delete themselves through this endpoint.
func HandleDeleteUser(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return jsonError(c, err)
	}
	if id == usercontext.GetUserID(c) {
		return badRequest(c, "Cannot delete your own account")
	}

	repos := repository.GetGlobalRepositories()
	if _, err := repos.User.GetByID(id); err != nil {
		return notFound(c, "User not found")
	}
	if err := repos.User.Delete(id); err != nil {
		return internalError(c, "Failed to delete user")
	}
	if err := repos.Session.InvalidateAllForUser(id); err != nil {
		log.Printf("session invalidation failed for deleted user %d: %v", id, err)
	}
	return c.JSON(fiber.Map{"message": "User deleted"})
}
