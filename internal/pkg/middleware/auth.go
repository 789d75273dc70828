package middleware

import (
	"errors"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/fanlink/fanlink/app/models"
	"github.com/fanlink/fanlink/app/repository"
	"github.com/fanlink/fanlink/internal/pkg/token"
	"github.com/fanlink/fanlink/internal/pkg/usercontext"
)

// BearerAuthMiddleware authenticates requests by access token. Verification
// is two steps: the JWT must be valid and unexpired, and its JTI must still
// resolve to a live session row. Logout and cap eviction fail the second
// step even while the token itself has time left.
func BearerAuthMiddleware(tokens *token.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := extractBearerToken(c)
		if raw == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing bearer token"})
		}

		claims, err := tokens.Verify(token.KindAccess, raw)
		if err != nil {
			if errors.Is(err, token.ErrTokenExpired) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "TOKEN_EXPIRED", "message": "Access token expired"})
			}
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "INVALID_TOKEN", "message": "Access token invalid"})
		}

		repos := repository.GetGlobalRepositories()
		session, err := repos.Session.GetByJTI(claims.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "SESSION_INVALID", "message": "Session no longer valid"})
			}
			log.Printf("session lookup failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Session verification failed"})
		}
		if session.UserID != claims.UserID {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "SESSION_INVALID", "message": "Session no longer valid"})
		}

		user, err := repos.User.GetByID(claims.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "SESSION_INVALID", "message": "Session no longer valid"})
			}
			log.Printf("user lookup failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "User verification failed"})
		}
		if user.Status != models.STATUS_ACTIVE {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "User inactive"})
		}

		usercontext.SetUserContext(c, usercontext.UserContext{
			UserID:     user.ID,
			Username:   user.Name,
			Email:      user.Email,
			JTI:        claims.ID,
			IsLoggedIn: true,
			IsAdmin:    user.Role == models.ROLE_ADMIN,
		})

		return c.Next()
	}
}

// RequireAdmin rejects requests from non-admin users. Must run after
// BearerAuthMiddleware.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !usercontext.IsAdmin(c) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "Admin access required"})
		}
		return c.Next()
	}
}

// RequireActiveSubscription gates premium routes on a subscription in a
// paying state. Must run after BearerAuthMiddleware.
func RequireActiveSubscription() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := usercontext.GetUserID(c)
		if userID == 0 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing bearer token"})
		}
		active, err := repository.GetGlobalRepositories().Payment.HasActiveSubscription(userID)
		if err != nil {
			log.Printf("subscription check failed for user %d: %v", userID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Subscription check failed"})
		}
		if !active {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "subscription_required", "message": "Active subscription required"})
		}
		return c.Next()
	}
}

func extractBearerToken(c *fiber.Ctx) string {
	header := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
