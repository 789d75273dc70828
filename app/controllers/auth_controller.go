package controllers

import (
	"errors"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fanlink/fanlink/app/models"
	"github.com/fanlink/fanlink/app/repository"
	"github.com/fanlink/fanlink/internal/pkg/env"
	"github.com/fanlink/fanlink/internal/pkg/jobqueue"
	"github.com/fanlink/fanlink/internal/pkg/token"
	"github.com/fanlink/fanlink/internal/pkg/usercontext"
	"github.com/fanlink/fanlink/internal/pkg/utils"
)

type registerRequest struct {
	Name     string `json:"name" validate:"required,min=3,max=150"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type updateProfileRequest struct {
	Bio       *string `json:"bio" validate:"omitempty,max=1000"`
	AvatarURL *string `json:"avatar_url" validate:"omitempty,url,max=255"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=6"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6"`
}

func maxSessionsPerUser() int {
	n, err := strconv.Atoi(env.GetEnv("MAX_SESSIONS_PER_USER", "3"))
	if err != nil || n < 1 {
		return 3
	}
	return n
}

// HandleRegister creates a new account and queues the welcome email.
func HandleRegister(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return badRequest(c, "Validation failed: "+err.Error())
	}

	repos := repository.GetGlobalRepositories()
	if _, err := repos.User.GetByEmail(req.Email); err == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "conflict", "message": "Email already registered"})
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return internalError(c, "Failed to check email")
	}

	user, err := models.CreateUser(req.Name, req.Email, req.Password)
	if err != nil {
		return badRequest(c, "Validation failed: "+err.Error())
	}
	user.AvatarURL = utils.GetGravatarURL(user.Email, 200)
	if err := repos.User.Create(user); err != nil {
		return internalError(c, "Failed to create user")
	}

	if err := jobqueue.EnqueueEmail(jobqueue.EmailJobPayload{
		To:       user.Email,
		Template: models.EmailTemplateWelcome,
		Data:     map[string]string{"Name": user.Name},
	}); err != nil {
		log.Printf("welcome email enqueue failed for %s: %v", user.Email, err)
	}

	return c.Status(fiber.StatusCreated).JSON(user)
}

// HandleLogin verifies credentials and opens a session. The session cap is
// enforced by evicting the oldest live sessions before the new row is
// created.
func HandleLogin(tokens *token.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req loginRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return badRequest(c, "Validation failed: "+err.Error())
		}

		repos := repository.GetGlobalRepositories()
		user, err := repos.User.GetByEmail(req.Email)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid credentials"})
			}
			return internalError(c, "Login failed")
		}
		if !user.CheckPassword(req.Password) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid credentials"})
		}
		if !user.IsActive() {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "User inactive"})
		}

		max := maxSessionsPerUser()
		count, err := repos.Session.CountLiveByUserID(user.ID)
		if err != nil {
			return internalError(c, "Login failed")
		}
		if int(count) >= max {
			if err := repos.Session.EvictOldestForUser(user.ID, max); err != nil {
				return internalError(c, "Login failed")
			}
		}

		jti := uuid.NewString()
		session := &models.Session{
			UserID:    user.ID,
			JTI:       jti,
			Device:    deviceLabel(c),
			Valid:     true,
			ExpiresAt: time.Now().Add(tokens.RefreshTTL()),
		}
		if err := repos.Session.Create(session); err != nil {
			return internalError(c, "Login failed")
		}

		access, refresh, err := tokens.IssuePair(user.ID, user.Email, jti)
		if err != nil {
			return internalError(c, "Login failed")
		}

		now := time.Now()
		user.LastLoginAt = &now
		if err := repos.User.Update(user); err != nil {
			log.Printf("last login update failed for user %d: %v", user.ID, err)
		}

		return c.JSON(fiber.Map{
			"access_token":  access,
			"refresh_token": refresh,
			"token_type":    "bearer",
			"user":          user,
		})
	}
}

// HandleRefreshToken exchanges a refresh token for a new pair. The session
// row is rotated in place with a fresh JTI, which makes each refresh token
// single use: replaying the old one finds no matching session.
func HandleRefreshToken(tokens *token.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req refreshRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return badRequest(c, "Validation failed: "+err.Error())
		}

		claims, err := tokens.Verify(token.KindRefresh, req.RefreshToken)
		if err != nil {
			if errors.Is(err, token.ErrTokenExpired) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "TOKEN_EXPIRED", "message": "Refresh token expired"})
			}
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "INVALID_TOKEN", "message": "Refresh token invalid"})
		}

		repos := repository.GetGlobalRepositories()
		session, err := repos.Session.GetByJTI(claims.ID)
		if err != nil || session.UserID != claims.UserID {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "SESSION_INVALID", "message": "Session no longer valid"})
		}

		newJTI := uuid.NewString()
		if err := repos.Session.Rotate(session.ID, newJTI, time.Now().Add(tokens.RefreshTTL())); err != nil {
			return internalError(c, "Token refresh failed")
		}

		access, refresh, err := tokens.IssuePair(claims.UserID, claims.Email, newJTI)
		if err != nil {
			return internalError(c, "Token refresh failed")
		}

		return c.JSON(fiber.Map{
			"access_token":  access,
			"refresh_token": refresh,
			"token_type":    "bearer",
		})
	}
}

// HandleLogout invalidates the session behind the presented access token.
func HandleLogout(c *fiber.Ctx) error {
	jti := usercontext.GetJTI(c)
	if jti == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing bearer token"})
	}
	if err := repository.GetGlobalRepositories().Session.Invalidate(jti); err != nil {
		return internalError(c, "Logout failed")
	}
	return c.JSON(fiber.Map{"message": "Logged out"})
}

// HandleLogoutAll invalidates every session of the user.
func HandleLogoutAll(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)
	if err := repository.GetGlobalRepositories().Session.InvalidateAllForUser(userID); err != nil {
		return internalError(c, "Logout failed")
	}
	return c.JSON(fiber.Map{"message": "All sessions logged out"})
}

// HandleProfile returns the authenticated user's account.
func HandleProfile(c *fiber.Ctx) error {
	user, err := repository.GetGlobalRepositories().User.GetByID(usercontext.GetUserID(c))
	if err != nil {
		return notFound(c, "User not found")
	}
	return c.JSON(user)
}

// HandleUpdateProfile updates the viewer's public profile fields. Absent
// fields stay untouched; an explicit empty string clears the field.
func HandleUpdateProfile(c *fiber.Ctx) error {
	var req updateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return badRequest(c, "Validation failed: "+err.Error())
	}

	repos := repository.GetGlobalRepositories()
	user, err := repos.User.GetByID(usercontext.GetUserID(c))
	if err != nil {
		return notFound(c, "User not found")
	}

	if req.Bio != nil {
		user.Bio = *req.Bio
	}
	if req.AvatarURL != nil {
		user.AvatarURL = *req.AvatarURL
	}
	if err := repos.User.Update(user); err != nil {
		return internalError(c, "Profile update failed")
	}
	return c.JSON(user)
}

// HandleChangePassword verifies the current password and replaces it.
func HandleChangePassword(c *fiber.Ctx) error {
	var req changePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return badRequest(c, "Validation failed: "+err.Error())
	}

	repos := repository.GetGlobalRepositories()
	user, err := repos.User.GetByID(usercontext.GetUserID(c))
	if err != nil {
		return notFound(c, "User not found")
	}
	if !user.CheckPassword(req.CurrentPassword) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Current password incorrect"})
	}
	if err := user.SetPassword(req.NewPassword); err != nil {
		return internalError(c, "Password change failed")
	}
	if err := repos.User.Update(user); err != nil {
		return internalError(c, "Password change failed")
	}
	return c.JSON(fiber.Map{"message": "Password changed"})
}

// HandleForgotPassword issues a reset token and mails the reset link. The
// response is identical whether the email exists or not.
func HandleForgotPassword(c *fiber.Ctx) error {
	var req forgotPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return badRequest(c, "Validation failed: "+err.Error())
	}

	repos := repository.GetGlobalRepositories()
	user, err := repos.User.GetByEmail(req.Email)
	if err == nil {
		plain := user.GenerateResetPasswordToken()
		if err := repos.User.Update(user); err != nil {
			log.Printf("reset token persist failed for %s: %v", req.Email, err)
		} else {
			link := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", ""), "/") + "/reset-password?token=" + plain
			if err := jobqueue.EnqueueEmail(jobqueue.EmailJobPayload{
				To:       user.Email,
				Template: models.EmailTemplatePasswordReset,
				Data:     map[string]string{"Name": user.Name, "ResetLink": link},
			}); err != nil {
				log.Printf("reset email enqueue failed for %s: %v", user.Email, err)
			}
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return internalError(c, "Request failed")
	}

	return c.JSON(fiber.Map{"message": "If the email exists, a reset link has been sent"})
}

// HandleResetPassword consumes a reset token and sets the new password.
// Every open session of the user is invalidated.
func HandleResetPassword(c *fiber.Ctx) error {
	var req resetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return badRequest(c, "Validation failed: "+err.Error())
	}

	repos := repository.GetGlobalRepositories()
	user, err := repos.User.GetByResetTokenHash(models.HashResetToken(req.Token))
	if err != nil || !user.IsResetTokenValid(req.Token) {
		return badRequest(c, "Invalid or expired reset token")
	}

	if err := user.SetPassword(req.NewPassword); err != nil {
		return internalError(c, "Password reset failed")
	}
	user.ClearResetToken()
	if err := repos.User.Update(user); err != nil {
		return internalError(c, "Password reset failed")
	}
	if err := repos.Session.InvalidateAllForUser(user.ID); err != nil {
		log.Printf("session invalidation failed for user %d: %v", user.ID, err)
	}

	return c.JSON(fiber.Map{"message": "Password reset"})
}

// deviceLabel derives a short session label from the user agent.
func deviceLabel(c *fiber.Ctx) string {
	ua := strings.TrimSpace(c.Get(fiber.HeaderUserAgent))
	if len(ua) > 255 {
		ua = ua[:255]
	}
	return ua
}
