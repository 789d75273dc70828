package controllers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fanlink/fanlink/app/models"
	"github.com/fanlink/fanlink/app/repository"
	"github.com/fanlink/fanlink/internal/pkg/token"
	"github.com/fanlink/fanlink/internal/pkg/usercontext"
)

func testTokenManager() *token.Manager {
	return token.NewManager([]byte("test-access"), []byte("test-refresh"), time.Minute, time.Hour)
}

func mustUser(t *testing.T, id uint, email, password string) *models.User {
	t.Helper()
	user, err := models.CreateUser("Test User", email, password)
	require.NoError(t, err)
	user.ID = id
	return user
}

func jsonRequest(method, target string, body interface{}) *http.Request {
	data, _ := json.Marshal(body)
	req, _ := http.NewRequest(method, target, bytes.NewReader(data))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return req
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func seedSession(t *testing.T, sessions *fakeSessionRepo, userID uint, jti string) *models.Session {
	t.Helper()
	s := &models.Session{
		UserID:    userID,
		JTI:       jti,
		Valid:     true,
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, sessions.Create(s))
	return s
}

// TestLoginSessionCap checks the cap semantics end to end: a login at the
// cap evicts exactly the single oldest session, a login below the cap
// evicts nothing.
func TestLoginSessionCap(t *testing.T) {
	tokens := testTokenManager()

	newApp := func() *fiber.App {
		app := fiber.New()
		app.Post("/auth/login", HandleLogin(tokens))
		return app
	}
	login := func(t *testing.T, app *fiber.App) *http.Response {
		resp, err := app.Test(jsonRequest(fiber.MethodPost, "/auth/login", fiber.Map{
			"email":    "alice@example.com",
			"password": "secret123",
		}), -1)
		require.NoError(t, err)
		return resp
	}

	t.Run("At cap evicts only the oldest", func(t *testing.T) {
		user := mustUser(t, 1, "alice@example.com", "secret123")
		sessions := newFakeSessionRepo()
		for _, jti := range []string{"oldest", "middle", "newest"} {
			seedSession(t, sessions, user.ID, jti)
		}
		repository.OverrideGlobalRepositories(&repository.Repositories{
			User:    newFakeUserRepo(user),
			Session: sessions,
		})

		resp := login(t, newApp())
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		live := sessions.live(user.ID)
		require.Len(t, live, 3)
		jtis := []string{live[0].JTI, live[1].JTI}
		assert.Equal(t, []string{"middle", "newest"}, jtis)
		assert.NotEqual(t, "oldest", live[2].JTI)
		assert.Equal(t, []int{3}, sessions.evictCalls)
	})

	t.Run("Below cap evicts nothing", func(t *testing.T) {
		user := mustUser(t, 1, "alice@example.com", "secret123")
		sessions := newFakeSessionRepo()
		seedSession(t, sessions, user.ID, "only")
		repository.OverrideGlobalRepositories(&repository.Repositories{
			User:    newFakeUserRepo(user),
			Session: sessions,
		})

		resp := login(t, newApp())
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		assert.Len(t, sessions.live(user.ID), 2)
		assert.Empty(t, sessions.evictCalls)
	})
}

// TestRefreshTokenSingleUse replays a refresh token after it was already
// exchanged. The rotation swaps the session JTI, so the replay must come
// back as 401 SESSION_INVALID while the freshly issued token keeps working.
func TestRefreshTokenSingleUse(t *testing.T) {
	tokens := testTokenManager()
	user := mustUser(t, 1, "alice@example.com", "secret123")
	sessions := newFakeSessionRepo()
	seedSession(t, sessions, user.ID, "jti-initial")
	repository.OverrideGlobalRepositories(&repository.Repositories{
		User:    newFakeUserRepo(user),
		Session: sessions,
	})

	_, firstRefresh, err := tokens.IssuePair(user.ID, user.Email, "jti-initial")
	require.NoError(t, err)

	app := fiber.New()
	app.Post("/auth/refresh-token", HandleRefreshToken(tokens))

	refresh := func(t *testing.T, tokenString string) *http.Response {
		resp, err := app.Test(jsonRequest(fiber.MethodPost, "/auth/refresh-token", fiber.Map{
			"refresh_token": tokenString,
		}), -1)
		require.NoError(t, err)
		return resp
	}

	// First exchange succeeds and returns a new pair.
	resp := refresh(t, firstRefresh)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	secondRefresh, _ := body["refresh_token"].(string)
	require.NotEmpty(t, secondRefresh)
	require.NotEqual(t, firstRefresh, secondRefresh)

	// Replaying the consumed token fails.
	resp = refresh(t, firstRefresh)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "SESSION_INVALID", decodeBody(t, resp)["error"])

	// The rotated token is still good.
	resp = refresh(t, secondRefresh)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestUpdateProfile(t *testing.T) {
	newApp := func(userID uint) *fiber.App {
		app := fiber.New()
		app.Patch("/auth/profile", func(c *fiber.Ctx) error {
			usercontext.SetUserContext(c, usercontext.UserContext{UserID: userID, IsLoggedIn: true})
			return c.Next()
		}, HandleUpdateProfile)
		return app
	}

	t.Run("Updates bio and avatar", func(t *testing.T) {
		user := mustUser(t, 1, "alice@example.com", "secret123")
		users := newFakeUserRepo(user)
		repository.OverrideGlobalRepositories(&repository.Repositories{User: users})

		resp, err := newApp(1).Test(jsonRequest(fiber.MethodPatch, "/auth/profile", fiber.Map{
			"bio":        "Painter and gamer",
			"avatar_url": "https://cdn.example.com/a.png",
		}), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		updated, err := users.GetByID(1)
		require.NoError(t, err)
		assert.Equal(t, "Painter and gamer", updated.Bio)
		assert.Equal(t, "https://cdn.example.com/a.png", updated.AvatarURL)
	})

	t.Run("Absent fields stay untouched", func(t *testing.T) {
		user := mustUser(t, 1, "alice@example.com", "secret123")
		user.Bio = "Original bio"
		user.AvatarURL = "https://cdn.example.com/old.png"
		users := newFakeUserRepo(user)
		repository.OverrideGlobalRepositories(&repository.Repositories{User: users})

		resp, err := newApp(1).Test(jsonRequest(fiber.MethodPatch, "/auth/profile", fiber.Map{
			"bio": "New bio",
		}), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		updated, err := users.GetByID(1)
		require.NoError(t, err)
		assert.Equal(t, "New bio", updated.Bio)
		assert.Equal(t, "https://cdn.example.com/old.png", updated.AvatarURL)
	})

	t.Run("Rejects malformed avatar URL", func(t *testing.T) {
		user := mustUser(t, 1, "alice@example.com", "secret123")
		users := newFakeUserRepo(user)
		repository.OverrideGlobalRepositories(&repository.Repositories{User: users})

		resp, err := newApp(1).Test(jsonRequest(fiber.MethodPatch, "/auth/profile", fiber.Map{
			"avatar_url": "not a url",
		}), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})
}
