package token

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fanlink/fanlink/internal/pkg/env"
)

var (
	// ErrTokenExpired means the token was well formed and correctly signed
	// but its expiry has passed.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid covers every other verification failure: bad
	// signature, malformed token, wrong signing method.
	ErrTokenInvalid = errors.New("token invalid")
)

// Kind selects which secret and TTL a token is issued and verified with.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// Claims are the JWT claims carried by both token kinds. JTI ties the token
// to a session row; session liveness is checked by the middleware, not here.
type Claims struct {
	UserID uint   `json:"uid"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Manager issues and verifies token pairs with separate access and refresh
// secrets.
type Manager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// NewManagerFromEnv builds a Manager from JWT_ACCESS_SECRET,
// JWT_REFRESH_SECRET, JWT_ACCESS_TTL and JWT_REFRESH_TTL.
func NewManagerFromEnv() *Manager {
	return &Manager{
		accessSecret:  []byte(env.GetEnv("JWT_ACCESS_SECRET", "dev-access-secret")),
		refreshSecret: []byte(env.GetEnv("JWT_REFRESH_SECRET", "dev-refresh-secret")),
		accessTTL:     parseTTL(env.GetEnv("JWT_ACCESS_TTL", "15m"), 15*time.Minute),
		refreshTTL:    parseTTL(env.GetEnv("JWT_REFRESH_TTL", "168h"), 168*time.Hour),
	}
}

// NewManager builds a Manager with explicit secrets and TTLs. Used by tests
// and anywhere env lookup is unwanted.
func NewManager(accessSecret, refreshSecret []byte, accessTTL, refreshTTL time.Duration) *Manager {
	return &Manager{
		accessSecret:  accessSecret,
		refreshSecret: refreshSecret,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

// RefreshTTL returns the refresh token lifetime, which is also the session
// row lifetime.
func (m *Manager) RefreshTTL() time.Duration {
	return m.refreshTTL
}

// IssuePair issues an access and a refresh token sharing the same JTI.
func (m *Manager) IssuePair(userID uint, email, jti string) (access string, refresh string, err error) {
	access, err = m.issue(KindAccess, userID, email, jti)
	if err != nil {
		return "", "", err
	}
	refresh, err = m.issue(KindRefresh, userID, email, jti)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

func (m *Manager) issue(kind Kind, userID uint, email, jti string) (string, error) {
	secret, ttl := m.secretAndTTL(kind)
	now := time.Now()
	claims := Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// Verify parses and validates a token of the given kind and returns its
// claims. Expired-but-otherwise-valid tokens are reported as
// ErrTokenExpired so the middleware can tell the client to refresh.
func (m *Manager) Verify(kind Kind, tokenString string) (*Claims, error) {
	secret, _ := m.secretAndTTL(kind)
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if claims.UserID == 0 || claims.ID == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

func (m *Manager) secretAndTTL(kind Kind) ([]byte, time.Duration) {
	if kind == KindRefresh {
		return m.refreshSecret, m.refreshTTL
	}
	return m.accessSecret, m.accessTTL
}

func parseTTL(raw string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
